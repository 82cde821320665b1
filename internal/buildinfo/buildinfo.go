// Package buildinfo holds build-time metadata injected via -ldflags.
package buildinfo

// Version is the semantic version or tag for this build.
// Inject via: -X github.com/uitmtimetable/icress-linebot-go/internal/buildinfo.Version=...
var Version = ""

// Commit is the git commit SHA for this build.
// Inject via: -X github.com/uitmtimetable/icress-linebot-go/internal/buildinfo.Commit=...
var Commit = ""

// Release combines version and commit for error report tagging.
func Release() string {
	switch {
	case Version != "" && Commit != "":
		return Version + "+" + Commit
	case Version != "":
		return Version
	default:
		return Commit
	}
}
