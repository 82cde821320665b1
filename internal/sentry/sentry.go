// Package sentry wires error reporting through the Sentry SDK. Reporting
// is optional; without a token every function here is a no-op.
package sentry

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// Config holds the error reporting settings.
type Config struct {
	// Token authenticates against the ingesting host. Empty disables
	// reporting entirely.
	Token string

	// Host is the ingesting host, e.g. "errors.betterstack.com".
	Host string

	// Environment labels reported events, e.g. "production".
	Environment string

	// Release labels reported events with the running version.
	Release string
}

// Initialize sets up the Sentry SDK. The DSN is built as
// https://$TOKEN@$HOST/1; the project id segment is required by the SDK
// and ignored by Better Stack.
func Initialize(cfg Config) error {
	if cfg.Token == "" {
		return nil
	}
	if cfg.Host == "" {
		return fmt.Errorf("sentry host is required when token is provided")
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              fmt.Sprintf("https://%s@%s/1", cfg.Token, cfg.Host),
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		AttachStacktrace: true,
	})
}

// Flush waits for buffered events to reach the server. Returns false when
// the timeout expires first.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// IsEnabled reports whether reporting is active.
func IsEnabled() bool {
	return sentry.CurrentHub().Client() != nil
}

// CaptureException reports an error.
func CaptureException(err error) {
	sentry.CaptureException(err)
}

// CaptureExceptionWithContext reports an error through the hub bound to
// ctx when one exists, keeping request scope data attached.
func CaptureExceptionWithContext(ctx context.Context, err error) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.CaptureException(err)
}
