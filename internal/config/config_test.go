package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domerrors "github.com/uitmtimetable/icress-linebot-go/internal/errors"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LINE_CHANNEL_ACCESS_TOKEN", "test_token")
	t.Setenv("LINE_CHANNEL_SECRET", "test_secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test_token", cfg.LineChannelToken)
	assert.Equal(t, "10000", cfg.Port)
	assert.Equal(t, "https://simsweb4.uitm.edu.my/estudent/class_timetable/", cfg.IcressURL)
	assert.Equal(t, "https://simsweb4.uitm.edu.my/estudent/class_timetable/index.htm", cfg.IcressRefererURL)
	assert.Equal(t, "Asia/Kuala_Lumpur", cfg.DisplayTimezone)
	assert.Equal(t, 30*time.Second, cfg.PortalTimeout)
	assert.Equal(t, 30*24*time.Hour, cfg.DirectoryCacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.TimetableCacheTTL)
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ICRESS_URL", "https://example.test/timetable/")
	t.Setenv("PORTAL_TIMEOUT", "10s")
	t.Setenv("TIMETABLE_CACHE_TTL", "1h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://example.test/timetable/", cfg.IcressURL)
	assert.Equal(t, 10*time.Second, cfg.PortalTimeout)
	assert.Equal(t, time.Hour, cfg.TimetableCacheTTL)
}

func TestLoad_MissingCredentials(t *testing.T) {
	t.Setenv("LINE_CHANNEL_ACCESS_TOKEN", "")
	t.Setenv("LINE_CHANNEL_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestValidate_URLTrailingSlash(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ICRESS_URL", "https://example.test/timetable")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trailing slash")
	assert.ErrorIs(t, err, domerrors.ErrInvalidInput)
}

func TestValidate_BadTimezone(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DISPLAY_TIMEZONE", "Nowhere/Invalid")

	_, err := Load()
	require.Error(t, err)
}

func TestLocation(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Asia/Kuala_Lumpur", cfg.Location().String())
}

func TestSQLitePath(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DATA_DIR", "/tmp/icress-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/icress-test/icress.db", cfg.SQLitePath())
}
