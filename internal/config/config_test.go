package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("ENV", "unittest")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "unittest", cfg.Env)
	assert.Equal(t, "3001", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "none", cfg.Events.Driver)
	assert.Equal(t, "attendance.marked", cfg.Events.NATS.Subject)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "configs"), 0o755))
	yaml := []byte("server:\n  port: \"9000\"\ndatabase:\n  name: school\nevents:\n  driver: nats\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", "config.filetest.yaml"), yaml, 0o600))

	t.Setenv("ENV", "filetest")
	t.Setenv("DB_USER", "attendance_user")
	t.Setenv("NATS_URL", "nats://broker:4222")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "school", cfg.Database.DBName)
	assert.Equal(t, "attendance_user", cfg.Database.User)
	assert.Equal(t, "nats", cfg.Events.Driver)
	assert.Equal(t, "nats://broker:4222", cfg.Events.NATS.URL)
}

func TestLoad_UnknownDriver(t *testing.T) {
	chdirTemp(t)
	t.Setenv("ENV", "unittest")
	t.Setenv("EVENTS_DRIVER", "carrier-pigeon")

	_, err := Load()
	assert.ErrorContains(t, err, "unknown events driver")
}
