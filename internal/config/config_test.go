package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.GetServerAddr())
	assert.False(t, cfg.Database.UsesDatabase())
	assert.Equal(t, "0 5 0 * * *", cfg.Scheduler.Spec)
	assert.Equal(t, 15*time.Minute, cfg.Exports.URLExpiry)
}

func TestLoadConfigFileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server": {"port": 9090},
		"database": {"host": "db.internal", "user": "portal", "db_name": "placements"},
		"exports": {"bucket": "from-file"}
	}`), 0o600))

	t.Setenv("EXPORTS_BUCKET", "portal-exports")
	t.Setenv("SCHEDULER_TIMEOUT", "90s")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://portal.example.edu,https://admin.example.edu")

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Database.UsesDatabase())
	assert.Equal(t, "postgres://portal:@db.internal:5432/placements?sslmode=disable", cfg.Database.GetDatabaseURL())
	assert.Equal(t, "portal-exports", cfg.Exports.Bucket)
	assert.Equal(t, 90*time.Second, cfg.Scheduler.Timeout)
	assert.Equal(t, []string{"https://portal.example.edu", "https://admin.example.edu"}, cfg.Server.AllowedOrigins)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadConfigRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server":`), 0o600))

	_, err := LoadConfig(path)

	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Scheduler.Spec = ""
	assert.Error(t, cfg.Validate())

	cfg.Scheduler.Enabled = false
	assert.NoError(t, cfg.Validate())

	cfg = Default()
	cfg.Exports.AccessKeyID = "portal"
	assert.Error(t, cfg.Validate())
}
