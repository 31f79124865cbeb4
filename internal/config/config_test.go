package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/gradgate/internal/core/domain"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr)
	assert.Equal(t, StorePostgres, cfg.StoreDriver)
	assert.Equal(t, SourceMySQL, cfg.SourceDriver)
	assert.Equal(t, "graduacion.csv", cfg.WhitelistPath)
	assert.Equal(t, "cedula", cfg.WhitelistColumn)
	assert.Equal(t, domain.PolicyDeny, cfg.Policy)
	assert.Equal(t, 5*time.Minute, cfg.SyncLockLease)
	assert.Equal(t, "@every 1m", cfg.AutoSync.Schedule)
	assert.Equal(t, "America/Caracas", cfg.Location.String())
	assert.Equal(t, 2025, cfg.FromDate.Year())
	assert.Equal(t, cfg.Location, cfg.FromDate.Location())
	assert.Error(t, cfg.RequireAdminToken())
}

func TestLoadFromEnvAndDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("GATE_STORE_DRIVER=sqlite\nGATE_SQLITE_PATH=/tmp/gate.db\n"), 0o644))

	t.Setenv("GATE_DEACTIVATION_POLICY", "suspend")
	t.Setenv("ADMIN_TOKEN", "s3cret")
	t.Setenv("GATE_AUTO_SYNC_LOOKBACK", "30m")
	t.Setenv("REMOTE_MYSQL_HOST", "ledger")

	t.Cleanup(func() {
		os.Unsetenv("GATE_STORE_DRIVER")
		os.Unsetenv("GATE_SQLITE_PATH")
	})

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, StoreSQLite, cfg.StoreDriver)
	assert.Equal(t, "/tmp/gate.db", cfg.SQLitePath)
	assert.Equal(t, domain.PolicySuspend, cfg.Policy)
	assert.Equal(t, 30*time.Minute, cfg.AutoSync.Lookback)
	assert.Equal(t, "ledger", cfg.RemoteMySQL.Host)
	assert.Equal(t, 10*time.Second, cfg.RemoteMySQL.Timeout)
	assert.NoError(t, cfg.RequireAdminToken())
}

func TestValidateRejectsUnknownValues(t *testing.T) {
	t.Setenv("GATE_STORE_DRIVER", "oracle")
	t.Setenv("GATE_SOURCE_DRIVER", "jsonfile")
	t.Setenv("GATE_MATCH_FIELD", "email")
	t.Setenv("GATE_DEACTIVATION_POLICY", "ignore")
	t.Setenv("GATE_TIMEZONE", "Mars/Olympus")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	for _, key := range []string{"GATE_STORE_DRIVER", "GATE_SOURCE_FILE", "GATE_MATCH_FIELD", "GATE_DEACTIVATION_POLICY", "GATE_TIMEZONE"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestTimezoneLoadsWithoutSystemZoneinfo(t *testing.T) {
	t.Setenv("ZONEINFO", filepath.Join(t.TempDir(), "missing.zip"))

	for _, tz := range []string{"America/Caracas", "America/Bogota", "Europe/Madrid"} {
		t.Setenv("GATE_TIMEZONE", tz)
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
		require.NoError(t, err, tz)
		assert.Equal(t, tz, cfg.Location.String())
	}
}
