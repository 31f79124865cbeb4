package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/gradgate/internal/config"
	"github.com/vncsmyrnk/gradgate/internal/core/domain"
	"github.com/vncsmyrnk/gradgate/internal/logging"
)

const feed = `[
  {"remote_id": "1001", "national_id": "V100", "first_name": "Ana", "last_name": "Pérez", "career": "Derecho", "email": "ana@example.com"},
  {"remote_id": "1002", "national_id": "V200", "first_name": "Luis", "last_name": "Rojas", "email": "luis@example.com"},
  {"remote_id": "1003", "national_id": "V300", "first_name": "Sin", "last_name": "Correo", "email": ""}
]`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	sourcePath := filepath.Join(dir, "feed.json")
	require.NoError(t, os.WriteFile(sourcePath, []byte(feed), 0o644))
	whitelistPath := filepath.Join(dir, "graduacion.csv")
	require.NoError(t, os.WriteFile(whitelistPath, []byte("cedula;nombre\nv100;Ana\nV300;Sin\n"), 0o644))

	cfg := &config.Config{
		StoreDriver:        config.StoreSQLite,
		SQLitePath:         filepath.Join(dir, "gate.db"),
		SourceDriver:       config.SourceJSONFile,
		SourceFile:         sourcePath,
		SourceFromDate:     "2025-01-01",
		WhitelistPath:      whitelistPath,
		WhitelistColumn:    "cedula",
		MatchField:         string(domain.MatchNationalID),
		DeactivationPolicy: "deny",
		SyncLockLease:      time.Minute,
		DispatchPreviewDir: filepath.Join(dir, "previews"),
		Timezone:           "UTC",
		LogFormat:          "text",
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestAppEndToEnd(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	a, err := New(ctx, cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	summary, err := a.Sync.RunSync(ctx, domain.SyncOptions{})
	require.NoError(t, err)
	assert.True(t, summary.Completed)
	assert.Equal(t, 1, summary.Inserted)
	assert.Equal(t, 1, summary.Skipped[domain.SkipNotWhitelisted])
	assert.Equal(t, 1, summary.Skipped[domain.SkipNoEmail])
	assert.Equal(t, 2, summary.CompanionsCreated)

	issued, err := a.Credentials.IssueMissingCredentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, issued)

	dispatched, err := a.Dispatch.DeliverPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, dispatched.Invitations)
	assert.FileExists(t, filepath.Join(cfg.DispatchPreviewDir, "1001.json"))

	rows, err := a.Admin.ExportState(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	v := a.Verification.Verify(ctx, rows[0].CredentialToken)
	assert.Equal(t, domain.ResultGranted, v.Result)
	require.NotNil(t, v.Student)
	assert.Equal(t, "Ana", v.Student.FirstName)
	assert.Equal(t, domain.ResultAlreadyUsed, a.Verification.Verify(ctx, rows[0].CredentialToken).Result)
}

func TestOpenStoreIsRepeatable(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	for i := 0; i < 2; i++ {
		store, err := OpenStore(ctx, cfg)
		require.NoError(t, err)
		require.NoError(t, store.Health.Ping(ctx))
		require.NoError(t, store.DB.Close())
	}
}

func TestNewSourceRejectsUnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.SourceDriver = "ftp"

	_, _, err := NewSource(cfg, logging.Discard())
	assert.Error(t, err)
}
