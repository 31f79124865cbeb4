package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/gradgate/internal/core/domain"
)

const export = `[
  {"remote_id": "1", "national_id": "V100", "first_name": "Ana", "last_name": "Díaz", "email": "ana@example.com", "paid_at": "2025-03-01T10:00:00Z"},
  {"remote_id": "2", "national_id": "V200", "first_name": "Luis", "last_name": "Rojas", "email": "luis@example.com", "paid_at": "2025-05-01T10:00:00Z"},
  {"remote_id": "3", "first_name": "Eva", "email": "eva@example.com"}
]`

func TestFetchPaidStudents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.json")
	require.NoError(t, os.WriteFile(path, []byte(export), 0o644))
	src := New(path)

	all, err := src.FetchPaidStudents(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "V100", all[0].NationalID)

	recent, err := src.FetchPaidStudents(context.Background(), time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "2", recent[0].RemoteID)
	assert.Equal(t, "3", recent[1].RemoteID)
}

func TestFetchPaidStudentsErrors(t *testing.T) {
	dir := t.TempDir()
	var srcErr *domain.SourceUnavailableError

	_, err := New(filepath.Join(dir, "missing.json")).FetchPaidStudents(context.Background(), time.Time{})
	assert.ErrorAs(t, err, &srcErr)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"not": "a list"}`), 0o644))
	_, err = New(bad).FetchPaidStudents(context.Background(), time.Time{})
	assert.ErrorAs(t, err, &srcErr)
}
