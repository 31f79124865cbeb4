package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/gradgate/internal/core/domain"
)

func TestWriteCSV(t *testing.T) {
	loc, err := time.LoadLocation("America/Caracas")
	require.NoError(t, err)

	synced := time.Date(2025, 7, 10, 16, 0, 0, 0, time.UTC)
	checkedIn := time.Date(2025, 7, 12, 23, 30, 0, 0, time.UTC)
	companionID := uuid.New()

	rows := []domain.ExportRow{
		{
			RemoteID: "1", FirstName: "Ana", LastName: "Díaz", Email: "ana@example.com",
			PaymentConfirmed: true, LastSyncedAt: &synced,
			CompanionID: &companionID, Slot: 1, Status: domain.CompanionCheckedIn,
			CredentialToken: "tok", IssuedAt: &synced, CheckedInAt: &checkedIn,
		},
		{RemoteID: "2", FirstName: "Luis", LastName: "Rojas", Email: "luis@example.com"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows, loc))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Header, records[0])

	first := records[1]
	assert.Equal(t, "true", first[6])
	assert.Equal(t, "2025-07-10 12:00:00", first[7])
	assert.Equal(t, companionID.String(), first[8])
	assert.Equal(t, "checked_in", first[10])
	assert.Equal(t, "", first[13])
	assert.Equal(t, "2025-07-12 19:30:00", first[14])

	second := records[2]
	assert.Equal(t, "false", second[6])
	for _, col := range second[8:] {
		assert.Empty(t, col)
	}
}
