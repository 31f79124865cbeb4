// Package export renders the audit snapshot as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/vncsmyrnk/gradgate/internal/core/domain"
)

const timeLayout = "2006-01-02 15:04:05"

var Header = []string{
	"remote_id", "national_id", "first_name", "last_name", "career", "email",
	"payment_confirmed", "last_synced_at",
	"companion_id", "slot", "status", "credential_token", "issued_at", "delivered_at", "checked_in_at",
}

// WriteCSV writes rows with timestamps rendered in loc. Graduates without
// companions keep the companion columns empty.
func WriteCSV(w io.Writer, rows []domain.ExportRow, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.RemoteID,
			row.NationalID,
			row.FirstName,
			row.LastName,
			row.Career,
			row.Email,
			strconv.FormatBool(row.PaymentConfirmed),
			formatTime(row.LastSyncedAt, loc),
			"", "", "", "", "", "", "",
		}
		if row.CompanionID != nil {
			record[8] = row.CompanionID.String()
			record[9] = strconv.Itoa(row.Slot)
			record[10] = string(row.Status)
			record[11] = row.CredentialToken
			record[12] = formatTime(row.IssuedAt, loc)
			record[13] = formatTime(row.DeliveredAt, loc)
			record[14] = formatTime(row.CheckedInAt, loc)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", row.RemoteID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatTime(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return t.In(loc).Format(timeLayout)
}
