package domain

import (
	"time"

	"github.com/google/uuid"
)

// ExportRow is one line of the audit snapshot: a graduate joined with one of
// its companion slots. Companion fields are zero when the graduate has none.
type ExportRow struct {
	GraduateID       uuid.UUID
	RemoteID         string
	NationalID       string
	FirstName        string
	LastName         string
	Career           string
	Email            string
	PaymentConfirmed bool
	LastSyncedAt     *time.Time

	CompanionID     *uuid.UUID
	Slot            int
	CredentialToken string
	IssuedAt        *time.Time
	DeliveredAt     *time.Time
	Status          CompanionStatus
	CheckedInAt     *time.Time
}
