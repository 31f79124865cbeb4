package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxCompanionsPerGraduate bounds the companion slots of one graduate.
const MaxCompanionsPerGraduate = 2

type CompanionStatus string

const (
	CompanionPending   CompanionStatus = "pending"
	CompanionCheckedIn CompanionStatus = "checked_in"
	CompanionDenied    CompanionStatus = "denied"
)

func ParseCompanionStatus(s string) (CompanionStatus, error) {
	switch CompanionStatus(s) {
	case CompanionPending, CompanionCheckedIn, CompanionDenied:
		return CompanionStatus(s), nil
	}
	return "", fmt.Errorf("unknown companion status %q", s)
}

// Companion is one of up to two guests of a graduate. Each field group has a
// single writer: sync creates the row, the issuer sets the token, dispatch
// sets DeliveredAt and verification owns Status/CheckedInAt.
type Companion struct {
	ID              uuid.UUID       `json:"id"`
	GraduateID      uuid.UUID       `json:"graduate_id"`
	Slot            int             `json:"slot"`
	CredentialToken string          `json:"-"`
	IssuedAt        *time.Time      `json:"issued_at,omitempty"`
	DeliveredAt     *time.Time      `json:"delivered_at,omitempty"`
	Status          CompanionStatus `json:"status"`
	CheckedInAt     *time.Time      `json:"checked_in_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// CompanionSnapshot is what the verification path reads for a token: the
// companion's state together with its graduate's payment state.
type CompanionSnapshot struct {
	CompanionID    uuid.UUID
	Slot           int
	Status         CompanionStatus
	CheckedInAt    *time.Time
	GraduateActive bool
	Student        Student
}
