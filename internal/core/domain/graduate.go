package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Graduate is a student confirmed paid and eligible to bring companions.
// Rows are written only by the sync engine and are never deleted.
type Graduate struct {
	ID               uuid.UUID  `json:"id"`
	RemoteID         string     `json:"remote_id"`
	NationalID       string     `json:"national_id,omitempty"`
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	Career           string     `json:"career,omitempty"`
	Email            string     `json:"email"`
	SecondaryEmail   string     `json:"secondary_email,omitempty"`
	PaymentConfirmed bool       `json:"payment_confirmed"`
	LastSyncedAt     *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Student is the subset of a graduate that scanning staff may see.
type Student struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Career    string `json:"career,omitempty"`
}

func (g *Graduate) Student() Student {
	return Student{FirstName: g.FirstName, LastName: g.LastName, Career: g.Career}
}

// SameProfile reports whether the record carries the mutable fields the
// graduate already holds.
func (g *Graduate) SameProfile(rec RemoteRecord) bool {
	return g.FirstName == rec.FirstName &&
		g.LastName == rec.LastName &&
		g.Career == rec.Career &&
		g.Email == rec.Email &&
		g.SecondaryEmail == rec.SecondaryEmail &&
		g.NationalID == rec.NationalID
}

// NormalizeIdentifier is applied to whitelist entries and record identifiers
// before they are compared.
func NormalizeIdentifier(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
