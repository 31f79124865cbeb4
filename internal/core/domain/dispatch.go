package domain

import (
	"time"

	"github.com/google/uuid"
)

// Delivery is an issued, not yet delivered companion credential together with
// the graduate data a sender needs to address it.
type Delivery struct {
	CompanionID     uuid.UUID
	GraduateID      uuid.UUID
	RemoteID        string
	Slot            int
	CredentialToken string
	FirstName       string
	LastName        string
	Career          string
	Email           string
	SecondaryEmail  string
}

// Invitation groups the pending deliveries of one graduate. Senders embed
// only CredentialToken in the QR payload.
type Invitation struct {
	GraduateID uuid.UUID
	RemoteID   string
	FirstName  string
	LastName   string
	Career     string
	Email      string
	// SecondaryEmail receives a copy when set.
	SecondaryEmail string
	Passes         []InvitationPass
}

type InvitationPass struct {
	CompanionID     uuid.UUID
	Slot            int
	CredentialToken string
}

// GroupInvitations folds deliveries into one invitation per graduate,
// preserving the order in which graduates first appear.
func GroupInvitations(deliveries []Delivery) []Invitation {
	index := make(map[uuid.UUID]int)
	var out []Invitation
	for _, d := range deliveries {
		i, ok := index[d.GraduateID]
		if !ok {
			i = len(out)
			index[d.GraduateID] = i
			out = append(out, Invitation{
				GraduateID:     d.GraduateID,
				RemoteID:       d.RemoteID,
				FirstName:      d.FirstName,
				LastName:       d.LastName,
				Career:         d.Career,
				Email:          d.Email,
				SecondaryEmail: d.SecondaryEmail,
			})
		}
		out[i].Passes = append(out[i].Passes, InvitationPass{
			CompanionID:     d.CompanionID,
			Slot:            d.Slot,
			CredentialToken: d.CredentialToken,
		})
	}
	return out
}

type DispatchSummary struct {
	Invitations int       `json:"invitations"`
	Delivered   int       `json:"delivered"`
	Failed      int       `json:"failed"`
	Errors      []string  `json:"errors,omitempty"`
	FinishedAt  time.Time `json:"finished_at"`
}
