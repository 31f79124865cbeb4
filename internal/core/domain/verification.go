package domain

import "time"

// Verification is the structured decision returned to a scanning station.
// It never carries remote identifiers or e-mail addresses.
type Verification struct {
	Result        VerificationResult `json:"result"`
	Student       *Student           `json:"student,omitempty"`
	CompanionSlot int                `json:"companion_slot,omitempty"`
	CheckedInAt   *time.Time         `json:"checked_in_at,omitempty"`
}
