package domain

import (
	"strings"
	"time"
)

// RemoteRecord is the strict shape of one paid-student row crossing the
// remote source boundary.
type RemoteRecord struct {
	RemoteID   string `json:"remote_id"`
	NationalID string `json:"national_id,omitempty"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Career     string `json:"career,omitempty"`
	Email      string `json:"email"`
	// SecondaryEmail is an extra invitation recipient from the student's
	// profile. It is empty when it repeats Email.
	SecondaryEmail string `json:"secondary_email,omitempty"`
}

// Normalize trims every field in place.
func (r *RemoteRecord) Normalize() {
	r.RemoteID = strings.TrimSpace(r.RemoteID)
	r.NationalID = strings.TrimSpace(r.NationalID)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Career = strings.TrimSpace(r.Career)
	r.Email = strings.TrimSpace(r.Email)
	r.SecondaryEmail = SecondaryRecipient(r.Email, r.SecondaryEmail)
}

// SecondaryRecipient returns secondary trimmed, or empty when it is not an
// address or is the primary address in another case.
func SecondaryRecipient(primary, secondary string) string {
	secondary = strings.TrimSpace(secondary)
	if !usableEmail(secondary) || strings.EqualFold(secondary, strings.TrimSpace(primary)) {
		return ""
	}
	return secondary
}

// Validate rejects rows that cannot become a graduate regardless of
// eligibility. Only the remote id is mandatory; names may be blank in the
// ledger and are shown as-is to scanning staff.
func (r RemoteRecord) Validate() error {
	if r.RemoteID == "" {
		return ErrInvalidRecord
	}
	if strings.ContainsAny(r.RemoteID, "\x00\r\n") {
		return ErrInvalidRecord
	}
	return nil
}

// HasUsableEmail is deliberately shallow: one "@" with text on both sides.
func (r RemoteRecord) HasUsableEmail() bool {
	return usableEmail(r.Email)
}

func usableEmail(s string) bool {
	at := strings.Index(s, "@")
	return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " \t\r\n")
}

type MatchField string

const (
	MatchNationalID MatchField = "national_id"
	MatchRemoteID   MatchField = "remote_id"
)

func (r RemoteRecord) Identifier(field MatchField) string {
	if field == MatchRemoteID {
		return NormalizeIdentifier(r.RemoteID)
	}
	return NormalizeIdentifier(r.NationalID)
}

// WhitelistSet is the normalized eligibility filter, rebuilt on every run.
type WhitelistSet map[string]struct{}

func NewWhitelistSet(ids ...string) WhitelistSet {
	set := make(WhitelistSet, len(ids))
	for _, id := range ids {
		if n := NormalizeIdentifier(id); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

func (w WhitelistSet) Contains(id string) bool {
	if id == "" {
		return false
	}
	_, ok := w[NormalizeIdentifier(id)]
	return ok
}

type SkipReason string

const (
	SkipNotWhitelisted SkipReason = "not_whitelisted"
	SkipNoEmail        SkipReason = "no_email"
	SkipInvalidRecord  SkipReason = "invalid_record"
	SkipDuplicate      SkipReason = "duplicate"
)

type UpsertOutcome int

const (
	UpsertUnchanged UpsertOutcome = iota
	UpsertInserted
	UpsertUpdated
)

// SyncOptions selects a full or an incremental run. A zero Since means a
// full run, which is the only kind allowed to deactivate graduates.
type SyncOptions struct {
	Since time.Time
}

func (o SyncOptions) Full() bool {
	return o.Since.IsZero()
}

// SyncRunSummary is produced once per sync invocation and never persisted.
type SyncRunSummary struct {
	Full              bool               `json:"full"`
	Completed         bool               `json:"completed"`
	Fetched           int                `json:"fetched"`
	Inserted          int                `json:"inserted"`
	Updated           int                `json:"updated"`
	Unchanged         int                `json:"unchanged"`
	Skipped           map[SkipReason]int `json:"skipped_by_reason"`
	Deactivated       int                `json:"deactivated"`
	CompanionsCreated int                `json:"companions_created"`
	Errors            []string           `json:"errors,omitempty"`
	StartedAt         time.Time          `json:"started_at"`
	FinishedAt        time.Time          `json:"finished_at"`
}

func NewSyncRunSummary(opts SyncOptions, startedAt time.Time) *SyncRunSummary {
	return &SyncRunSummary{
		Full:      opts.Full(),
		Skipped:   make(map[SkipReason]int),
		StartedAt: startedAt,
	}
}

func (s *SyncRunSummary) Skip(reason SkipReason) {
	s.Skipped[reason]++
}

func (s *SyncRunSummary) SkippedTotal() int {
	total := 0
	for _, n := range s.Skipped {
		total += n
	}
	return total
}
