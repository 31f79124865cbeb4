// Package jsonfile serves paid-student records from a local JSON export. It
// stands in for the remote ledger in rehearsals and tests.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/vncsmyrnk/gradgate/internal/core/domain"
	"github.com/vncsmyrnk/gradgate/internal/core/ports"
)

// entry is one element of the export. PaidAt is optional; entries without it
// are returned by every fetch.
type entry struct {
	domain.RemoteRecord
	PaidAt *time.Time `json:"paid_at,omitempty"`
}

type source struct {
	path string
}

func New(path string) ports.RemoteSource {
	return &source{path: path}
}

func (s *source) FetchPaidStudents(ctx context.Context, since time.Time) ([]domain.RemoteRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &domain.SourceUnavailableError{Source: s.path, Err: err}
	}

	var entries []entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &domain.SourceUnavailableError{Source: s.path, Err: fmt.Errorf("failed to decode records: %w", err)}
	}

	records := make([]domain.RemoteRecord, 0, len(entries))
	for _, e := range entries {
		if !since.IsZero() && e.PaidAt != nil && e.PaidAt.Before(since) {
			continue
		}
		records = append(records, e.RemoteRecord)
	}
	return records, nil
}
