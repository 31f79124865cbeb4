// Package preview writes invitations to disk instead of mailing them, one
// JSON manifest per graduate. Operators review the manifests before the real
// mail run.
package preview

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vncsmyrnk/gradgate/internal/core/domain"
	"github.com/vncsmyrnk/gradgate/internal/core/ports"
)

type manifest struct {
	RemoteID  string `json:"remote_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Career    string `json:"career,omitempty"`
	Email     string `json:"email"`
	CC        string `json:"cc,omitempty"`
	Passes    []pass `json:"passes"`
}

type pass struct {
	Slot int `json:"slot"`
	// QRPayload is exactly what the QR code encodes.
	QRPayload string `json:"qr_payload"`
}

type sender struct {
	dir string
}

func NewSender(dir string) (ports.InvitationSender, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create preview dir: %w", err)
	}
	return &sender{dir: dir}, nil
}

func (s *sender) Send(ctx context.Context, inv domain.Invitation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(inv.Passes) == 0 {
		return fmt.Errorf("invitation for %s has no passes", inv.RemoteID)
	}

	m := manifest{
		RemoteID:  inv.RemoteID,
		FirstName: inv.FirstName,
		LastName:  inv.LastName,
		Career:    inv.Career,
		Email:     inv.Email,
		CC:        inv.SecondaryEmail,
	}
	for _, p := range inv.Passes {
		m.Passes = append(m.Passes, pass{Slot: p.Slot, QRPayload: p.CredentialToken})
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	// Write then rename so a reader never sees a partial manifest.
	path := filepath.Join(s.dir, fileName(inv.RemoteID))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to publish manifest: %w", err)
	}
	return nil
}

func fileName(remoteID string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, remoteID)
	if clean == "" {
		clean = "_"
	}
	return clean + ".json"
}
