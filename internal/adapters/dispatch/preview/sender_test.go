package preview

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/gradgate/internal/core/domain"
)

func TestSendWritesManifest(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "previews")
	s, err := NewSender(dir)
	require.NoError(t, err)

	inv := domain.Invitation{
		GraduateID:     uuid.New(),
		RemoteID:       "20/1",
		FirstName:      "Ana",
		LastName:       "Díaz",
		Email:          "ana@example.com",
		SecondaryEmail: "ana@casa.org",
		Passes: []domain.InvitationPass{
			{CompanionID: uuid.New(), Slot: 1, CredentialToken: "tok-1"},
			{CompanionID: uuid.New(), Slot: 2, CredentialToken: "tok-2"},
		},
	}
	require.NoError(t, s.Send(context.Background(), inv))

	data, err := os.ReadFile(filepath.Join(dir, "20_1.json"))
	require.NoError(t, err)

	var m manifest
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "20/1", m.RemoteID)
	assert.Equal(t, "ana@casa.org", m.CC)
	require.Len(t, m.Passes, 2)
	assert.Equal(t, "tok-2", m.Passes[1].QRPayload)
	assert.NotContains(t, string(data), inv.Passes[0].CompanionID.String())
}

func TestSendRejectsEmptyInvitation(t *testing.T) {
	s, err := NewSender(t.TempDir())
	require.NoError(t, err)
	assert.Error(t, s.Send(context.Background(), domain.Invitation{RemoteID: "1"}))
}

func TestSendOmitsEmptyCopy(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSender(dir)
	require.NoError(t, err)

	inv := domain.Invitation{
		RemoteID: "7",
		Email:    "luis@example.com",
		Passes:   []domain.InvitationPass{{Slot: 1, CredentialToken: "tok"}},
	}
	require.NoError(t, s.Send(context.Background(), inv))

	data, err := os.ReadFile(filepath.Join(dir, "7.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"cc"`)
}
