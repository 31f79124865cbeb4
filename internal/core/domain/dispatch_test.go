package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupInvitations(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	deliveries := []Delivery{
		{CompanionID: uuid.New(), GraduateID: a, RemoteID: "A", Slot: 1, CredentialToken: "a1", Email: "a@x.com", SecondaryEmail: "a@home.org"},
		{CompanionID: uuid.New(), GraduateID: b, RemoteID: "B", Slot: 2, CredentialToken: "b2", Email: "b@x.com"},
		{CompanionID: uuid.New(), GraduateID: a, RemoteID: "A", Slot: 2, CredentialToken: "a2", Email: "a@x.com"},
	}

	got := GroupInvitations(deliveries)
	require.Len(t, got, 2)

	assert.Equal(t, "A", got[0].RemoteID)
	assert.Equal(t, "a@home.org", got[0].SecondaryEmail)
	require.Len(t, got[0].Passes, 2)
	assert.Equal(t, "a1", got[0].Passes[0].CredentialToken)
	assert.Equal(t, "a2", got[0].Passes[1].CredentialToken)

	assert.Equal(t, "B", got[1].RemoteID)
	assert.Empty(t, got[1].SecondaryEmail)
	require.Len(t, got[1].Passes, 1)
	assert.Equal(t, 2, got[1].Passes[0].Slot)

	assert.Empty(t, GroupInvitations(nil))
}
