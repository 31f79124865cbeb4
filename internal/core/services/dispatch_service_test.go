package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/gradgate/internal/core/domain"
	"github.com/vncsmyrnk/gradgate/internal/core/services"
	"github.com/vncsmyrnk/gradgate/internal/logging"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []domain.Invitation
	fail map[string]bool
}

func (s *recordingSender) Send(_ context.Context, inv domain.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[inv.RemoteID] {
		return errors.New("mailbox unavailable")
	}
	s.sent = append(s.sent, inv)
	return nil
}

func TestDeliverPendingGroupsPassesPerGraduate(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	env.prepare(t, "R1", "R2")

	sender := &recordingSender{}
	svc := services.NewDispatchService(env.companions, sender, logging.Discard(), env.clock.Now)

	summary, err := svc.DeliverPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Invitations)
	assert.Equal(t, 4, summary.Delivered)
	assert.Zero(t, summary.Failed)

	require.Len(t, sender.sent, 2)
	for _, inv := range sender.sent {
		require.Len(t, inv.Passes, 2)
		assert.Equal(t, inv.RemoteID+"@example.com", inv.Email)
		assert.ElementsMatch(t, env.tokensOf(t, inv.RemoteID),
			[]string{inv.Passes[0].CredentialToken, inv.Passes[1].CredentialToken})
	}

	again, err := svc.DeliverPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Invitations)
	assert.Len(t, sender.sent, 2)
}

func TestDeliverPendingRetriesFailedSends(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	env.prepare(t, "R1", "R2")

	sender := &recordingSender{fail: map[string]bool{"R2": true}}
	svc := services.NewDispatchService(env.companions, sender, logging.Discard(), env.clock.Now)

	summary, err := svc.DeliverPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Invitations)
	assert.Equal(t, 2, summary.Delivered)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0], "R2")

	pending, err := svc.PendingDeliveries(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	for _, d := range pending {
		assert.Equal(t, "R2", d.RemoteID)
	}

	sender.fail = nil
	summary, err = svc.DeliverPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Invitations)
	assert.Equal(t, 2, summary.Delivered)
}

func TestDeliverPendingSkipsUnissuedCompanions(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	env.source.set(graduate("R1"))
	env.whitelist.set = domain.NewWhitelistSet("R1")
	_, err := env.sync.RunSync(ctx, domain.SyncOptions{})
	require.NoError(t, err)

	sender := &recordingSender{}
	svc := services.NewDispatchService(env.companions, sender, logging.Discard(), env.clock.Now)

	summary, err := svc.DeliverPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.Invitations)
	assert.Empty(t, sender.sent)
}

func TestMarkDeliveredIsWriteOnce(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	env.prepare(t, "R1")

	svc := services.NewDispatchService(env.companions, nil, logging.Discard(), env.clock.Now)
	pending, err := svc.PendingDeliveries(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, pending)

	id := pending[0].CompanionID
	require.NoError(t, svc.MarkDelivered(ctx, id, env.clock.Now()))
	assert.ErrorIs(t, svc.MarkDelivered(ctx, id, env.clock.Now()), domain.ErrAlreadyDelivered)

	_, err = svc.DeliverPending(ctx)
	assert.Error(t, err)
}

func TestDeliverPendingCopiesSecondaryAddress(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	withCopy := graduate("R1")
	withCopy.SecondaryEmail = "familia@example.org"
	sameAsPrimary := graduate("R2")
	sameAsPrimary.SecondaryEmail = "R2@EXAMPLE.COM"
	env.source.set(withCopy, sameAsPrimary)
	env.whitelist.set = domain.NewWhitelistSet("R1", "R2")
	_, err := env.sync.RunSync(ctx, domain.SyncOptions{})
	require.NoError(t, err)
	_, err = env.credentials.IssueMissingCredentials(ctx)
	require.NoError(t, err)

	sender := &recordingSender{}
	svc := services.NewDispatchService(env.companions, sender, logging.Discard(), env.clock.Now)
	_, err = svc.DeliverPending(ctx)
	require.NoError(t, err)

	require.Len(t, sender.sent, 2)
	byID := map[string]domain.Invitation{}
	for _, inv := range sender.sent {
		byID[inv.RemoteID] = inv
	}
	assert.Equal(t, "familia@example.org", byID["R1"].SecondaryEmail)
	assert.Empty(t, byID["R2"].SecondaryEmail, "a copy to the primary address is dropped")
}
