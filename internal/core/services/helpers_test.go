package services_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/gradgate/internal/adapters/repository/sqlite"
	"github.com/vncsmyrnk/gradgate/internal/core/domain"
	"github.com/vncsmyrnk/gradgate/internal/core/ports"
	"github.com/vncsmyrnk/gradgate/internal/core/services"
	"github.com/vncsmyrnk/gradgate/internal/logging"
)

type fakeSource struct {
	mu      sync.Mutex
	records []domain.RemoteRecord
	err     error
	since   []time.Time
}

func (f *fakeSource) FetchPaidStudents(_ context.Context, since time.Time) ([]domain.RemoteRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.since = append(f.since, since)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.RemoteRecord, len(f.records))
	copy(out, f.records)
	return out, nil
}

func (f *fakeSource) set(records ...domain.RemoteRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = records
}

type fakeWhitelist struct {
	set domain.WhitelistSet
	err error
}

func (f *fakeWhitelist) Load(context.Context) (domain.WhitelistSet, error) {
	return f.set, f.err
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 7, 12, 22, 0, 0, 123456789, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	db         *sql.DB
	clock      *testClock
	source     *fakeSource
	whitelist  *fakeWhitelist
	graduates  ports.GraduateRepository
	companions ports.CompanionRepository
	lock       ports.SyncLock

	sync        ports.SyncService
	credentials ports.CredentialService
	verify      ports.VerificationService
	admin       ports.AdminService
}

type envOption func(*envSettings)

type envSettings struct {
	matchField     domain.MatchField
	policy         domain.DeactivationPolicy
	allowEmptyFeed bool
	graduates      func(ports.GraduateRepository) ports.GraduateRepository
	tokens         ports.TokenGenerator
}

func withPolicy(p domain.DeactivationPolicy) envOption {
	return func(s *envSettings) { s.policy = p }
}

func withMatchField(f domain.MatchField) envOption {
	return func(s *envSettings) { s.matchField = f }
}

func withAllowEmptyFeed() envOption {
	return func(s *envSettings) { s.allowEmptyFeed = true }
}

func withGraduateRepository(wrap func(ports.GraduateRepository) ports.GraduateRepository) envOption {
	return func(s *envSettings) { s.graduates = wrap }
}

func withTokens(g ports.TokenGenerator) envOption {
	return func(s *envSettings) { s.tokens = g }
}

func setupEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	settings := envSettings{matchField: domain.MatchRemoteID, policy: domain.PolicyDeny}
	for _, opt := range opts {
		opt(&settings)
	}

	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "gate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		db:         db,
		clock:      newTestClock(),
		source:     &fakeSource{},
		whitelist:  &fakeWhitelist{},
		graduates:  sqlite.NewGraduateRepository(db),
		companions: sqlite.NewCompanionRepository(db),
		lock:       sqlite.NewSyncLockRepository(db),
	}

	graduates := env.graduates
	if settings.graduates != nil {
		graduates = settings.graduates(graduates)
	}

	logger := logging.Discard()
	env.sync = services.NewSyncService(services.SyncDeps{
		Source:     env.source,
		Whitelist:  env.whitelist,
		Graduates:  graduates,
		Companions: env.companions,
		Lock:       env.lock,
		Health:     sqlite.NewStoreHealth(db),
		Logger:     logger,
		Now:        env.clock.Now,
	}, services.SyncConfig{
		MatchField:     settings.matchField,
		LockLease:      time.Minute,
		AllowEmptyFeed: settings.allowEmptyFeed,
	})
	env.credentials = services.NewCredentialService(env.companions, settings.tokens, logger, env.clock.Now)
	env.verify = services.NewVerificationService(env.companions, settings.policy, logger, env.clock.Now)
	env.admin = services.NewAdminService(env.graduates, env.companions, sqlite.NewStoreHealth(db), logger)
	return env
}

func graduate(remoteID string) domain.RemoteRecord {
	return domain.RemoteRecord{
		RemoteID:   remoteID,
		NationalID: "V" + remoteID,
		FirstName:  "Name" + remoteID,
		LastName:   "Last" + remoteID,
		Career:     "Ingeniería",
		Email:      remoteID + "@example.com",
	}
}

// tokensOf returns the credential tokens of a graduate ordered by slot.
func (e *testEnv) tokensOf(t *testing.T, remoteID string) []string {
	t.Helper()
	ctx := context.Background()
	g, err := e.graduates.GetByRemoteID(ctx, remoteID)
	require.NoError(t, err)
	list, err := e.companions.ListByGraduate(ctx, g.ID)
	require.NoError(t, err)

	tokens := make([]string, 0, len(list))
	for _, c := range list {
		tokens = append(tokens, c.CredentialToken)
	}
	return tokens
}

// prepare runs a full sync and issuance for the given remote ids.
func (e *testEnv) prepare(t *testing.T, remoteIDs ...string) {
	t.Helper()
	records := make([]domain.RemoteRecord, 0, len(remoteIDs))
	for _, id := range remoteIDs {
		records = append(records, graduate(id))
	}
	e.source.set(records...)
	e.whitelist.set = domain.NewWhitelistSet(remoteIDs...)

	_, err := e.sync.RunSync(context.Background(), domain.SyncOptions{})
	require.NoError(t, err)
	_, err = e.credentials.IssueMissingCredentials(context.Background())
	require.NoError(t, err)
}
