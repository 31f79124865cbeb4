package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/gradgate/internal/core/domain"
	"github.com/vncsmyrnk/gradgate/internal/logging"
)

// blockingSync holds every run until release is closed or its context ends.
type blockingSync struct {
	mu      sync.Mutex
	calls   []domain.SyncOptions
	started chan struct{}
	release chan struct{}
	err     error
}

func newBlockingSync() *blockingSync {
	return &blockingSync{started: make(chan struct{}, 8), release: make(chan struct{})}
}

func (s *blockingSync) RunSync(ctx context.Context, opts domain.SyncOptions) (*domain.SyncRunSummary, error) {
	s.mu.Lock()
	s.calls = append(s.calls, opts)
	s.mu.Unlock()
	s.started <- struct{}{}

	summary := domain.NewSyncRunSummary(opts, time.Now())
	select {
	case <-s.release:
	case <-ctx.Done():
		return summary, ctx.Err()
	}
	if s.err != nil {
		return summary, s.err
	}
	summary.Inserted = 3
	summary.Completed = true
	return summary, nil
}

type stubCredentials struct {
	mu    sync.Mutex
	calls int
}

func (s *stubCredentials) IssueMissingCredentials(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return 6, nil
}

type stubDispatch struct {
	err error
}

func (stubDispatch) PendingDeliveries(context.Context) ([]domain.Delivery, error) { return nil, nil }
func (stubDispatch) MarkDelivered(context.Context, uuid.UUID, time.Time) error    { return nil }
func (s stubDispatch) DeliverPending(context.Context) (*domain.DispatchSummary, error) {
	return &domain.DispatchSummary{Invitations: 3, Delivered: 6}, s.err
}

func waitFor(t *testing.T, m *Manager, id uuid.UUID, status domain.JobStatus) domain.Job {
	t.Helper()
	var job domain.Job
	require.Eventually(t, func() bool {
		var err error
		job, err = m.Get(id)
		require.NoError(t, err)
		return job.Status == status
	}, 5*time.Second, 10*time.Millisecond)
	return job
}

func TestFullProcessRunsEveryStep(t *testing.T) {
	syncSvc := newBlockingSync()
	close(syncSvc.release)
	creds := &stubCredentials{}
	m := NewManager(syncSvc, creds, stubDispatch{}, logging.Discard(), nil)

	job, err := m.Start(context.Background(), domain.JobFullProcess, domain.SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.JobPending, job.Status)
	assert.Nil(t, job.Since)

	job = waitFor(t, m, job.ID, domain.JobCompleted)
	require.NotNil(t, job.Sync)
	assert.Equal(t, 3, job.Sync.Inserted)
	require.NotNil(t, job.Issued)
	assert.Equal(t, 6, *job.Issued)
	require.NotNil(t, job.Dispatch)
	assert.Equal(t, 6, job.Dispatch.Delivered)
	assert.NotNil(t, job.StartedAt)
	assert.NotNil(t, job.FinishedAt)
	assert.Empty(t, job.Error)
	assert.Equal(t, 1, creds.calls)
}

func TestJobOutlivesRequestContext(t *testing.T) {
	syncSvc := newBlockingSync()
	m := NewManager(syncSvc, &stubCredentials{}, stubDispatch{}, logging.Discard(), nil)

	reqCtx, cancel := context.WithCancel(context.Background())
	since := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	job, err := m.Start(reqCtx, domain.JobSync, domain.SyncOptions{Since: since})
	require.NoError(t, err)
	require.NotNil(t, job.Since)
	assert.Equal(t, since, *job.Since)

	<-syncSvc.started
	cancel()
	waitFor(t, m, job.ID, domain.JobRunning)

	close(syncSvc.release)
	job = waitFor(t, m, job.ID, domain.JobCompleted)
	assert.Equal(t, since, syncSvc.calls[0].Since)
}

func TestCancelStopsRunningJob(t *testing.T) {
	syncSvc := newBlockingSync()
	creds := &stubCredentials{}
	m := NewManager(syncSvc, creds, stubDispatch{}, logging.Discard(), nil)

	job, err := m.Start(context.Background(), domain.JobFullProcess, domain.SyncOptions{})
	require.NoError(t, err)
	<-syncSvc.started

	_, err = m.Cancel(job.ID)
	require.NoError(t, err)

	job = waitFor(t, m, job.ID, domain.JobCancelled)
	assert.Contains(t, job.Error, "canceled")
	assert.Zero(t, creds.calls, "later steps never start")

	_, err = m.Cancel(job.ID)
	assert.ErrorIs(t, err, domain.ErrJobFinished)
	_, err = m.Cancel(uuid.New())
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestFailedStepStopsFullProcess(t *testing.T) {
	syncSvc := newBlockingSync()
	syncSvc.err = domain.ErrSyncInProgress
	close(syncSvc.release)
	creds := &stubCredentials{}
	m := NewManager(syncSvc, creds, stubDispatch{}, logging.Discard(), nil)

	job, err := m.Start(context.Background(), domain.JobFullProcess, domain.SyncOptions{})
	require.NoError(t, err)

	job = waitFor(t, m, job.ID, domain.JobFailed)
	assert.Contains(t, job.Error, "holds the lock")
	assert.Nil(t, job.Issued)
	assert.Zero(t, creds.calls)

	job, err = m.Start(context.Background(), domain.JobDispatch, domain.SyncOptions{})
	require.NoError(t, err)
	waitFor(t, m, job.ID, domain.JobCompleted)

	failing := NewManager(syncSvc, creds, stubDispatch{err: errors.New("smtp down")}, logging.Discard(), nil)
	job, err = failing.Start(context.Background(), domain.JobDispatch, domain.SyncOptions{})
	require.NoError(t, err)
	job = waitFor(t, failing, job.ID, domain.JobFailed)
	assert.Contains(t, job.Error, "smtp down")
}

func TestStartRejectsUnknownKind(t *testing.T) {
	m := NewManager(newBlockingSync(), &stubCredentials{}, stubDispatch{}, logging.Discard(), nil)
	_, err := m.Start(context.Background(), "rebuild", domain.SyncOptions{})
	assert.ErrorIs(t, err, domain.ErrUnknownJobKind)
	assert.Empty(t, m.List())

	_, err = m.Get(uuid.New())
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestListIsNewestFirstAndPruned(t *testing.T) {
	now := time.Date(2025, 7, 12, 20, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
	m := NewManager(newBlockingSync(), &stubCredentials{}, stubDispatch{}, logging.Discard(), clock)
	m.retain = 2

	var ids []uuid.UUID
	for i := 0; i < 4; i++ {
		job, err := m.Start(context.Background(), domain.JobIssue, domain.SyncOptions{})
		require.NoError(t, err)
		waitFor(t, m, job.ID, domain.JobCompleted)
		ids = append(ids, job.ID)
	}

	list := m.List()
	require.Len(t, list, 3, "the newest job is kept besides the retained finished ones")
	assert.Equal(t, ids[3], list[0].ID)
	assert.Equal(t, ids[2], list[1].ID)
	assert.Equal(t, ids[1], list[2].ID)
}

func TestShutdownCancelsRunningJobs(t *testing.T) {
	syncSvc := newBlockingSync()
	m := NewManager(syncSvc, &stubCredentials{}, stubDispatch{}, logging.Discard(), nil)

	job, err := m.Start(context.Background(), domain.JobSync, domain.SyncOptions{})
	require.NoError(t, err)
	<-syncSvc.started

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))

	job, err = m.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobCancelled, job.Status)
}
