// Package jobs runs sync, issuance and dispatch in the background so an
// admin request can return before a long run finishes.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/gradgate/internal/core/domain"
	"github.com/vncsmyrnk/gradgate/internal/core/ports"
)

// DefaultRetain is how many finished jobs are kept for inspection.
const DefaultRetain = 50

type Manager struct {
	sync        ports.SyncService
	credentials ports.CredentialService
	dispatch    ports.DispatchService
	logger      *slog.Logger
	now         func() time.Time
	retain      int

	mu   sync.Mutex
	jobs map[uuid.UUID]*entry
	wg   sync.WaitGroup
}

type entry struct {
	job    domain.Job
	cancel context.CancelFunc
}

func NewManager(syncSvc ports.SyncService, credentials ports.CredentialService, dispatch ports.DispatchService, logger *slog.Logger, now func() time.Time) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Manager{
		sync:        syncSvc,
		credentials: credentials,
		dispatch:    dispatch,
		logger:      logger.With("component", "jobs"),
		now:         now,
		retain:      DefaultRetain,
		jobs:        make(map[uuid.UUID]*entry),
	}
}

// Start queues a job and returns its first snapshot. The job keeps running
// after ctx is cancelled; use Cancel to stop it.
func (m *Manager) Start(ctx context.Context, kind domain.JobKind, opts domain.SyncOptions) (domain.Job, error) {
	if _, err := domain.ParseJobKind(string(kind)); err != nil {
		return domain.Job{}, err
	}

	job := domain.Job{
		ID:        uuid.New(),
		Kind:      kind,
		Status:    domain.JobPending,
		CreatedAt: m.now(),
	}
	if !opts.Full() {
		since := opts.Since
		job.Since = &since
	}

	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.mu.Lock()
	m.jobs[job.ID] = &entry{job: job, cancel: cancel}
	m.pruneLocked()
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		m.run(jobCtx, job.ID, kind, opts)
	}()

	m.logger.Info("job started", "job_id", job.ID, "kind", kind)
	return job, nil
}

func (m *Manager) Get(id uuid.UUID) (domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.jobs[id]
	if !ok {
		return domain.Job{}, domain.ErrJobNotFound
	}
	return e.job, nil
}

// List returns every retained job, newest first.
func (m *Manager) List() []domain.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Job, 0, len(m.jobs))
	for _, e := range m.jobs {
		out = append(out, e.job)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() > out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Cancel asks a running job to stop. The job reports cancelled once the
// step in flight returns.
func (m *Manager) Cancel(id uuid.UUID) (domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.jobs[id]
	if !ok {
		return domain.Job{}, domain.ErrJobNotFound
	}
	if e.job.Status.Finished() {
		return e.job, domain.ErrJobFinished
	}
	e.cancel()
	m.logger.Warn("job cancel requested", "job_id", id, "kind", e.job.Kind)
	return e.job, nil
}

// Shutdown cancels every job and waits for them to return.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	for _, e := range m.jobs {
		e.cancel()
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("jobs still running: %w", ctx.Err())
	}
}

func (m *Manager) run(ctx context.Context, id uuid.UUID, kind domain.JobKind, opts domain.SyncOptions) {
	m.update(id, func(j *domain.Job) {
		started := m.now()
		j.Status = domain.JobRunning
		j.StartedAt = &started
	})

	var err error
	switch kind {
	case domain.JobSync:
		err = m.runSync(ctx, id, opts)
	case domain.JobIssue:
		err = m.runIssue(ctx, id)
	case domain.JobDispatch:
		err = m.runDispatch(ctx, id)
	case domain.JobFullProcess:
		err = m.runFullProcess(ctx, id, opts)
	}

	m.update(id, func(j *domain.Job) {
		finished := m.now()
		j.FinishedAt = &finished
		switch {
		case err == nil:
			j.Status = domain.JobCompleted
		case ctx.Err() != nil:
			j.Status = domain.JobCancelled
			j.Error = err.Error()
		default:
			j.Status = domain.JobFailed
			j.Error = err.Error()
		}
	})

	if err != nil {
		m.logger.Error("job finished with error", "job_id", id, "kind", kind, "error", err)
		return
	}
	m.logger.Info("job completed", "job_id", id, "kind", kind)
}

func (m *Manager) runSync(ctx context.Context, id uuid.UUID, opts domain.SyncOptions) error {
	summary, err := m.sync.RunSync(ctx, opts)
	m.update(id, func(j *domain.Job) { j.Sync = summary })
	return err
}

func (m *Manager) runIssue(ctx context.Context, id uuid.UUID) error {
	issued, err := m.credentials.IssueMissingCredentials(ctx)
	m.update(id, func(j *domain.Job) { j.Issued = &issued })
	if err != nil {
		return fmt.Errorf("failed to issue credentials: %w", err)
	}
	return nil
}

func (m *Manager) runDispatch(ctx context.Context, id uuid.UUID) error {
	summary, err := m.dispatch.DeliverPending(ctx)
	m.update(id, func(j *domain.Job) { j.Dispatch = summary })
	if err != nil {
		return fmt.Errorf("failed to dispatch invitations: %w", err)
	}
	return nil
}

func (m *Manager) runFullProcess(ctx context.Context, id uuid.UUID, opts domain.SyncOptions) error {
	if err := m.runSync(ctx, id, opts); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.runIssue(ctx, id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.runDispatch(ctx, id)
}

func (m *Manager) update(id uuid.UUID, fn func(*domain.Job)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.jobs[id]; ok {
		fn(&e.job)
	}
}

// pruneLocked drops the oldest finished jobs past the retain limit.
func (m *Manager) pruneLocked() {
	var finished []*entry
	for _, e := range m.jobs {
		if e.job.Status.Finished() {
			finished = append(finished, e)
		}
	}
	if len(finished) <= m.retain {
		return
	}
	sort.Slice(finished, func(i, j int) bool {
		return finished[i].job.CreatedAt.Before(finished[j].job.CreatedAt)
	})
	for _, e := range finished[:len(finished)-m.retain] {
		delete(m.jobs, e.job.ID)
	}
}
