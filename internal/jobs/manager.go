package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Manager creates jobs and runs each on its own goroutine.
type Manager struct {
	store   Store
	runner  *Runner
	logger  *zap.Logger
	baseCtx context.Context
	newID   func() string

	running *atomic.Int64
	wg      sync.WaitGroup
}

// NewManager creates a manager. Jobs run under baseCtx rather than the submitting request,
// so they outlive the HTTP call that started them.
func NewManager(baseCtx context.Context, store Store, runner *Runner, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:   store,
		runner:  runner,
		logger:  logger,
		baseCtx: baseCtx,
		newID:   uuid.NewString,
		running: atomic.NewInt64(0),
	}
}

// Submit records a new STARTING job and starts it in the background.
func (m *Manager) Submit(ctx context.Context) (*Job, error) {
	job := &Job{ID: m.newID(), Status: StatusStarting, Progress: "Starting"}
	if err := m.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	created, err := m.store.Get(ctx, job.ID)
	if err != nil {
		return nil, err
	}

	m.wg.Add(1)
	m.running.Inc()
	go func() {
		defer m.wg.Done()
		defer m.running.Dec()
		m.runner.Run(m.baseCtx, job.ID)
	}()

	m.logger.Info("job submitted", zap.String("job_id", job.ID))
	return created, nil
}

// Get returns the current job record.
func (m *Manager) Get(ctx context.Context, id string) (*Job, error) {
	return m.store.Get(ctx, id)
}

// Store returns the underlying job store.
func (m *Manager) Store() Store {
	return m.store
}

// Running returns the number of jobs in flight.
func (m *Manager) Running() int64 {
	return m.running.Load()
}

// Wait blocks until every submitted job has finished or ctx ends.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
