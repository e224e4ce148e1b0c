// Package jobs runs scrapes in the background, one at a time, and keeps
// their bookkeeping in a run store.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/maltedev/boiler-scraper/internal/models"
	"github.com/maltedev/boiler-scraper/internal/pipeline"
)

var ErrRunInProgress = errors.New("a scrape run is already in progress")

type RunStore interface {
	Create(ctx context.Context, run *models.Run) error
	MarkRunning(ctx context.Context, id uuid.UUID, startedAt time.Time) error
	Finish(ctx context.Context, run *models.Run) error
	Get(ctx context.Context, id uuid.UUID) (*models.Run, error)
	List(ctx context.Context, limit int) ([]*models.Run, error)
}

type Runner interface {
	Run(ctx context.Context) (*pipeline.Stats, error)
}

// RunnerFactory builds a fresh runner for every run. Browser sessions are
// stateful and are never shared between runs.
type RunnerFactory func(ctx context.Context, runID uuid.UUID) (Runner, error)

// FinishHook is called once a run reached a terminal status.
type FinishHook func(ctx context.Context, run *models.Run) error

type Manager struct {
	runs      RunStore
	newRunner RunnerFactory
	onFinish  FinishHook
	logger    *slog.Logger
	now       func() time.Time

	mu     sync.Mutex
	active *models.Run
	queue  chan *models.Run
}

func NewManager(runs RunStore, factory RunnerFactory, logger *slog.Logger) *Manager {
	return &Manager{
		runs:      runs,
		newRunner: factory,
		logger:    logger.With("component", "job_manager"),
		now:       time.Now,
		queue:     make(chan *models.Run, 1),
	}
}

func (m *Manager) WithFinishHook(hook FinishHook) *Manager {
	m.onFinish = hook
	return m
}

// Start records a pending run and hands it to the worker. Only one run may
// be pending or running at a time.
func (m *Manager) Start(ctx context.Context, trigger string) (*models.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, err := m.reserve(ctx, trigger)
	if err != nil {
		return nil, err
	}
	m.queue <- run

	m.logger.Info("run queued", "run_id", run.ID, "trigger", trigger)
	snapshot := *run
	return &snapshot, nil
}

// RunNow records a run and executes it in the calling goroutine. It returns
// the final run together with the error the run failed with, if any.
func (m *Manager) RunNow(ctx context.Context, trigger string) (*models.Run, error) {
	m.mu.Lock()
	run, err := m.reserve(ctx, trigger)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	final, runErr := m.execute(ctx, run)
	return &final, runErr
}

// reserve must be called with m.mu held.
func (m *Manager) reserve(ctx context.Context, trigger string) (*models.Run, error) {
	if m.active != nil {
		return nil, ErrRunInProgress
	}

	run := &models.Run{
		ID:        uuid.New(),
		Status:    models.RunPending,
		Trigger:   trigger,
		CreatedAt: m.now(),
	}
	if err := m.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	m.active = run
	return run, nil
}

// Active returns a copy of the pending or running run, or nil.
func (m *Manager) Active() *models.Run {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil
	}
	snapshot := *m.active
	return &snapshot
}

func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*models.Run, error) {
	return m.runs.Get(ctx, id)
}

func (m *Manager) List(ctx context.Context, limit int) ([]*models.Run, error) {
	return m.runs.List(ctx, limit)
}

// StartWorker executes queued runs until ctx is cancelled. Cancelling ctx
// also cancels the run in progress; its final state is still recorded.
func (m *Manager) StartWorker(ctx context.Context) error {
	m.logger.Info("job worker started")

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("job worker stopping")
			return ctx.Err()
		case run := <-m.queue:
			_, _ = m.execute(ctx, run)
		}
	}
}

func (m *Manager) execute(ctx context.Context, run *models.Run) (models.Run, error) {
	logger := m.logger.With("run_id", run.ID)

	started := m.now()
	m.mu.Lock()
	run.Status = models.RunRunning
	run.StartedAt = &started
	m.mu.Unlock()

	if err := m.runs.MarkRunning(ctx, run.ID, started); err != nil {
		logger.Error("failed to update run status", "error", err)
	}

	logger.Info("processing run")

	var stats *pipeline.Stats
	runner, err := m.newRunner(ctx, run.ID)
	if err == nil {
		stats, err = runner.Run(ctx)
	} else {
		err = fmt.Errorf("failed to prepare run: %w", err)
	}

	return m.finish(context.WithoutCancel(ctx), run, stats, err), err
}

func (m *Manager) finish(ctx context.Context, run *models.Run, stats *pipeline.Stats, runErr error) models.Run {
	logger := m.logger.With("run_id", run.ID)
	finished := m.now()

	m.mu.Lock()
	if stats != nil {
		run.Pages = stats.Pages
		run.Created = stats.Created
		run.Updated = stats.Updated
		run.SkippedNotTarget = stats.SkippedNotTarget
		run.SkippedExisting = stats.SkippedExisting
		run.Errors = stats.Errors
	}
	run.Status = models.RunCompleted
	if runErr != nil {
		run.Status = models.RunFailed
		run.Error = runErr.Error()
	}
	run.FinishedAt = &finished
	final := *run
	m.mu.Unlock()

	if err := m.runs.Finish(ctx, &final); err != nil {
		logger.Error("failed to record run result", "error", err)
	}

	if m.onFinish != nil {
		if err := m.onFinish(ctx, &final); err != nil {
			logger.Error("failed to publish run result", "error", err)
		}
	}

	if runErr != nil {
		logger.Error("run failed", "error", runErr)
	} else {
		logger.Info("run completed", "created", final.Created, "updated", final.Updated, "errors", final.Errors)
	}

	m.mu.Lock()
	m.active = nil
	m.mu.Unlock()

	return final
}
