package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/custodia-labs/listings-cli/internal/core/domain"
	"github.com/custodia-labs/listings-cli/internal/core/ports/driven"
	"github.com/custodia-labs/listings-cli/internal/core/ports/driving"
	"github.com/custodia-labs/listings-cli/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// Scheduler manages background task execution.
// It is a pure core service with no external control API.
type Scheduler struct {
	config   domain.SchedulerConfig
	store    driven.SchedulerStore
	listings driving.ListingService

	// newBackOff builds the retry policy for one task run.
	newBackOff func() backoff.BackOff

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	// inFlight holds the IDs of tasks started by the ticker and not yet finished.
	inFlight map[string]bool

	// runMu prevents the ticker and RunNow from running a task concurrently.
	runMu sync.Mutex
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	listings driving.ListingService,
) *Scheduler {
	return &Scheduler{
		config:   config,
		store:    store,
		listings: listings,
		inFlight: make(map[string]bool),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 2 * time.Second
			b.MaxInterval = 30 * time.Second
			return b
		},
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	if !s.config.Enabled {
		logger.Info("Scheduler disabled")
	} else if err := s.initialiseTasks(ctx); err != nil {
		logger.Warn("scheduler: failed to initialise tasks: %v", err)
	}

	err := s.run(ctx, stopCh)

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	s.wg.Wait()
	return err
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	// Wait for running tasks to complete
	s.wg.Wait()

	return nil
}

// RunNow executes a task immediately, outside its schedule.
// The task is created from configuration if it has never run.
func (s *Scheduler) RunNow(ctx context.Context, taskID string) (*domain.TaskResult, error) {
	if err := s.ensureTask(ctx, taskID, taskName(taskID), s.taskConfig(taskID)); err != nil {
		return nil, fmt.Errorf("ensure task: %w", err)
	}
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return nil, fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	result := s.executeTask(ctx, task)
	if !result.Success {
		return result, errors.New(result.Error)
	}
	return result, nil
}

// initialiseTasks ensures all configured tasks exist in the store.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	if taskCfg := s.config.GetTaskConfig(domain.TaskIDListingsRefresh); taskCfg.Enabled {
		if err := s.ensureTask(ctx, domain.TaskIDListingsRefresh, taskName(domain.TaskIDListingsRefresh), taskCfg); err != nil {
			return err
		}
	}
	return nil
}

// taskConfig returns the configured task settings, enabled with a default
// interval when the task is not configured.
func (s *Scheduler) taskConfig(taskID string) domain.TaskConfig {
	cfg := s.config.GetTaskConfig(taskID)
	if cfg.Interval <= 0 {
		def := domain.DefaultSchedulerConfig()
		cfg.Interval = def.GetTaskConfig(domain.TaskIDListingsRefresh).Interval
		cfg.Enabled = true
	}
	return cfg
}

// ensureTask creates or updates a task in the store.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if task == nil {
		// First run happens immediately so a fresh install fills its cache.
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			Enabled:  cfg.Enabled,
		}
	} else {
		// Update interval if changed
		if task.Interval != cfg.Interval {
			task.Interval = cfg.Interval
			task.NextRun = time.Now().Add(cfg.Interval)
		}
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context, stopCh <-chan struct{}) error {
	if s.config.Enabled {
		s.checkAndRunDueTasks(ctx)
	}

	tick := s.config.TickInterval
	if tick <= 0 {
		tick = time.Minute
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			if s.config.Enabled {
				s.checkAndRunDueTasks(ctx)
			}
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("scheduler: failed to list tasks: %v", err)
		return
	}

	now := time.Now()
	for i := range tasks {
		task := &tasks[i]
		if task.IsDue(now) {
			s.runTask(ctx, task)
		}
	}
}

// runTask executes a single task in the background. A task still running
// from an earlier tick is skipped.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	s.mu.Lock()
	if s.inFlight[task.ID] {
		s.mu.Unlock()
		logger.Debug("scheduler: task %s still running, skipping", task.ID)
		return
	}
	s.inFlight[task.ID] = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.inFlight, task.ID)
			s.mu.Unlock()
		}()
		s.executeTask(ctx, task)
	}()
}

// executeTask runs a task with retries, then persists its state and result.
func (s *Scheduler) executeTask(ctx context.Context, task *domain.ScheduledTask) *domain.TaskResult {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	logger.Section("Task " + task.ID)
	result := &domain.TaskResult{
		TaskID:    task.ID,
		StartedAt: time.Now(),
	}

	items, err := s.runWithRetry(ctx, task.ID, result)

	result.EndedAt = time.Now()
	if err != nil {
		result.Success = false
		result.Error = err.Error()
		task.LastError = err.Error()
		logger.Warn("scheduler: task %s failed after %d attempt(s): %v", task.ID, result.Attempts, err)
	} else {
		result.Success = true
		result.ItemsProcessed = items
		task.LastError = ""
		task.LastSuccess = result.EndedAt
		logger.Info("Task %s cached %d listings", task.ID, items)
	}

	// Update task state
	task.LastRun = result.StartedAt
	task.NextRun = result.EndedAt.Add(task.Interval)

	// A cancelled run still records its outcome.
	persistCtx := context.WithoutCancel(ctx)
	if saveErr := s.store.SaveTask(persistCtx, task); saveErr != nil {
		logger.Warn("scheduler: failed to save task %s: %v", task.ID, saveErr)
	}

	if recordErr := s.store.RecordResult(persistCtx, result); recordErr != nil {
		logger.Warn("scheduler: failed to record result for %s: %v", task.ID, recordErr)
	}

	if pruneErr := s.store.PruneHistory(persistCtx, domain.HistoryRetention); pruneErr != nil {
		logger.Warn("scheduler: failed to prune history: %v", pruneErr)
	}

	return result
}

// runWithRetry runs the task body until it succeeds, the attempt limit is
// reached or the back-off policy gives up.
func (s *Scheduler) runWithRetry(ctx context.Context, taskID string, result *domain.TaskResult) (int, error) {
	maxAttempts := int(s.config.MaxAttempts)
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	policy := s.newBackOff()
	policy.Reset()

	for {
		result.Attempts++
		items, err := s.runBody(ctx, taskID)
		if err == nil {
			return items, nil
		}
		if errors.Is(err, domain.ErrUnsupportedType) || result.Attempts >= maxAttempts {
			return 0, err
		}

		sleep := policy.NextBackOff()
		if sleep == backoff.Stop {
			return 0, err
		}
		logger.Debug("scheduler: task %s attempt %d failed, retrying in %s: %v", taskID, result.Attempts, sleep, err)

		select {
		case <-ctx.Done():
			return 0, errors.Join(err, ctx.Err())
		case <-time.After(sleep):
		}
	}
}

// runBody dispatches to the task implementation.
func (s *Scheduler) runBody(ctx context.Context, taskID string) (int, error) {
	switch taskID {
	case domain.TaskIDListingsRefresh:
		return s.runListingsRefresh(ctx)
	default:
		return 0, fmt.Errorf("task %s: %w", taskID, domain.ErrUnsupportedType)
	}
}

// runListingsRefresh forces a listings sync and reports the cached count.
func (s *Scheduler) runListingsRefresh(ctx context.Context) (int, error) {
	if s.listings == nil {
		return 0, nil
	}

	res := Drain(s.listings.CompanyListings(ctx, true, ""), nil)
	if res.Err != nil {
		return 0, res.Err
	}
	return len(res.Listings), nil
}

func taskName(taskID string) string {
	switch taskID {
	case domain.TaskIDListingsRefresh:
		return "Listings Refresh"
	default:
		return taskID
	}
}
