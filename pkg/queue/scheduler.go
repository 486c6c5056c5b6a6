package queue

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authsvc/pkg/logger"
)

// SchedulerStorage is the storage side of periodic scheduling.
type SchedulerStorage interface {
	CreateTask(ctx context.Context, task *Task) error
	// HasPendingTask reports whether a task with name is pending or being
	// processed.
	HasPendingTask(ctx context.Context, name string) (bool, error)
}

// Scheduler creates periodic tasks. A periodic task gets a new instance
// only when no instance is pending or running, so several scheduler
// replicas and restarts do not pile up duplicates.
type Scheduler struct {
	storage  SchedulerStorage
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu    sync.RWMutex
	tasks map[string]periodicTask
}

type periodicTask struct {
	name        string
	schedule    Schedule
	queue       string
	maxAttempts int
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithCheckInterval sets how often due tasks are checked.
func WithCheckInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithSchedulerLogger sets the scheduler's logger.
func WithSchedulerLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSchedulerClock overrides the time source, mainly for tests.
func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// NewScheduler returns a Scheduler writing to storage.
func NewScheduler(storage SchedulerStorage, opts ...SchedulerOption) (*Scheduler, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	s := &Scheduler{
		storage:  storage,
		interval: 30 * time.Second,
		logger:   logger.Discard(),
		now:      time.Now,
		tasks:    map[string]periodicTask{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// PeriodicOption configures a periodic task.
type PeriodicOption func(*periodicTask)

// WithTaskQueue sets the queue periodic runs are enqueued on.
func WithTaskQueue(name string) PeriodicOption {
	return func(t *periodicTask) {
		if name != "" {
			t.queue = name
		}
	}
}

// WithTaskMaxAttempts caps retries of a single periodic run.
func WithTaskMaxAttempts(n int) PeriodicOption {
	return func(t *periodicTask) {
		if n > 0 {
			t.maxAttempts = n
		}
	}
}

// AddTask registers a periodic task processed by the handler created with
// NewPeriodicTaskHandler under the same name.
func (s *Scheduler) AddTask(name string, schedule Schedule, opts ...PeriodicOption) error {
	if name == "" {
		return ErrInvalidTaskName
	}
	if schedule == nil {
		return ErrInvalidSchedule
	}
	t := periodicTask{name: name, schedule: schedule, queue: DefaultQueueName, maxAttempts: 3}
	for _, opt := range opts {
		opt(&t)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[name]; ok {
		return ErrTaskRegistered
	}
	s.tasks[name] = t
	return nil
}

// Tasks lists the registered task names in order.
func (s *Scheduler) Tasks() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Run checks due tasks immediately and then every check interval until ctx
// is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.Tasks()) == 0 {
		return ErrNoPeriodicTasks
	}
	s.Tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick creates the next instance of every periodic task without one.
func (s *Scheduler) Tick(ctx context.Context) {
	s.mu.RLock()
	tasks := make([]periodicTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.mu.RUnlock()

	for _, t := range tasks {
		if err := s.schedule(ctx, t); err != nil {
			s.logger.ErrorContext(ctx, "failed to schedule periodic task",
				slog.String("task_name", t.name),
				logger.Error(err),
				logger.Component("queue"),
			)
		}
	}
}

func (s *Scheduler) schedule(ctx context.Context, t periodicTask) error {
	pending, err := s.storage.HasPendingTask(ctx, t.name)
	if err != nil || pending {
		return err
	}
	now := s.now()
	next := t.schedule.Next(now)
	if err := s.storage.CreateTask(ctx, &Task{
		ID:          uuid.New(),
		Queue:       t.queue,
		Name:        t.name,
		Status:      TaskStatusPending,
		MaxAttempts: t.maxAttempts,
		ScheduledAt: next,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "periodic task scheduled",
		slog.String("task_name", t.name),
		slog.Time("scheduled_at", next),
		logger.Component("queue"),
	)
	return nil
}
