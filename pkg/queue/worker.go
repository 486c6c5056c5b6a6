package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/authsvc/pkg/logger"
)

// WorkerStorage is the storage side of task processing.
type WorkerStorage interface {
	// ClaimTask locks the next claimable task in queues and increments its
	// attempt count. It returns ErrNoTaskToClaim when nothing is due.
	ClaimTask(ctx context.Context, workerID uuid.UUID, queues []string, lock time.Duration) (*Task, error)
	CompleteTask(ctx context.Context, id uuid.UUID) error
	// FailTask records msg. A nil retryAt fails the task permanently;
	// otherwise the task becomes pending again at retryAt.
	FailTask(ctx context.Context, id uuid.UUID, msg string, retryAt *time.Time) error
}

// Worker polls queues and runs registered handlers.
type Worker struct {
	storage WorkerStorage
	id      uuid.UUID

	mu       sync.RWMutex
	handlers map[string]Handler

	queues       []string
	pollInterval time.Duration
	lockTimeout  time.Duration
	concurrency  int
	retryBase    time.Duration
	retryMax     time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithQueues limits the worker to the named queues. Tasks on other queues
// stay pending for another worker.
func WithQueues(queues ...string) WorkerOption {
	return func(w *Worker) {
		if len(queues) > 0 {
			w.queues = queues
		}
	}
}

// WithPollInterval sets how long an idle worker waits before polling again.
func WithPollInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithLockTimeout sets how long a claimed task stays locked. It also bounds
// handler execution time.
func WithLockTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.lockTimeout = d
		}
	}
}

// WithMaxConcurrentTasks bounds the number of tasks handled at once.
func WithMaxConcurrentTasks(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.concurrency = n
		}
	}
}

// WithRetryBackoff sets the delay before the first retry and its cap.
// The delay doubles with every failed attempt.
func WithRetryBackoff(base, max time.Duration) WorkerOption {
	return func(w *Worker) {
		if base > 0 {
			w.retryBase = base
		}
		if max >= w.retryBase {
			w.retryMax = max
		}
	}
}

// WithWorkerLogger sets the logger for task outcomes.
func WithWorkerLogger(l *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithWorkerClock overrides the time source used for retry scheduling.
func WithWorkerClock(now func() time.Time) WorkerOption {
	return func(w *Worker) {
		if now != nil {
			w.now = now
		}
	}
}

// NewWorker returns a Worker reading from storage.
func NewWorker(storage WorkerStorage, opts ...WorkerOption) (*Worker, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	w := &Worker{
		storage:      storage,
		id:           uuid.New(),
		handlers:     map[string]Handler{},
		queues:       []string{DefaultQueueName},
		pollInterval: 2 * time.Second,
		lockTimeout:  5 * time.Minute,
		concurrency:  1,
		retryBase:    30 * time.Second,
		retryMax:     time.Hour,
		logger:       logger.Discard(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// ID identifies the worker in task locks.
func (w *Worker) ID() uuid.UUID { return w.id }

// Register adds handlers. Names must be unique.
func (w *Worker) Register(handlers ...Handler) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, h := range handlers {
		if h == nil {
			continue
		}
		if _, ok := w.handlers[h.Name()]; ok {
			return fmt.Errorf("%w: %s", ErrHandlerExists, h.Name())
		}
		w.handlers[h.Name()] = h
	}
	return nil
}

// Run polls until ctx is cancelled, then waits for in-flight tasks. Tasks
// run on a context detached from ctx so shutdown does not abort them.
func (w *Worker) Run(ctx context.Context) error {
	w.mu.RLock()
	n := len(w.handlers)
	w.mu.RUnlock()
	if n == 0 {
		return ErrNoHandlers
	}

	w.logger.InfoContext(ctx, "worker started",
		slog.String("worker_id", w.id.String()),
		slog.Any("queues", w.queues),
		slog.Int("concurrency", w.concurrency),
		logger.Component("queue"),
	)

	var g errgroup.Group
	g.SetLimit(w.concurrency)
	taskCtx := context.WithoutCancel(ctx)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = g.Wait()
			w.logger.InfoContext(taskCtx, "worker stopped",
				slog.String("worker_id", w.id.String()), logger.Component("queue"))
			return nil
		case <-ticker.C:
			for range w.concurrency {
				started := g.TryGo(func() error {
					if _, err := w.ProcessNext(taskCtx); err != nil {
						w.logger.ErrorContext(taskCtx, "task processing failed",
							slog.String("worker_id", w.id.String()),
							logger.Error(err),
							logger.Component("queue"),
						)
					}
					return nil
				})
				if !started {
					break
				}
			}
		}
	}
}

// ProcessNext claims one task and runs it. It reports whether a task was
// claimed. Handler failures are recorded on the task, not returned; the
// error covers storage failures only.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	task, err := w.storage.ClaimTask(ctx, w.id, w.queues, w.lockTimeout)
	if errors.Is(err, ErrNoTaskToClaim) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("claim task: %w", err)
	}
	return true, w.process(ctx, task)
}

func (w *Worker) process(ctx context.Context, task *Task) error {
	start := w.now()
	log := w.logger.With(
		logger.TaskID(task.ID),
		slog.String("task_name", task.Name),
		slog.String("queue", task.Queue),
		logger.Component("queue"),
	)

	w.mu.RLock()
	h, ok := w.handlers[task.Name]
	w.mu.RUnlock()
	if !ok {
		log.ErrorContext(ctx, "no handler registered for task")
		return w.storage.FailTask(ctx, task.ID, ErrHandlerNotFound.Error(), nil)
	}

	runErr := w.run(ctx, h, task)
	if runErr == nil {
		if err := w.storage.CompleteTask(ctx, task.ID); err != nil {
			return fmt.Errorf("complete task %s: %w", task.ID, err)
		}
		log.DebugContext(ctx, "task completed", logger.Duration(w.now().Sub(start)))
		return nil
	}

	var retryAt *time.Time
	if task.Attempts < task.MaxAttempts && !errors.Is(runErr, ErrSkipRetry) {
		at := w.now().Add(w.backoff(task.Attempts))
		retryAt = &at
	}
	log.WarnContext(ctx, "task failed",
		logger.RetryCount(task.Attempts),
		slog.Bool("will_retry", retryAt != nil),
		logger.Error(runErr),
	)
	if err := w.storage.FailTask(ctx, task.ID, runErr.Error(), retryAt); err != nil {
		return fmt.Errorf("fail task %s: %w", task.ID, err)
	}
	return nil
}

func (w *Worker) run(ctx context.Context, h Handler, task *Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	ctx, cancel := context.WithTimeout(ctx, w.lockTimeout)
	defer cancel()
	return h.Handle(ctx, task.Payload)
}

// backoff returns the delay after the given failed attempt.
func (w *Worker) backoff(attempt int) time.Duration {
	d := w.retryBase
	for i := 1; i < attempt && d < w.retryMax; i++ {
		d *= 2
	}
	return min(d, w.retryMax)
}
