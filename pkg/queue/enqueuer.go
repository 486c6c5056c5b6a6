package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnqueuerStorage persists new tasks.
type EnqueuerStorage interface {
	CreateTask(ctx context.Context, task *Task) error
}

// Enqueuer adds one-time tasks to a queue.
type Enqueuer struct {
	storage     EnqueuerStorage
	queue       string
	maxAttempts int
	now         func() time.Time
}

// EnqueuerOption configures an Enqueuer.
type EnqueuerOption func(*Enqueuer)

// WithDefaultQueue sets the queue used when Enqueue gets no WithQueue.
func WithDefaultQueue(name string) EnqueuerOption {
	return func(e *Enqueuer) {
		if name != "" {
			e.queue = name
		}
	}
}

// WithDefaultMaxAttempts sets how many times a task is tried before it
// fails permanently.
func WithDefaultMaxAttempts(n int) EnqueuerOption {
	return func(e *Enqueuer) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// WithEnqueuerClock overrides the time source used for scheduled_at.
func WithEnqueuerClock(now func() time.Time) EnqueuerOption {
	return func(e *Enqueuer) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEnqueuer returns an Enqueuer writing to storage.
func NewEnqueuer(storage EnqueuerStorage, opts ...EnqueuerOption) (*Enqueuer, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	e := &Enqueuer{
		storage:     storage,
		queue:       DefaultQueueName,
		maxAttempts: 5,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

type enqueueOptions struct {
	queue       string
	delay       time.Duration
	maxAttempts int
}

// EnqueueOption configures a single Enqueue call.
type EnqueueOption func(*enqueueOptions)

// WithQueue puts the task on a named queue instead of the default one.
func WithQueue(name string) EnqueueOption {
	return func(o *enqueueOptions) {
		if name != "" {
			o.queue = name
		}
	}
}

// WithDelay postpones the first attempt by d.
func WithDelay(d time.Duration) EnqueueOption {
	return func(o *enqueueOptions) {
		if d > 0 {
			o.delay = d
		}
	}
}

// WithMaxAttempts caps retries. After the last failure the task stays in
// the failed state for inspection.
func WithMaxAttempts(n int) EnqueueOption {
	return func(o *enqueueOptions) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// Enqueue stores payload as a task named after its type. The task is
// picked up by the handler created with NewTaskHandler for the same type.
func (e *Enqueuer) Enqueue(ctx context.Context, payload any, opts ...EnqueueOption) (uuid.UUID, error) {
	if payload == nil {
		return uuid.Nil, ErrPayloadNil
	}
	o := enqueueOptions{queue: e.queue, maxAttempts: e.maxAttempts}
	for _, opt := range opts {
		opt(&o)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("queue: marshal %T: %w", payload, err)
	}

	now := e.now()
	task := &Task{
		ID:          uuid.New(),
		Queue:       o.queue,
		Name:        typeName(payload),
		Payload:     raw,
		Status:      TaskStatusPending,
		MaxAttempts: o.maxAttempts,
		ScheduledAt: now.Add(o.delay),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.storage.CreateTask(ctx, task); err != nil {
		return uuid.Nil, fmt.Errorf("queue: create task %q in %q: %w", task.Name, task.Queue, err)
	}
	return task.ID, nil
}
