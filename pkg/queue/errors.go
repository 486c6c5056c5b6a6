package queue

import "errors"

var (
	ErrStorageNil        = errors.New("queue: storage cannot be nil")
	ErrPayloadNil        = errors.New("queue: payload cannot be nil")
	ErrNoTaskToClaim     = errors.New("queue: no task to claim")
	ErrTaskNotFound      = errors.New("queue: task not found")
	ErrNoHandlers        = errors.New("queue: no task handlers registered")
	ErrHandlerExists     = errors.New("queue: handler already registered")
	ErrHandlerNotFound   = errors.New("queue: no handler registered for task")
	ErrTaskRegistered    = errors.New("queue: periodic task already registered")
	ErrNoPeriodicTasks   = errors.New("queue: scheduler has no registered tasks")
	ErrInvalidTaskName   = errors.New("queue: task name is required")
	ErrInvalidSchedule   = errors.New("queue: schedule is required")
	ErrPayloadUnmarshal  = errors.New("queue: cannot decode payload")
	ErrHandlerPanic      = errors.New("queue: handler panicked")
	ErrDuplicateTaskID   = errors.New("queue: task already exists")
	ErrTaskNotProcessing = errors.New("queue: task is not being processed")
)

// ErrSkipRetry marks a handler error as permanent: the task fails without
// further attempts.
var ErrSkipRetry = errors.New("queue: skip retry")
