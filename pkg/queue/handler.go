package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Handler processes tasks with a given name.
type Handler interface {
	Name() string
	Handle(ctx context.Context, payload json.RawMessage) error
}

// TaskName returns the name tasks carrying a T payload are stored under.
func TaskName[T any]() string {
	var v T
	return typeName(v)
}

func typeName(v any) string {
	return strings.TrimLeft(fmt.Sprintf("%T", v), "*")
}

// NewTaskHandler returns a handler for tasks enqueued with a T payload.
// Payloads that do not decode fail permanently.
func NewTaskHandler[T any](fn func(ctx context.Context, payload T) error) Handler {
	return &typedHandler[T]{name: TaskName[T](), fn: fn}
}

type typedHandler[T any] struct {
	name string
	fn   func(ctx context.Context, payload T) error
}

func (h *typedHandler[T]) Name() string { return h.name }

func (h *typedHandler[T]) Handle(ctx context.Context, payload json.RawMessage) error {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return errors.Join(ErrSkipRetry, ErrPayloadUnmarshal, err)
	}
	return h.fn(ctx, v)
}

// NewPeriodicTaskHandler returns a handler for payload-less tasks created
// by a Scheduler under name.
func NewPeriodicTaskHandler(name string, fn func(ctx context.Context) error) Handler {
	return &periodicHandler{name: name, fn: fn}
}

type periodicHandler struct {
	name string
	fn   func(ctx context.Context) error
}

func (h *periodicHandler) Name() string { return h.name }

func (h *periodicHandler) Handle(ctx context.Context, _ json.RawMessage) error {
	return h.fn(ctx)
}
