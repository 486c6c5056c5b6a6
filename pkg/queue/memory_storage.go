package queue

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage keeps tasks in process. It serves tests and single-instance
// development setups; expired locks are reclaimed at claim time.
type MemoryStorage struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*Task
	now   func() time.Time
}

var (
	_ EnqueuerStorage  = (*MemoryStorage)(nil)
	_ WorkerStorage    = (*MemoryStorage)(nil)
	_ SchedulerStorage = (*MemoryStorage)(nil)
)

// NewMemoryStorage returns an empty MemoryStorage. now defaults to
// time.Now.
func NewMemoryStorage(now func() time.Time) *MemoryStorage {
	if now == nil {
		now = time.Now
	}
	return &MemoryStorage{tasks: map[uuid.UUID]*Task{}, now: now}
}

// CreateTask stores a copy of task.
func (s *MemoryStorage) CreateTask(_ context.Context, task *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[task.ID]; ok {
		return ErrDuplicateTaskID
	}
	cp := *task
	s.tasks[task.ID] = &cp
	return nil
}

// ClaimTask locks the earliest due task of queues for workerID.
func (s *MemoryStorage) ClaimTask(_ context.Context, workerID uuid.UUID, queues []string, lock time.Duration) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var best *Task
	for _, t := range s.tasks {
		if !slices.Contains(queues, t.Queue) || !t.Claimable(now) {
			continue
		}
		if best == nil || t.ScheduledAt.Before(best.ScheduledAt) ||
			(t.ScheduledAt.Equal(best.ScheduledAt) && t.CreatedAt.Before(best.CreatedAt)) {
			best = t
		}
	}
	if best == nil {
		return nil, ErrNoTaskToClaim
	}

	until := now.Add(lock)
	best.Status = TaskStatusProcessing
	best.Attempts++
	best.LockedUntil = &until
	best.LockedBy = &workerID
	best.UpdatedAt = now
	cp := *best
	return &cp, nil
}

// CompleteTask marks the task completed.
func (s *MemoryStorage) CompleteTask(_ context.Context, id uuid.UUID) error {
	return s.update(id, func(t *Task, now time.Time) {
		t.Status = TaskStatusCompleted
		t.LockedUntil, t.LockedBy = nil, nil
		t.UpdatedAt = now
	})
}

// FailTask mirrors PostgresStorage.FailTask.
func (s *MemoryStorage) FailTask(_ context.Context, id uuid.UUID, msg string, retryAt *time.Time) error {
	return s.update(id, func(t *Task, now time.Time) {
		t.LastError = msg
		t.LockedUntil, t.LockedBy = nil, nil
		t.UpdatedAt = now
		if retryAt == nil {
			t.Status = TaskStatusFailed
			return
		}
		t.Status = TaskStatusPending
		t.ScheduledAt = *retryAt
	})
}

// HasPendingTask mirrors PostgresStorage.HasPendingTask.
func (s *MemoryStorage) HasPendingTask(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.Name == name && (t.Status == TaskStatusPending || t.Status == TaskStatusProcessing) {
			return true, nil
		}
	}
	return false, nil
}

// PurgeFinished deletes completed and failed tasks last touched before
// the cutoff.
func (s *MemoryStorage) PurgeFinished(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, t := range s.tasks {
		if (t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed) && t.UpdatedAt.Before(before) {
			delete(s.tasks, id)
			n++
		}
	}
	return n, nil
}

// Tasks returns a snapshot of all tasks ordered by creation time.
func (s *MemoryStorage) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, *t)
	}
	slices.SortFunc(out, func(a, b Task) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out
}

func (s *MemoryStorage) update(id uuid.UUID, fn func(t *Task, now time.Time)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	if t.Status != TaskStatusProcessing {
		return ErrTaskNotProcessing
	}
	fn(t, s.now())
	return nil
}
