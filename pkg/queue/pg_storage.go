package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool and pgx.Tx used by PostgresStorage.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStorage keeps tasks in the queue_tasks table. Claims use
// FOR UPDATE SKIP LOCKED so concurrent workers never receive the same task.
type PostgresStorage struct {
	db  DB
	now func() time.Time
}

var (
	_ EnqueuerStorage  = (*PostgresStorage)(nil)
	_ WorkerStorage    = (*PostgresStorage)(nil)
	_ SchedulerStorage = (*PostgresStorage)(nil)
)

// NewPostgresStorage returns a storage on db.
func NewPostgresStorage(db DB) *PostgresStorage {
	return &PostgresStorage{db: db, now: time.Now}
}

const insertTask = `
INSERT INTO queue_tasks (id, queue, name, payload, status, attempts, max_attempts, scheduled_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// CreateTask inserts t as pending.
func (s *PostgresStorage) CreateTask(ctx context.Context, t *Task) error {
	var payload []byte
	if len(t.Payload) > 0 {
		payload = t.Payload
	}
	_, err := s.db.Exec(ctx, insertTask,
		t.ID, t.Queue, t.Name, payload, t.Status, t.Attempts, t.MaxAttempts,
		t.ScheduledAt, t.CreatedAt, t.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateTaskID
	}
	return err
}

const claimTask = `
UPDATE queue_tasks
SET status = 'processing', attempts = attempts + 1, locked_until = $3, locked_by = $2, updated_at = $4
WHERE id = (
	SELECT id FROM queue_tasks
	WHERE queue = ANY($1)
	  AND scheduled_at <= $4
	  AND (status = 'pending' OR (status = 'processing' AND locked_until < $4))
	ORDER BY scheduled_at, created_at
	LIMIT 1
	FOR UPDATE SKIP LOCKED
)
RETURNING id, queue, name, payload, status, attempts, max_attempts, scheduled_at,
	locked_until, locked_by, COALESCE(last_error, ''), created_at, updated_at`

// ClaimTask locks the oldest runnable task with FOR UPDATE SKIP LOCKED, so
// concurrent workers never claim the same row and never block each other.
func (s *PostgresStorage) ClaimTask(ctx context.Context, workerID uuid.UUID, queues []string, lock time.Duration) (*Task, error) {
	now := s.now()
	var t Task
	err := s.db.QueryRow(ctx, claimTask, queues, workerID, now.Add(lock), now).Scan(
		&t.ID, &t.Queue, &t.Name, &t.Payload, &t.Status, &t.Attempts, &t.MaxAttempts, &t.ScheduledAt,
		&t.LockedUntil, &t.LockedBy, &t.LastError, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoTaskToClaim
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const completeTask = `
UPDATE queue_tasks
SET status = 'completed', locked_until = NULL, locked_by = NULL, updated_at = $2
WHERE id = $1 AND status = 'processing'`

// CompleteTask marks the task completed.
func (s *PostgresStorage) CompleteTask(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, completeTask, id, s.now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotProcessing
	}
	return nil
}

const failTask = `
UPDATE queue_tasks
SET status = CASE WHEN $3::timestamptz IS NULL THEN 'failed' ELSE 'pending' END,
	scheduled_at = COALESCE($3, scheduled_at),
	last_error = $2, locked_until = NULL, locked_by = NULL, updated_at = $4
WHERE id = $1 AND status = 'processing'`

// FailTask records msg. A nil retryAt marks the task failed for good;
// otherwise it goes back to pending until retryAt.
func (s *PostgresStorage) FailTask(ctx context.Context, id uuid.UUID, msg string, retryAt *time.Time) error {
	tag, err := s.db.Exec(ctx, failTask, id, msg, retryAt, s.now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotProcessing
	}
	return nil
}

const hasPendingTask = `
SELECT EXISTS (SELECT 1 FROM queue_tasks WHERE name = $1 AND status IN ('pending', 'processing'))`

// HasPendingTask reports whether a task named name is pending or running.
// The scheduler uses it to avoid stacking periodic runs.
func (s *PostgresStorage) HasPendingTask(ctx context.Context, name string) (bool, error) {
	var ok bool
	err := s.db.QueryRow(ctx, hasPendingTask, name).Scan(&ok)
	return ok, err
}

const purgeTasks = `
DELETE FROM queue_tasks WHERE status IN ('completed', 'failed') AND updated_at < $1`

// PurgeFinished deletes completed and failed tasks last touched before
// the cutoff.
func (s *PostgresStorage) PurgeFinished(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, purgeTasks, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
