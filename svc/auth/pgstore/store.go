// Package pgstore implements auth.Store on PostgreSQL with pgx.
//
// Single-use guarantees come from conditional UPDATE ... RETURNING
// statements: under READ COMMITTED a second transaction touching the same
// row waits for the first and then re-evaluates the WHERE clause, so
// exactly one caller consumes a token or revokes a refresh token. The
// single-superuser rule is a partial unique index on users.role.
package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/authsvc/pkg/pg"
	"github.com/dmitrymomot/authsvc/svc/auth"
)

// DB is the subset of *pgxpool.Pool and pgx.Tx the queries need.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is an auth.Store backed by a pgx pool.
type Store struct {
	*queries
	pool *pgxpool.Pool
}

var (
	_ auth.Store   = (*Store)(nil)
	_ auth.Queries = (*queries)(nil)
)

// New returns a Store using pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{queries: &queries{db: pool}, pool: pool}
}

// WithTx runs fn in a READ COMMITTED transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, q auth.Queries) error) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, &queries{db: tx})
	})
	return mapErr(err)
}

// mapErr translates driver errors into the store errors of package auth.
// Errors already carrying an auth sentinel pass through unchanged.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case pg.IsNotFoundError(err):
		return auth.ErrRecordNotFound
	case pg.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %s", auth.ErrDuplicateRecord, pg.ConstraintName(err))
	case pg.IsForeignKeyViolationError(err):
		return fmt.Errorf("%w: %s", auth.ErrRecordNotFound, pg.ConstraintName(err))
	case pg.IsRetryable(err):
		return errors.Join(auth.ErrStoreUnavailable, err)
	}
	return err
}
