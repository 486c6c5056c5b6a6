// Package pg bootstraps PostgreSQL access on top of pgx/v5.
//
// Connect opens a *pgxpool.Pool from Config, retrying with exponential
// backoff until the database answers a ping. Migrate applies goose
// migrations from an fs.FS, usually an embedded directory, and Healthcheck
// returns a readiness probe.
//
// The error helpers classify pgx errors: IsDuplicateKeyError and
// ConstraintName for unique violations, IsNotFoundError for empty results
// and IsRetryable for transient failures such as dropped connections,
// serialization conflicts and deadlocks.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//	if err := pg.Migrate(ctx, pool, migrations.FS, cfg, log); err != nil {
//		return err
//	}
package pg
