package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// WithLocks implements dcb.Locker: it opens a transaction, acquires
// pg_advisory_xact_lock(hashtext(key)) for every key (already sorted by the
// caller in command.go to avoid deadlocks between two commands naming the
// same keys in different orders), runs fn, and commits. Advisory locks
// acquired this way are released automatically at transaction end.
func (r *Recorder) WithLocks(ctx context.Context, keys []string, fn func(ctx context.Context) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return classifyError("WithLocks", err)
	}
	defer tx.Rollback(ctx)

	for _, key := range keys {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", key); err != nil {
			return classifyError("WithLocks", err)
		}
	}

	if err := fn(ctx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return classifyError("WithLocks", err)
	}
	return nil
}
