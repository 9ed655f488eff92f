package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// AcquireResourceLock takes a transaction-scoped advisory lock for the
// given resource key. The lock is released automatically at commit or
// rollback, so it spans the whole read-then-decide window of a
// lifecycle operation. Must be called inside a transaction.
func AcquireResourceLock(ctx context.Context, tx pgx.Tx, key string) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("platform/db: advisory lock %q: %w", key, err)
	}
	return nil
}

// ResourceLockKey builds the advisory lock key for a resource.
func ResourceLockKey(kind, id string) string {
	return kind + ":" + id
}
