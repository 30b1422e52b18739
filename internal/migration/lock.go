package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Arbitrary but stable: every cartforge migrator build must agree on this
// key so at most one schema run happens per database at a time.
const schemaLockKey int64 = 5_917_246_083

// withSchemaLock runs fn while holding the session-scoped advisory lock.
// The lock is released on return; a dropped session releases it implicitly.
func withSchemaLock(ctx context.Context, db *sql.DB, log func(msg string), fn func(context.Context) error) error {
	var locked bool
	if err := db.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", schemaLockKey).Scan(&locked); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}
	if !locked {
		return errors.New("schema lock is held by another migrator")
	}

	defer func() {
		var released bool
		err := db.QueryRowContext(context.Background(), "SELECT pg_advisory_unlock($1)", schemaLockKey).Scan(&released)
		switch {
		case err != nil:
			log(fmt.Sprintf("release schema lock: %v", err))
		case !released:
			log("schema lock was no longer held by this session")
		}
	}()

	return fn(ctx)
}
