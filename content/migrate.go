package content

import (
	"context"
	"fmt"

	pgfailover "go-pgfailover"
)

// Acquirer hands out connections matching an intent. The failover Resolver
// is the production implementation.
type Acquirer interface {
	Acquire(ctx context.Context, intent pgfailover.Intent) (pgfailover.Conn, error)
}

var createContentTableSQL = `
CREATE TABLE IF NOT EXISTS content (
    id              SERIAL        PRIMARY KEY,
    quote           TEXT          NOT NULL,
    image_filename  TEXT          NOT NULL,
    created_at      TIMESTAMPTZ   NOT NULL DEFAULT now()
);`

// Migrate ensures the content table exists. It is idempotent, so callers
// can run it on every start; a failure here is worth logging but does not
// have to be fatal, since every later statement surfaces its own error if
// the table is truly missing.
func Migrate(ctx context.Context, db Acquirer) error {
	conn, err := db.Acquire(ctx, pgfailover.Write)
	if err != nil {
		return fmt.Errorf("failed to acquire writable connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, createContentTableSQL); err != nil {
		return fmt.Errorf("failed to create content table: %w", err)
	}

	return nil
}
