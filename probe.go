package pgfailover

import (
	"context"
	"fmt"
)

// probeRecovery asks the connected server whether it is replaying from a
// primary. pg_is_in_recovery() returns true on a standby and false on a
// node that accepts writes.
//
// The probe fails closed: any error leaves the node classified read-only,
// because treating an ambiguous node as a write target risks a split-brain
// write.
func probeRecovery(ctx context.Context, conn Conn) (Role, error) {
	var inRecovery bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_is_in_recovery()").Scan(&inRecovery); err != nil {
		return RoleReadOnly, fmt.Errorf("failed to check recovery status: %w", err)
	}

	if inRecovery {
		return RoleReadOnly, nil
	}

	return RoleWritable, nil
}
