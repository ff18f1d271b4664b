package pgfailover

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

var (
	// ErrEmptyRegistry is returned when a Registry is created with no nodes.
	ErrEmptyRegistry = errors.New("registry must contain at least one node")

	// ErrNodeUnreachable marks a per-node failure to open a connection.
	ErrNodeUnreachable = errors.New("node unreachable")

	// ErrNotWritable marks a node that was reachable but in standby when a
	// writable node was required.
	ErrNotWritable = errors.New("node is read-only, writable node required")

	// ErrProbeFailed marks a node whose role check itself errored. It is
	// skipped exactly like a read-only node.
	ErrProbeFailed = errors.New("role probe failed")
)

// NodeError records why one specific candidate was skipped during an
// acquisition sweep. It wraps one of the per-node sentinels above.
type NodeError struct {
	Index int
	Addr  string
	Err   error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %d (%s): %v", e.Index, e.Addr, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// NoAvailableNodeError is the terminal acquisition error: every candidate
// was tried once and none satisfied the intent. Attempts holds the per-node
// reasons in the order they were swept.
type NoAvailableNodeError struct {
	Intent   Intent
	Attempts []*NodeError
}

func (e *NoAvailableNodeError) Error() string {
	var agg *multierror.Error
	for _, attempt := range e.Attempts {
		agg = multierror.Append(agg, attempt)
	}

	return fmt.Sprintf("no node available for %s after %d attempts: %v",
		e.Intent, len(e.Attempts), agg.ErrorOrNil())
}

// Unwrap exposes the per-node failures so errors.Is can match the
// per-node sentinels through the aggregate.
func (e *NoAvailableNodeError) Unwrap() []error {
	var errs = make([]error, len(e.Attempts))
	for i, attempt := range e.Attempts {
		errs[i] = attempt
	}
	return errs
}
