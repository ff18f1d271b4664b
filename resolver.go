package pgfailover

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Resolver turns a caller's intent into a live connection to a suitable
// node, rotating through the registry on failure. Each Acquire opens a
// fresh connection; there is no pooling across acquisitions.
type Resolver struct {
	registry *Registry
	options  options
}

// NewResolver creates a Resolver over the given registry.
func NewResolver(registry *Registry, opts ...Option) *Resolver {
	var options = defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	var r = &Resolver{
		registry: registry,
		options:  options,
	}

	if r.options.dialer == nil {
		r.options.dialer = r.pqDial
	}

	return r
}

// Registry returns the registry this resolver sweeps.
func (r *Resolver) Registry() *Registry {
	return r.registry
}

// Acquire returns a live connection satisfying the intent, or a terminal
// *NoAvailableNodeError once every candidate has been tried exactly once.
//
// The sweep starts at the sticky index and wraps round-robin through all
// nodes. A read intent is satisfied by any node that accepts a connection;
// a write intent additionally requires the role probe to report writable,
// and a connection to a mismatched node is closed before moving on. The
// first success re-points the sticky index at the winning node, so a
// stable cluster costs one connect and at most one probe per call.
//
// The returned connection is owned by the caller, which must Close it on
// every exit path.
func (r *Resolver) Acquire(ctx context.Context, intent Intent) (Conn, error) {
	var (
		n        = r.registry.Size()
		start    = r.registry.Sticky()
		attempts []*NodeError
	)

	for attempt := 0; attempt < n; attempt++ {
		var (
			idx  = (start + attempt) % n
			node = r.registry.NodeAt(idx)
		)

		conn, err := r.options.dialer(ctx, node)
		if err != nil {
			r.options.logger.Warn("cannot connect to node",
				"index", idx,
				"addr", node.Addr(),
				"error", err)
			attempts = append(attempts, &NodeError{
				Index: idx,
				Addr:  node.Addr(),
				Err:   fmt.Errorf("%w: %w", ErrNodeUnreachable, err),
			})
			continue
		}

		if intent == Write {
			role, probeErr := r.options.probe(ctx, conn)
			if probeErr != nil {
				r.options.logger.Warn("role probe failed on node",
					"index", idx,
					"addr", node.Addr(),
					"error", probeErr)
				r.closeSkipped(conn, idx, node)
				attempts = append(attempts, &NodeError{
					Index: idx,
					Addr:  node.Addr(),
					Err:   fmt.Errorf("%w: %w", ErrProbeFailed, probeErr),
				})
				continue
			}

			if role != RoleWritable {
				r.options.logger.Warn("node is read-only, skipping",
					"index", idx,
					"addr", node.Addr())
				r.closeSkipped(conn, idx, node)
				attempts = append(attempts, &NodeError{
					Index: idx,
					Addr:  node.Addr(),
					Err:   ErrNotWritable,
				})
				continue
			}
		}

		r.registry.SetSticky(idx)
		r.options.logger.Info("connected to node",
			"index", idx,
			"addr", node.Addr(),
			"intent", intent)
		return conn, nil
	}

	return nil, &NoAvailableNodeError{
		Intent:   intent,
		Attempts: attempts,
	}
}

// closeSkipped releases a connection that will not be handed to the caller.
func (r *Resolver) closeSkipped(conn Conn, idx int, node Node) {
	if err := conn.Close(); err != nil {
		r.options.logger.Warn("failed to close skipped connection",
			"index", idx,
			"addr", node.Addr(),
			"error", err)
	}
}

// pqDial opens a single-connection *sql.DB to one node and verifies it with
// a ping. sql.Open alone is lazy, so the ping is what actually reaches the
// server within the node's connect timeout.
func (r *Resolver) pqDial(ctx context.Context, node Node) (Conn, error) {
	var timeout = node.ConnectTimeout
	if timeout <= 0 {
		timeout = r.options.connectTimeout
	}

	db, err := sql.Open("postgres", r.connString(node, timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}

	// One acquisition maps to one server connection.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping node: %w", err)
	}

	return db, nil
}

// connString builds a lib/pq key/value DSN for one node.
func (r *Resolver) connString(node Node, timeout time.Duration) string {
	var seconds = int(timeout / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s connect_timeout=%d application_name=%s",
		node.Host, node.Port, node.Database, node.User, node.Password,
		r.options.sslMode, seconds, r.options.applicationName,
	)
}
