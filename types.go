package pgfailover

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Node describes one candidate database server. Nodes are immutable once
// handed to a Registry; their identity is their position in the node list,
// and list order is preference order.
type Node struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string

	// ConnectTimeout bounds a single connection attempt to this node.
	// Zero means the resolver-wide default.
	ConnectTimeout time.Duration
}

// Addr returns the host:port pair for logs and error messages.
func (n Node) Addr() string {
	return fmt.Sprintf("%s:%d", n.Host, n.Port)
}

// Role is the observed state of a connected node: either it currently
// accepts writes, or it is a standby replaying from a primary.
type Role int

const (
	RoleReadOnly Role = iota
	RoleWritable
)

func (r Role) String() string {
	if r == RoleWritable {
		return "writable"
	}
	return "read-only"
}

// Intent is the caller's declared requirement for an acquisition.
// Read is satisfied by any reachable node; Write requires a node whose
// role probe reports writable.
type Intent int

const (
	Read Intent = iota
	Write
)

func (i Intent) String() string {
	if i == Write {
		return "write"
	}
	return "read"
}

// Conn is the connection surface handed back by Acquire. It is owned
// exclusively by the caller, which must Close it on every exit path.
// *sql.DB satisfies it.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Close() error
}

// Dialer opens a connection to a single node. The returned Conn must be
// live (a failed dial returns an error, never a half-open handle).
type Dialer func(ctx context.Context, node Node) (Conn, error)

// Probe reports the role of a live connection. Implementations must fail
// closed: when the check itself errors, they report RoleReadOnly alongside
// the error so that an ambiguous node is never used as a write target.
type Probe func(ctx context.Context, conn Conn) (Role, error)
