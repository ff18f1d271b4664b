package pgfailover

import (
	"context"
	"fmt"
	"time"
)

// Monitor periodically sweeps the registry in the background, logging role
// transitions and re-pointing the sticky hint at a writable node so the
// next acquisition after a failover starts in the right place.
//
// The monitor only warms the hint. Acquisitions still re-probe the role on
// every write, so a stale sweep can never produce a wrong write target —
// at worst it costs one extra failed attempt.
type Monitor struct {
	resolver *Resolver
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewMonitor creates a monitor over the resolver's registry. The interval
// controls how often the cluster is swept.
func NewMonitor(resolver *Resolver, interval time.Duration) *Monitor {
	return &Monitor{
		resolver: resolver,
		interval: interval,
	}
}

// Start launches the background sweep worker. The worker runs on its own
// context and keeps going until Stop is called.
func (m *Monitor) Start() error {
	if m.done != nil {
		return fmt.Errorf("monitor already started")
	}
	if m.interval <= 0 {
		return fmt.Errorf("sweep interval must be greater than 0")
	}

	var ctx context.Context
	ctx, m.cancel = context.WithCancel(context.Background())
	m.done = make(chan struct{})

	go m.sweepWorker(ctx)

	return nil
}

// Stop cancels the background worker and waits for it to exit.
func (m *Monitor) Stop() {
	if m.cancel == nil {
		return
	}

	m.cancel()
	<-m.done
	m.cancel = nil
	m.done = nil
}

// sweepWorker periodically probes every node.
func (m *Monitor) sweepWorker(ctx context.Context) {
	defer close(m.done)

	var ticker = time.NewTicker(m.interval)
	defer ticker.Stop()

	// Run immediately on start, then periodically.
	m.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

// sweep dials and probes each node once, then points the sticky hint at
// the first writable node found, preferring the current hint when it is
// still writable.
func (m *Monitor) sweep(ctx context.Context) {
	var (
		registry = m.resolver.registry
		logger   = m.resolver.options.logger
		n        = registry.Size()
		start    = registry.Sticky()
	)

	for attempt := 0; attempt < n; attempt++ {
		var (
			idx  = (start + attempt) % n
			node = registry.NodeAt(idx)
		)

		role, err := m.probeNode(ctx, node)
		if err != nil {
			logger.Warn("sweep: node unreachable",
				"index", idx,
				"addr", node.Addr(),
				"error", err)
			continue
		}

		logger.Debug("sweep: probed node",
			"index", idx,
			"addr", node.Addr(),
			"role", role)

		if role == RoleWritable {
			if idx != start {
				logger.Info("sweep: writable node moved, updating hint",
					"from", start,
					"to", idx,
					"addr", node.Addr())
			}
			registry.SetSticky(idx)
			return
		}
	}

	logger.Warn("sweep: no writable node found", "nodes", n)
}

// ProbeNode dials one node and reports its current role. Used by the sweep
// and by interactive tooling that wants a per-node view of the cluster.
func (m *Monitor) ProbeNode(ctx context.Context, node Node) (Role, error) {
	return m.probeNode(ctx, node)
}

func (m *Monitor) probeNode(ctx context.Context, node Node) (Role, error) {
	conn, err := m.resolver.options.dialer(ctx, node)
	if err != nil {
		return RoleReadOnly, fmt.Errorf("failed to dial node %s: %w", node.Addr(), err)
	}
	defer conn.Close()

	role, err := m.resolver.options.probe(ctx, conn)
	if err != nil {
		// Fail closed, same as acquisition.
		return RoleReadOnly, nil
	}

	return role, nil
}
