package pgfailover

import (
	"io"
	"log/slog"
	"time"
)

// options configures the Resolver behavior (internal only).
type options struct {
	connectTimeout  time.Duration
	applicationName string
	sslMode         string
	dialer          Dialer
	probe           Probe
	logger          *slog.Logger
}

// defaultOptions returns sensible defaults.
func defaultOptions() options {
	return options{
		connectTimeout:  3 * time.Second,
		applicationName: "pgfailover",
		sslMode:         "disable",
		probe:           probeRecovery,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Option is a functional option for configuring a Resolver.
type Option func(*options)

// WithConnectTimeout sets the default per-node connection timeout, used for
// every node that does not carry its own.
func WithConnectTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.connectTimeout = timeout
		}
	}
}

// WithApplicationName sets the application_name reported to the server,
// which makes the client easy to spot in server-side logs.
func WithApplicationName(name string) Option {
	return func(o *options) {
		o.applicationName = name
	}
}

// WithSSLMode sets the sslmode connection parameter.
// DEFAULT: disable
func WithSSLMode(mode string) Option {
	return func(o *options) {
		o.sslMode = mode
	}
}

// WithDialer replaces the default lib/pq dialer. Mainly useful for tests
// and for drivers with non-standard connection setup.
func WithDialer(dialer Dialer) Option {
	return func(o *options) {
		if dialer != nil {
			o.dialer = dialer
		}
	}
}

// WithProbe replaces the default pg_is_in_recovery role probe.
func WithProbe(probe Probe) Option {
	return func(o *options) {
		if probe != nil {
			o.probe = probe
		}
	}
}

// WithLogger sets the logger for the resolver.
// If the logger is nil, the resolver will use a no-op logger.
// DEFAULT: A no-op logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
			return
		}

		o.logger = logger
	}
}
