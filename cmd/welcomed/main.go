package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	pgfailover "go-pgfailover"
	"go-pgfailover/content"

	"github.com/spf13/cobra"
)

var (
	nodeAddrs       []string
	dbName          string
	dbUser          string
	dbPassword      string
	sslMode         string
	connectTimeout  time.Duration
	listenAddr      string
	uploadDir       string
	monitorInterval time.Duration
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "welcomed",
		Short: "Welcome service backed by a primary/replica PostgreSQL cluster",
		Long: `Welcomed serves quotes with uploaded images, storing rows in whichever
cluster node currently accepts writes and reading from any reachable node.
Node failover is transparent: writes probe for the primary, reads take the
first node that answers.`,
	}

	rootCmd.PersistentFlags().StringArrayVar(&nodeAddrs, "node", []string{"localhost:5432"}, "Database node as host:port (repeat per node, preference order)")
	rootCmd.PersistentFlags().StringVar(&dbName, "dbname", "welcome_app", "Database name")
	rootCmd.PersistentFlags().StringVar(&dbUser, "user", "postgres", "Database user")
	rootCmd.PersistentFlags().StringVar(&dbPassword, "password", "postgres", "Database password")
	rootCmd.PersistentFlags().StringVar(&sslMode, "sslmode", "disable", "PostgreSQL sslmode parameter")
	rootCmd.PersistentFlags().DurationVar(&connectTimeout, "connect-timeout", 3*time.Second, "Per-node connection timeout")

	var serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&listenAddr, "listen", ":5000", "HTTP listen address")
	serveCmd.Flags().StringVar(&uploadDir, "upload-dir", "/mnt/shared/images", "Directory for uploaded images")
	serveCmd.Flags().DurationVar(&monitorInterval, "monitor-interval", 0, "Background cluster sweep interval (0 disables)")

	var watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Interactively watch cluster node roles",
		RunE:  runWatch,
	}

	rootCmd.AddCommand(serveCmd, watchCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newResolver builds the registry and resolver from the shared flags.
func newResolver(logger *slog.Logger) (*pgfailover.Resolver, error) {
	var nodes = make([]pgfailover.Node, 0, len(nodeAddrs))
	for _, addr := range nodeAddrs {
		host, portStr, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid --node %q: %w", addr, err)
		}

		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid port in --node %q: %w", addr, err)
		}

		nodes = append(nodes, pgfailover.Node{
			Host:     host,
			Port:     port,
			Database: dbName,
			User:     dbUser,
			Password: dbPassword,
		})
	}

	registry, err := pgfailover.NewRegistry(nodes)
	if err != nil {
		return nil, err
	}

	return pgfailover.NewResolver(registry,
		pgfailover.WithConnectTimeout(connectTimeout),
		pgfailover.WithSSLMode(sslMode),
		pgfailover.WithApplicationName("welcomed"),
		pgfailover.WithLogger(logger),
	), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	resolver, err := newResolver(logger)
	if err != nil {
		return err
	}

	files, err := content.NewFileStore(uploadDir)
	if err != nil {
		// Fall back to a local directory when the shared mount is absent.
		logger.Warn("failed to prepare upload directory, falling back to ./uploads", "error", err)
		if files, err = content.NewFileStore("./uploads"); err != nil {
			return fmt.Errorf("failed to prepare fallback upload directory: %w", err)
		}
	}
	logger.Info("using upload directory", "dir", files.Dir())

	// Ensure the schema exists. Failure is non-fatal: the cluster may
	// simply not be ready yet, and every data operation surfaces its own
	// error if the table is truly missing.
	bootstrapCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := content.Migrate(bootstrapCtx, resolver); err != nil {
		logger.Warn("schema bootstrap failed, continuing", "error", err)
	} else {
		logger.Info("database initialized, content table ensured")
	}
	cancel()

	if monitorInterval > 0 {
		var monitor = pgfailover.NewMonitor(resolver, monitorInterval)
		if err := monitor.Start(); err != nil {
			return fmt.Errorf("failed to start cluster monitor: %w", err)
		}
		defer monitor.Stop()
		logger.Info("cluster monitor running", "interval", monitorInterval)
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	var (
		store  = content.NewStore(resolver, files, logger)
		server = newServer(store, resolver.Registry(), files.Dir(), hostname, logger)
		srv    = &http.Server{
			Addr:    listenAddr,
			Handler: server.routes(),
		}
	)

	var errCh = make(chan error, 1)
	go func() {
		logger.Info("serving HTTP", "addr", listenAddr, "hostname", hostname)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	var sigCh = make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down cleanly: %w", err)
	}

	return nil
}
