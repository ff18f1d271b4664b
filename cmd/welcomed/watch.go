package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	pgfailover "go-pgfailover"

	"github.com/eiannone/keyboard"
	"github.com/spf13/cobra"
)

// runWatch probes every node once a second and draws a role table, with
// keys to trigger acquisitions against the live cluster.
func runWatch(cmd *cobra.Command, args []string) error {
	var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	resolver, err := newResolver(logger)
	if err != nil {
		return err
	}

	var (
		ctx      = context.Background()
		monitor  = pgfailover.NewMonitor(resolver, time.Minute)
		registry = resolver.Registry()
		lastMsg  = "press a key"
	)

	if err := keyboard.Open(); err != nil {
		return fmt.Errorf("failed to initialize keyboard: %w", err)
	}
	defer keyboard.Close()

	var keyCh = make(chan rune)
	go func() {
		for {
			char, _, err := keyboard.GetKey()
			if err != nil {
				return
			}
			keyCh <- char
		}
	}()

	var sigCh = make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	var ticker = time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	printNodes(ctx, monitor, registry, lastMsg)

	for {
		select {
		case <-ticker.C:
			printNodes(ctx, monitor, registry, lastMsg)
		case key := <-keyCh:
			switch key {
			case 'w', 'W':
				lastMsg = tryAcquire(ctx, resolver, pgfailover.Write)
			case 'r', 'R':
				lastMsg = tryAcquire(ctx, resolver, pgfailover.Read)
			case 'q', 'Q':
				fmt.Printf("\nBye.\n")
				return nil
			}
			printNodes(ctx, monitor, registry, lastMsg)
		case <-sigCh:
			return nil
		}
	}
}

// tryAcquire performs one acquisition and reports the outcome.
func tryAcquire(ctx context.Context, resolver *pgfailover.Resolver, intent pgfailover.Intent) string {
	conn, err := resolver.Acquire(ctx, intent)
	if err != nil {
		return fmt.Sprintf("%s acquisition FAILED: %v", intent, err)
	}
	defer conn.Close()

	var idx = resolver.Registry().Sticky()
	return fmt.Sprintf("%s acquisition OK via node %d (%s)",
		intent, idx+1, resolver.Registry().NodeAt(idx).Addr())
}

func printNodes(ctx context.Context, monitor *pgfailover.Monitor, registry *pgfailover.Registry, lastMsg string) {
	fmt.Print("\033[2J\033[H") // Clear screen and move cursor to top

	fmt.Printf("Cluster nodes (sticky: %d)\n", registry.Sticky()+1)
	fmt.Println("┌──────────────────────────────────────────────┐")

	for i := 0; i < registry.Size(); i++ {
		var (
			node   = registry.NodeAt(i)
			state  string
			marker = " "
		)

		role, err := monitor.ProbeNode(ctx, node)
		switch {
		case err != nil:
			state = "unreachable"
		case role == pgfailover.RoleWritable:
			state = "primary (writable)"
		default:
			state = "standby (read-only)"
		}

		if i == registry.Sticky() {
			marker = "●"
		}

		fmt.Printf("│ %s DB%-2d %-21s %-18s\n", marker, i+1, node.Addr(), state)
	}

	fmt.Println("└──────────────────────────────────────────────┘")
	fmt.Printf("\n%s\n", lastMsg)
	fmt.Printf("\nControls:\n")
	fmt.Printf("  [w] Acquire write connection\n")
	fmt.Printf("  [r] Acquire read connection\n")
	fmt.Printf("  [q] Quit\n")
}
