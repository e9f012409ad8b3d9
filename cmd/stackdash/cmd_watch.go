package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// runWatchCommand polls the setup view until the stack is ready or the
// user interrupts.
//
// Renders from last-known-good data when a poll fails, so a dashboard
// restart shows a stale banner instead of clearing the screen.
func runWatchCommand(cmd *cobra.Command, args []string) {
	cfg := PollerConfig{}
	if watchInterval != "" {
		interval, err := time.ParseDuration(watchInterval)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid interval %q: %v\n", watchInterval, err)
			os.Exit(1)
		}
		cfg.SetupInterval = interval
	}

	poller := NewPoller(NewAPIClient(apiURL), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		cancel()
	}()

	complete := false
	poller.WatchSetup(ctx, func(snap SetupSnapshot, err error) {
		if snap.Readiness == nil {
			// No data has ever arrived.
			fmt.Fprintf(os.Stderr, "Waiting for dashboard at %s: %v\n", apiURL, err)
			return
		}

		clearScreen()
		renderReadiness(snap.Readiness, snap.Stale)
		fmt.Printf("\nLast update: %s  (refresh every %s, Ctrl-C to stop)\n",
			snap.FetchedAt.Format("15:04:05"), poller.Interval(ViewSetup))

		if snap.Readiness.IsComplete {
			complete = true
			cancel()
		}
	})

	if complete {
		fmt.Println("\nStack is ready.")
		return
	}
	if ctx.Err() != nil {
		os.Exit(1)
	}
}

// clearScreen resets the terminal between renders. No-op for pipes.
func clearScreen() {
	if !colorEnabled() {
		return
	}
	fmt.Print("\033[2J\033[H")
}
