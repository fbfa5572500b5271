package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quailbyte/ruledup/internal/config"
	"github.com/quailbyte/ruledup/internal/debug"
	"github.com/quailbyte/ruledup/internal/detector"
	ruleduperrors "github.com/quailbyte/ruledup/internal/errors"
	"github.com/quailbyte/ruledup/internal/mcpserver"
	"github.com/quailbyte/ruledup/internal/ruledoc"
	"github.com/quailbyte/ruledup/internal/types"

	"github.com/urfave/cli/v2"
)

// serveCommand starts the MCP server on stdio, optionally watching the
// pool for changes.
func serveCommand(c *cli.Context) error {
	// Enable MCP mode to suppress all debug output on stdio
	debug.SetMCPMode(true)

	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	if c.Bool("watch") {
		cfg.Pool.WatchMode = true
	}

	det, err := detector.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create detector: %w", err)
	}
	defer det.Close()

	// Initial pool load. Scan failures do not prevent serving: the
	// load_rules tool can retry, and an empty pool still answers.
	rules, skipped, err := scanPool(cfg)
	if err != nil {
		debug.LogMCP("initial pool scan failed: %v\n", err)
	} else {
		det.LoadExistingRules(rules)
		debug.LogMCP("loaded %d rules from %s (%d skipped)\n", len(rules), cfg.Pool.Root, len(skipped))
	}

	if cfg.Pool.WatchMode {
		watcher, werr := newPoolWatcher(cfg, det)
		if werr != nil {
			debug.LogMCP("watch mode unavailable: %v\n", werr)
		} else if werr = watcher.Start(); werr != nil {
			debug.LogMCP("watch mode failed to start: %v\n", werr)
		} else {
			defer watcher.Stop()
		}
	}

	srv, err := mcpserver.NewServer(det, cfg)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		debug.LogMCP("starting MCP server with stdio transport\n")
		errChan <- srv.Start(ctx)
	}()

	// Wait for either server exit or a shutdown signal
	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		debug.LogMCP("received signal %v, shutting down\n", sig)
		cancel()

		shutdownTimer := time.NewTimer(2 * time.Second)
		defer shutdownTimer.Stop()

		select {
		case err := <-errChan:
			return ignoreCanceled(err)
		case <-shutdownTimer.C:
			// Cancellation alone does not unblock a pending stdio
			// read; closing stdin does
			os.Stdin.Close()

			forceTimer := time.NewTimer(500 * time.Millisecond)
			defer forceTimer.Stop()

			select {
			case err := <-errChan:
				return ignoreCanceled(err)
			case <-forceTimer.C:
				return nil
			}
		}
	}
}

// ignoreCanceled maps the expected shutdown error to a clean exit.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// newPoolWatcher wires debounced pool rescans into the running
// detector. A rescan with unparseable documents still swaps in the
// rules that did parse; only a failed walk keeps the previous pool.
func newPoolWatcher(cfg *config.Config, det *detector.Detector) (*ruledoc.Watcher, error) {
	debounce := time.Duration(cfg.Pool.WatchDebounceMs) * time.Millisecond
	reload := func(rules []types.Rule, err error) {
		if err != nil {
			var merr *ruleduperrors.MultiError
			if !errors.As(err, &merr) {
				debug.LogScan("watch reload failed: %v\n", err)
				return
			}
			debug.LogScan("watch reload skipped %d documents\n", len(merr.Errors))
		}
		det.LoadExistingRules(rules)
	}
	return ruledoc.NewWatcher(cfg.Pool.Root, ruledoc.OptionsFromConfig(cfg), debounce, reload)
}
