package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gosuper/gosuperd/internal/config"
	"github.com/gosuper/gosuperd/internal/logger"
	"github.com/gosuper/gosuperd/internal/supervisor"
)

// shutdownTimeout bounds Monitor.Stop + Registry.Shutdown on the way out:
// the supervisor proceeds to exit anyway once it elapses.
const shutdownTimeout = 3 * time.Second

var watchMode bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the supervisor daemon",
	Run:   runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&watchMode, "watch", false, "reload automatically when the config file changes")
}

func runServe(cmd *cobra.Command, args []string) {
	path := configPath()
	log := logger.New(logLevel, "text")

	doc, err := config.Load(path, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	registry := supervisor.NewRegistry(doc, path, log)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("gosuperd starting", "pid", os.Getpid(), "config", path, "programs", len(doc.Programs))

	registry.Autostart(ctx)

	monitor := supervisor.NewMonitor(registry, log)
	monitor.Start(ctx)

	var cw *configWatcher
	if watchMode {
		cw, err = newConfigWatcher(registry, log)
		if err != nil {
			log.Error("failed to create config watcher, continuing without --watch", "error", err)
		} else if err := cw.start(ctx); err != nil {
			log.Error("failed to start config watcher, continuing without --watch", "error", err)
			cw = nil
		}
	}

	// Runs Monitor.Stop then Registry.Shutdown, each bounded by
	// shutdownTimeout, and proceeds to exit regardless of whether they
	// finished in time, per §5.
	var shutdownOnce sync.Once
	shutdown := func(reason string) {
		shutdownOnce.Do(func() {
			log.Info("shutting down", "reason", reason)
			if cw != nil {
				cw.stop()
			}

			stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			monitor.Stop(stopCtx)
			stopCancel()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			registry.Shutdown(shutdownCtx)
			shutdownCancel()

			cancel()
			log.Info("shutdown complete")
		})
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGHUP)
	go func() {
		for sig := range sigCh {
			switch sig {
			case syscall.SIGHUP:
				log.Info("received SIGHUP, reloading configuration")
				changed, err := registry.Reload(ctx, "")
				if err != nil {
					log.Error("configuration reload failed", "error", err)
					continue
				}
				if changed {
					log.Info("configuration reloaded")
				} else {
					log.Info("no configuration changes detected")
				}
			case syscall.SIGINT:
				shutdown("SIGINT")
				os.Exit(0)
			}
		}
	}()

	runShell(registry, log, func() { shutdown("shell exit") })
}
