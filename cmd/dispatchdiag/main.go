// Command dispatchdiag runs a dispatcher with its diagnostics endpoint for
// local inspection and demos. It loads an optional config file, watches it
// for changes, and serves the diagnostics API over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wowaddondeveloper/dispatch"
	"github.com/wowaddondeveloper/dispatch/internal/diagserver"
)

// slogAdapter bridges log/slog to the dispatcher's Logger interface.
type slogAdapter struct {
	logger *slog.Logger
}

func (l *slogAdapter) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *slogAdapter) Error(msg string, args ...any) { l.logger.Error(msg, args...) }
func (l *slogAdapter) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *slogAdapter) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "dispatchdiag:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a dispatcher config file (yaml, toml, or json)")
	addr := flag.String("addr", "", "diagnostics listen address (overrides config)")
	flag.Parse()

	logger := &slogAdapter{logger: slog.New(slog.NewTextHandler(os.Stderr, nil))}

	cfg := dispatch.DefaultConfig()
	if *configPath != "" {
		loaded, err := dispatch.LoadConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.Diagnostics.Addr = *addr
	}

	d, err := dispatch.NewFromConfig(cfg, dispatch.WithLogger(logger))
	if err != nil {
		return err
	}

	if *configPath != "" {
		watcher := dispatch.NewConfigWatcher(*configPath, d, logger)
		if err := watcher.Start(); err != nil {
			return err
		}
		defer watcher.Stop()
	}

	if cfg.FlushSchedule != "" {
		scheduler, err := dispatch.NewFlushScheduler(d, cfg.FlushSchedule, logger)
		if err != nil {
			return err
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	server := &http.Server{
		Addr:              cfg.Diagnostics.Addr,
		Handler:           diagserver.New(d, logger).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Diagnostics server listening", "addr", cfg.Diagnostics.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("Shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
