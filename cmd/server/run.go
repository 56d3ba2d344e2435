package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"lovelist/internal/api"
	"lovelist/internal/config"
	"lovelist/internal/engine"
	"lovelist/internal/logging"
	"lovelist/internal/metrics"
	"lovelist/internal/storage"
	"lovelist/internal/store"
)

const shutdownTimeout = 10 * time.Second

// run serves the API until ctx is done, then drains requests and flushes
// the pending snapshot. ready, when set, receives the bound address.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, ready func(addr string)) error {
	if err := storage.EnsureDir(cfg.Server.DataDir); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	lock, err := storage.LockDir(cfg.Server.DataDir)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	reg := metrics.New()

	writer, err := engine.NewWriter(context.Background(), engine.WriterCfg{
		Path:          cfg.DataFile(),
		QuietInterval: cfg.Server.Debounce.Duration,
	}, logger, reg.Persist)
	if err != nil {
		return fmt.Errorf("start writer: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := writer.Close(closeCtx); err != nil {
			logger.Error("writer did not stop cleanly", logging.Args(logging.Error(err))...)
		}
	}()

	items, err := store.Open(writer, store.Options{SyncWrites: cfg.Server.SyncWrites, Logger: logger})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler: api.NewServer(api.Deps{
			Store:          items,
			Logger:         logger,
			Metrics:        reg,
			RequestTimeout: cfg.Server.RequestTimeout.Duration,
		}),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout.Duration,
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Server.Addr, err)
	}
	logger.Info("starting server",
		logging.Args(logging.String("addr", ln.Addr().String()), logging.String("data_file", writer.Path()),
			logging.Duration("debounce", cfg.Server.Debounce.Duration), logging.Bool("sync_writes", cfg.Server.SyncWrites))...)
	if ready != nil {
		ready(ln.Addr().String())
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
