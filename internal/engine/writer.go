package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"lovelist/internal/logging"
	"lovelist/internal/model"
	"lovelist/internal/storage"
)

const (
	DefaultQuietInterval  = 50 * time.Millisecond
	defaultEnqueueTimeout = 5 * time.Second
)

// ErrClosed is returned by Save once the writer has shut down.
var ErrClosed = errors.New("persistence writer is closed")

type WriterCfg struct {
	Path           string
	QuietInterval  time.Duration
	EnqueueTimeout time.Duration
}

// Metrics receives persistence events. A nil Metrics disables collection.
type Metrics interface {
	ObserveWrite(duration time.Duration, bytes int, err error)
	ObserveCoalesced()
}

// WriterStats is a point-in-time copy of the writer counters.
type WriterStats struct {
	Writes    int64
	Failures  int64
	Coalesced int64
}

type saveRequest struct {
	data []byte
	done chan error
}

/*
Writer coalesces bursts of Save calls into one disk write.

A single goroutine owns the pending snapshot, the quiet-interval timer and
the list of callers waiting on the next write:
  - every Save replaces the pending snapshot and restarts the timer;
  - when the timer fires the newest snapshot is written once and every
    waiter collected since the previous write receives the same result;
  - on Close a pending snapshot is written immediately.
*/
type Writer struct {
	cfg      WriterCfg
	logger   *slog.Logger
	metrics  Metrics
	requests chan saveRequest
	cancel   context.CancelFunc
	stopped  chan struct{}

	writes    atomic.Int64
	failures  atomic.Int64
	coalesced atomic.Int64
}

func NewWriter(ctx context.Context, cfg WriterCfg, logger *slog.Logger, metrics Metrics) (*Writer, error) {
	if cfg.Path == "" {
		return nil, errors.New("writer path is required")
	}
	if cfg.QuietInterval <= 0 {
		cfg.QuietInterval = DefaultQuietInterval
	}
	if cfg.EnqueueTimeout <= 0 {
		cfg.EnqueueTimeout = defaultEnqueueTimeout
	}
	if err := storage.EnsureDir(filepath.Dir(cfg.Path)); err != nil {
		return nil, err
	}

	w := &Writer{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "engine"),
		metrics:  metrics,
		requests: make(chan saveRequest),
		stopped:  make(chan struct{}),
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	go func() {
		defer close(w.stopped)
		w.run(runCtx)
	}()
	return w, nil
}

// Path returns the data file location.
func (w *Writer) Path() string {
	return w.cfg.Path
}

// Load reads the persisted items. A missing, corrupt or non-array file yields
// an empty collection; only directory and read failures are returned.
func (w *Writer) Load() ([]model.Item, error) {
	if err := storage.EnsureDir(filepath.Dir(w.cfg.Path)); err != nil {
		return nil, err
	}

	data, err := storage.ReadFile(w.cfg.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []model.Item{}, nil
		}
		return nil, fmt.Errorf("load %s: %w", w.cfg.Path, err)
	}

	var items []model.Item
	if err := json.Unmarshal(data, &items); err != nil {
		w.logger.Warn("data file is not a valid item list; starting empty",
			logging.Args(logging.Event("load_malformed"), logging.String("path", w.cfg.Path), logging.Error(err))...)
		return []model.Item{}, nil
	}
	if items == nil {
		items = []model.Item{}
	}
	w.logger.Debug("loaded items", logging.Args(logging.Int("count", len(items)), logging.String("path", w.cfg.Path))...)
	return items, nil
}

// Save schedules items for writing and waits until that write, or a later
// one that superseded it, has completed.
func (w *Writer) Save(ctx context.Context, items []model.Item) error {
	done := w.SaveAsync(items)
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SaveAsync is Save without waiting. The returned channel yields exactly one value.
func (w *Writer) SaveAsync(items []model.Item) <-chan error {
	done := make(chan error, 1)
	if items == nil {
		items = []model.Item{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		done <- fmt.Errorf("encode items: %w", err)
		return done
	}

	select {
	case w.requests <- saveRequest{data: data, done: done}:
	case <-w.stopped:
		done <- ErrClosed
	case <-time.After(w.cfg.EnqueueTimeout):
		done <- errors.New("timeout after waiting for save to be scheduled")
	}
	return done
}

// Close stops the writer. A pending snapshot is written before Close returns.
func (w *Writer) Close(ctx context.Context) error {
	w.cancel()
	select {
	case <-w.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) Stats() WriterStats {
	return WriterStats{
		Writes:    w.writes.Load(),
		Failures:  w.failures.Load(),
		Coalesced: w.coalesced.Load(),
	}
}

func (w *Writer) run(ctx context.Context) {
	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending []byte
		waiters []chan error
	)

	for {
		select {
		case req := <-w.requests:
			if pending != nil {
				w.coalesced.Add(1)
				if w.metrics != nil {
					w.metrics.ObserveCoalesced()
				}
			}
			pending = req.data
			waiters = append(waiters, req.done)
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.cfg.QuietInterval)
			timerC = timer.C

		case <-timerC:
			timerC = nil
			w.flush(pending, waiters)
			pending, waiters = nil, nil

		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			if pending != nil {
				w.logger.Info("writer shutting down - flushing pending save")
				w.flush(pending, waiters)
			}
			return
		}
	}
}

func (w *Writer) flush(data []byte, waiters []chan error) {
	start := time.Now()
	err := storage.EnsureDir(filepath.Dir(w.cfg.Path))
	if err == nil {
		err = storage.WriteFileAtomic(w.cfg.Path, data)
	}
	elapsed := time.Since(start)

	if err != nil {
		err = fmt.Errorf("persist %s: %w", w.cfg.Path, err)
		w.failures.Add(1)
		w.logger.Error("persist items failed",
			logging.Args(logging.Event("persist_failed"), logging.Error(err), logging.Int("waiters", len(waiters)))...)
	} else {
		w.writes.Add(1)
		w.logger.Debug("persisted items",
			logging.Args(logging.Int("bytes", len(data)), logging.Int("waiters", len(waiters)), logging.Duration("elapsed", elapsed))...)
	}
	if w.metrics != nil {
		w.metrics.ObserveWrite(elapsed, len(data), err)
	}

	for _, done := range waiters {
		done <- err
	}
}
