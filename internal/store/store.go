// Package store owns the authoritative in-memory item list of a server
// process and hands a snapshot to the persistence writer after every mutation.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"lovelist/internal/logging"
	"lovelist/internal/model"
)

// Persister is the durable side of the store. *engine.Writer implements it.
type Persister interface {
	Load() ([]model.Item, error)
	SaveAsync(items []model.Item) <-chan error
	Path() string
}

type Options struct {
	// SyncWrites makes every mutation wait for its snapshot to reach disk.
	SyncWrites bool
	Logger     *slog.Logger
	Now        func() time.Time
}

type Store struct {
	mu        sync.Mutex
	items     []model.Item
	nextID    int64
	persister Persister
	opts      Options
	logger    *slog.Logger
}

// Patch carries the optional fields of an update. Nil means unchanged.
type Patch struct {
	Text *string
	Done *bool
}

// Open loads the persisted items and continues id allocation after the highest id.
func Open(p Persister, opts Options) (*Store, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	items, err := p.Load()
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}

	s := &Store{
		items:     items,
		nextID:    1,
		persister: p,
		opts:      opts,
		logger:    logging.NewComponentLogger(opts.Logger, "store"),
	}
	for _, item := range items {
		if item.ID >= s.nextID {
			s.nextID = item.ID + 1
		}
	}
	s.logger.Info("store opened", logging.Args(logging.Int("items", len(items)), logging.String("path", p.Path()))...)
	return s, nil
}

func (s *Store) DataPath() string {
	return s.persister.Path()
}

func (s *Store) List(filter model.Filter) []model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Item, 0, len(s.items))
	for _, item := range s.items {
		if filter.Matches(item) {
			out = append(out, item)
		}
	}
	return out
}

func (s *Store) Get(id int64) (model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx == -1 {
		return model.Item{}, ErrNotFound
	}
	return s.items[idx], nil
}

func (s *Store) Create(ctx context.Context, text string) (model.Item, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Item{}, &ValidationError{Field: "text"}
	}

	s.mu.Lock()
	item := model.Item{
		ID:        s.nextID,
		Text:      text,
		Done:      false,
		CreatedAt: s.opts.Now().UnixMilli(),
	}
	s.nextID++
	s.items = append(s.items, item)
	done := s.commitLocked()
	s.mu.Unlock()

	return item, s.await(ctx, done)
}

// Update reports ErrNotFound before validating the patch.
func (s *Store) Update(ctx context.Context, id int64, patch Patch) (model.Item, error) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx == -1 {
		s.mu.Unlock()
		return model.Item{}, ErrNotFound
	}
	var text string
	if patch.Text != nil {
		text = strings.TrimSpace(*patch.Text)
		if text == "" {
			s.mu.Unlock()
			return model.Item{}, &ValidationError{Field: "text"}
		}
	}
	if patch.Text != nil {
		s.items[idx].Text = text
	}
	if patch.Done != nil {
		s.items[idx].Done = *patch.Done
	}
	item := s.items[idx]
	done := s.commitLocked()
	s.mu.Unlock()

	return item, s.await(ctx, done)
}

func (s *Store) Delete(ctx context.Context, id int64) (model.Item, error) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx == -1 {
		s.mu.Unlock()
		return model.Item{}, ErrNotFound
	}
	removed := s.items[idx]
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	done := s.commitLocked()
	s.mu.Unlock()

	return removed, s.await(ctx, done)
}

// ToggleAll marks every item done unless all of them already are, in which
// case every item is marked not done.
func (s *Store) ToggleAll(ctx context.Context) (model.ToggleSummary, error) {
	s.mu.Lock()
	target := false
	for _, item := range s.items {
		if !item.Done {
			target = true
			break
		}
	}
	summary := model.ToggleSummary{Done: target}
	for i := range s.items {
		if s.items[i].Done != target {
			s.items[i].Done = target
			summary.Updated++
		}
	}
	if summary.Updated == 0 {
		s.mu.Unlock()
		return summary, nil
	}
	done := s.commitLocked()
	s.mu.Unlock()

	return summary, s.await(ctx, done)
}

func (s *Store) ClearCompleted(ctx context.Context) (model.ClearSummary, error) {
	s.mu.Lock()
	kept := s.items[:0:0]
	for _, item := range s.items {
		if !item.Done {
			kept = append(kept, item)
		}
	}
	summary := model.ClearSummary{Removed: len(s.items) - len(kept)}
	if summary.Removed == 0 {
		s.mu.Unlock()
		return summary, nil
	}
	s.items = kept
	done := s.commitLocked()
	s.mu.Unlock()

	return summary, s.await(ctx, done)
}

func (s *Store) Stats() model.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := model.Stats{Total: len(s.items)}
	for _, item := range s.items {
		if item.Done {
			stats.Done++
		}
	}
	stats.Remaining = stats.Total - stats.Done
	return stats
}

func (s *Store) indexOf(id int64) int {
	for i, item := range s.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// commitLocked hands a snapshot to the persister. Called with mu held so
// snapshots reach the writer in mutation order.
func (s *Store) commitLocked() <-chan error {
	snapshot := make([]model.Item, len(s.items))
	copy(snapshot, s.items)
	return s.persister.SaveAsync(snapshot)
}

func (s *Store) await(ctx context.Context, done <-chan error) error {
	if !s.opts.SyncWrites {
		go func() {
			if err := <-done; err != nil {
				s.logger.Error("background save failed; in-memory state kept",
					logging.Args(logging.Event("store_save_failed"), logging.Error(err))...)
			}
		}()
		return nil
	}

	select {
	case err := <-done:
		if err != nil {
			return &PersistError{Err: err}
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
