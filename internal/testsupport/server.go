// Package testsupport provides shared fixtures for package tests: a real API
// server over a temporary data directory and a switchable network.
package testsupport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"lovelist/internal/api"
	"lovelist/internal/engine"
	"lovelist/internal/store"
)

type ServerOptions struct {
	QuietInterval time.Duration
	SyncWrites    bool
}

// Server is the full API over a data file. Its URL stays the same across
// restarts.
type Server struct {
	URL      string
	DataPath string
	Writer   *engine.Writer
	Store    *store.Store

	opts    ServerOptions
	mu      sync.RWMutex
	handler http.Handler
}

// StartServer runs the full API over a fresh data file and stops it on cleanup.
func StartServer(t testing.TB, opts ServerOptions) *Server {
	t.Helper()
	if opts.QuietInterval <= 0 {
		opts.QuietInterval = 5 * time.Millisecond
	}

	s := &Server{
		DataPath: filepath.Join(t.TempDir(), "data", "todos.json"),
		opts:     opts,
	}
	s.open(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		h := s.handler
		s.mu.RUnlock()
		h.ServeHTTP(w, r)
	}))
	s.URL = srv.URL

	t.Cleanup(func() {
		srv.Close()
		s.closeWriter()
	})
	return s
}

// Restart stops the writer, flushing anything pending, and serves a new
// store loaded from the same data file.
func (s *Server) Restart(t testing.TB) {
	t.Helper()
	s.closeWriter()
	s.open(t)
}

func (s *Server) open(t testing.TB) {
	t.Helper()
	w, err := engine.NewWriter(context.Background(), engine.WriterCfg{Path: s.DataPath, QuietInterval: s.opts.QuietInterval}, nil, nil)
	if err != nil {
		t.Fatalf("create writer: %v", err)
	}
	st, err := store.Open(w, store.Options{SyncWrites: s.opts.SyncWrites})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	s.mu.Lock()
	s.Writer = w
	s.Store = st
	s.handler = api.NewServer(api.Deps{Store: st})
	s.mu.Unlock()
}

func (s *Server) closeWriter() {
	s.mu.RLock()
	w := s.Writer
	s.mu.RUnlock()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = w.Close(ctx)
}
