package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lovelist/internal/config"
	"lovelist/internal/logging"
	"lovelist/internal/model"
	"lovelist/internal/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Server.DataDir = t.TempDir()
	cfg.Server.Debounce = config.Duration{Duration: time.Hour}
	return &cfg
}

func startRun(t *testing.T, cfg *config.Config) (string, context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	addrCh := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, cfg, logging.NewNop(), func(addr string) { addrCh <- addr })
	}()

	select {
	case addr := <-addrCh:
		return "http://" + addr, cancel, done
	case err := <-done:
		cancel()
		t.Fatalf("run exited early: %v", err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("server did not start")
	}
	return "", cancel, done
}

func TestRunFlushesPendingWriteOnShutdown(t *testing.T) {
	cfg := testConfig(t)
	base, cancel, done := startRun(t, cfg)

	resp, err := http.Post(base+"/items", "application/json", strings.NewReader(`{"text":"Buy milk"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	// The debounce is an hour, so only shutdown can write the file.
	_, err = os.Stat(cfg.DataFile())
	assert.True(t, os.IsNotExist(err))

	cancel()
	require.NoError(t, <-done)

	data, err := os.ReadFile(cfg.DataFile())
	require.NoError(t, err)
	var items []model.Item
	require.NoError(t, json.Unmarshal(data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Buy milk", items[0].Text)
}

func TestRunRefusesLockedDataDir(t *testing.T) {
	cfg := testConfig(t)
	lock, err := storage.LockDir(cfg.Server.DataDir)
	require.NoError(t, err)
	defer func() { _ = lock.Unlock() }()

	err = run(context.Background(), cfg, logging.NewNop(), nil)
	require.ErrorIs(t, err, storage.ErrLocked)
}

func TestRunReloadsItemsAfterRestart(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Server.DataDir, "todos.json"),
		[]byte(`[{"id":4,"text":"Walk dog","done":false,"createdAt":1}]`), 0o644))

	base, cancel, done := startRun(t, cfg)
	defer func() {
		cancel()
		<-done
	}()

	resp, err := http.Post(base+"/items", "application/json", strings.NewReader(`{"text":"Buy milk"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	var created model.Item
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, int64(5), created.ID)
}
