package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lovelist/internal/model"
	"lovelist/internal/testsupport"
)

// unreachableURL points at a port nothing listens on.
const unreachableURL = "http://127.0.0.1:1"

func setupEnv(t *testing.T, serverURL string) string {
	t.Helper()
	home := t.TempDir()
	stateDir := filepath.Join(home, "state")
	t.Setenv("HOME", home)
	t.Setenv("LOVELIST_SERVER_URL", serverURL)
	t.Setenv("LOVELIST_STATE_DIR", stateDir)
	return stateDir
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestAddAndListOnline(t *testing.T) {
	srv := testsupport.StartServer(t, testsupport.ServerOptions{})
	setupEnv(t, srv.URL)

	out, _, err := execute(t, "add", "Buy", "milk")
	require.NoError(t, err)
	var created model.Item
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Equal(t, "Buy milk", created.Text)

	_, _, err = execute(t, "done", "1")
	require.NoError(t, err)

	out, _, err = execute(t, "list", "--done")
	require.NoError(t, err)
	var items []model.Item
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 1)
	assert.True(t, items[0].Done)

	out, _, err = execute(t, "stats")
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":1,"done":1,"remaining":0}`, out)
}

func TestOfflineAddIsQueuedThenSynced(t *testing.T) {
	srv := testsupport.StartServer(t, testsupport.ServerOptions{})
	setupEnv(t, unreachableURL)

	out, errOut, err := execute(t, "add", "Buy milk")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "queued")

	out, _, err = execute(t, "pending")
	require.NoError(t, err)
	var ops []model.Operation
	require.NoError(t, json.Unmarshal([]byte(out), &ops))
	require.Len(t, ops, 1)
	assert.Equal(t, model.POST, ops[0].Method)

	_, _, err = execute(t, "sync")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 write(s) still queued")

	t.Setenv("LOVELIST_SERVER_URL", srv.URL)
	out, _, err = execute(t, "sync")
	require.NoError(t, err)
	assert.JSONEq(t, `{"sent":1}`, out)

	items := srv.Store.List(model.Filter{})
	require.Len(t, items, 1)
	assert.Equal(t, "Buy milk", items[0].Text)
}

func TestQueuedWritesReplayBeforeNextCommand(t *testing.T) {
	srv := testsupport.StartServer(t, testsupport.ServerOptions{})
	setupEnv(t, unreachableURL)

	_, _, err := execute(t, "add", "Walk dog")
	require.NoError(t, err)

	t.Setenv("LOVELIST_SERVER_URL", srv.URL)
	out, _, err := execute(t, "list")
	require.NoError(t, err)
	var items []model.Item
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Walk dog", items[0].Text)
}

func TestOfflineListUsesCache(t *testing.T) {
	srv := testsupport.StartServer(t, testsupport.ServerOptions{})
	setupEnv(t, srv.URL)

	_, _, err := execute(t, "add", "Buy milk")
	require.NoError(t, err)
	online, _, err := execute(t, "list")
	require.NoError(t, err)

	t.Setenv("LOVELIST_SERVER_URL", unreachableURL)
	offline, errOut, err := execute(t, "list")
	require.NoError(t, err)
	assert.JSONEq(t, online, offline)
	assert.Contains(t, errOut, "last list fetched")
}

func TestCommandErrors(t *testing.T) {
	srv := testsupport.StartServer(t, testsupport.ServerOptions{})
	setupEnv(t, srv.URL)

	_, _, err := execute(t, "done", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid item id")

	_, _, err = execute(t, "rm", "42")
	require.EqualError(t, err, "item not found")

	_, _, err = execute(t, "list", "--done", "--active")
	require.Error(t, err)
}

func TestConfigInitWritesSample(t *testing.T) {
	setupEnv(t, unreachableURL)
	path := filepath.Join(t.TempDir(), "lovelist.toml")

	out, _, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Wrote "))

	_, _, err = execute(t, "config", "init", path)
	require.Error(t, err)

	_, _, err = execute(t, "--config", path, "pending")
	require.NoError(t, err)
}

func TestRenderItemsTable(t *testing.T) {
	out := renderItems([]model.Item{{ID: 1, Text: "Buy milk", Done: true}}, time.UnixMilli(0).Add(time.Hour))
	assert.Contains(t, out, "Buy milk")
	assert.Contains(t, out, "1 hour ago")
	assert.Equal(t, "No items.", renderItems(nil, time.Now()))
}
