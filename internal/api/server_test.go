package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lovelist/internal/engine"
	"lovelist/internal/metrics"
	"lovelist/internal/model"
	"lovelist/internal/store"
)

type testServer struct {
	*httptest.Server
	writer *engine.Writer
	path   string
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()
	path := filepath.Join(t.TempDir(), "todos.json")
	reg := metrics.New()
	w, err := engine.NewWriter(context.Background(), engine.WriterCfg{Path: path, QuietInterval: 5 * time.Millisecond}, nil, reg.Persist)
	require.NoError(t, err)
	s, err := store.Open(w, store.Options{SyncWrites: true})
	require.NoError(t, err)

	srv := httptest.NewServer(NewServer(Deps{Store: s, Metrics: reg}))
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = w.Close(ctx)
	})
	return &testServer{Server: srv, writer: w, path: path}
}

func (ts *testServer) do(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), "body: %s", data)
	return v
}

func TestHealth(t *testing.T) {
	ts := startTestServer(t)
	status, body := ts.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", decode[HealthResponse](t, body).Status)
}

func TestItemLifecycle(t *testing.T) {
	ts := startTestServer(t)

	status, body := ts.do(t, http.MethodPost, "/items", `{"text":"  Buy milk  "}`)
	require.Equal(t, http.StatusCreated, status)
	created := decode[model.Item](t, body)
	assert.Equal(t, "Buy milk", created.Text)
	assert.False(t, created.Done)
	assert.NotZero(t, created.CreatedAt)

	status, body = ts.do(t, http.MethodPut, "/items/1", `{"done":true}`)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decode[model.Item](t, body).Done)

	status, body = ts.do(t, http.MethodGet, "/items/1", "")
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decode[model.Item](t, body).Done)

	status, body = ts.do(t, http.MethodDelete, "/items/1", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, created.ID, decode[model.Item](t, body).ID)

	status, body = ts.do(t, http.MethodGet, "/items", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))
}

func TestValidationErrors(t *testing.T) {
	ts := startTestServer(t)
	_, _ = ts.do(t, http.MethodPost, "/items", `{"text":"Buy milk"}`)

	cases := []struct {
		name, method, path, body string
		status                   int
		message                  string
	}{
		{"blank text", http.MethodPost, "/items", `{"text":"   "}`, http.StatusBadRequest, `Invalid "text"`},
		{"missing text", http.MethodPost, "/items", ``, http.StatusBadRequest, `Invalid "text"`},
		{"numeric text", http.MethodPost, "/items", `{"text":5}`, http.StatusBadRequest, `Invalid "text"`},
		{"malformed body", http.MethodPost, "/items", `{`, http.StatusBadRequest, "Invalid request body"},
		{"non-bool done", http.MethodPut, "/items/1", `{"done":"yes"}`, http.StatusBadRequest, `Invalid "done"`},
		{"null done", http.MethodPut, "/items/1", `{"done":null}`, http.StatusBadRequest, `Invalid "done"`},
		{"blank update text", http.MethodPut, "/items/1", `{"text":""}`, http.StatusBadRequest, `Invalid "text"`},
		{"unknown id", http.MethodPut, "/items/42", `{"done":true}`, http.StatusNotFound, "Not found"},
		{"unknown id with blank text", http.MethodPut, "/items/999", `{"text":""}`, http.StatusNotFound, "Not found"},
		{"unknown id with bad done", http.MethodPut, "/items/999", `{"done":"yes"}`, http.StatusNotFound, "Not found"},
		{"unknown delete", http.MethodDelete, "/items/42", ``, http.StatusNotFound, "Not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := ts.do(t, tc.method, tc.path, tc.body)
			require.Equal(t, tc.status, status, "body: %s", body)
			assert.Equal(t, tc.message, decode[ErrorResponse](t, body).Error)
		})
	}
}

func TestMalformedIDIsBadRequest(t *testing.T) {
	ts := startTestServer(t)
	status, body := ts.do(t, http.MethodGet, "/items/abc", "")
	require.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, decode[ErrorResponse](t, body).Error, "parameter id")
}

func TestListFiltersAndBulkEndpoints(t *testing.T) {
	ts := startTestServer(t)
	for _, text := range []string{"Buy milk", "Buy bread", "Call mom"} {
		status, _ := ts.do(t, http.MethodPost, "/items", `{"text":"`+text+`"}`)
		require.Equal(t, http.StatusCreated, status)
	}
	_, _ = ts.do(t, http.MethodPut, "/items/1", `{"done":true}`)

	_, body := ts.do(t, http.MethodGet, "/items?done=true", "")
	assert.Len(t, decode[[]model.Item](t, body), 1)
	_, body = ts.do(t, http.MethodGet, "/items?q=buy", "")
	assert.Len(t, decode[[]model.Item](t, body), 2)

	status, body := ts.do(t, http.MethodGet, "/items?done=maybe", "")
	assert.Equal(t, http.StatusBadRequest, status, "body: %s", body)

	status, body = ts.do(t, http.MethodPost, "/items/toggle-all", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, model.ToggleSummary{Updated: 2, Done: true}, decode[model.ToggleSummary](t, body))

	_, body = ts.do(t, http.MethodGet, "/stats", "")
	assert.Equal(t, model.Stats{Total: 3, Done: 3, Remaining: 0}, decode[model.Stats](t, body))

	status, body = ts.do(t, http.MethodPost, "/items/clear-completed", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, model.ClearSummary{Removed: 3}, decode[model.ClearSummary](t, body))
}

func TestMutationsReachDataFile(t *testing.T) {
	ts := startTestServer(t)
	_, _ = ts.do(t, http.MethodPost, "/items", `{"text":"Buy milk"}`)

	items, err := ts.writer.Load()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Buy milk", items[0].Text)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := startTestServer(t)
	_, _ = ts.do(t, http.MethodPost, "/items", `{"text":"Buy milk"}`)

	status, body := ts.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `lovelist_persist_writes_total{result="ok"} 1`)
	assert.Contains(t, string(body), `route="/items"`)
}
