// Package client is the offline-tolerant HTTP client for the item API.
//
// Writes that cannot reach the server are appended to a durable queue and
// reported to the caller as an optimistic success; Flush replays them in
// order once connectivity returns. Successful reads are cached so a read
// made while offline returns the last known response.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"lovelist/internal/logging"
	"lovelist/internal/model"
	"lovelist/internal/queue"
)

const defaultTimeout = 10 * time.Second

type Status int

const (
	StatusOnline Status = iota
	StatusOffline
)

func (s Status) String() string {
	if s == StatusOffline {
		return "offline"
	}
	return "online"
}

type Options struct {
	HTTPClient *http.Client
	Queue      queue.Queue
	Cache      queue.Cache
	Logger     *slog.Logger
	// OnStatusChange is called on every online/offline transition.
	OnStatusChange func(Status)
}

// Result is the outcome of Do. Body is empty for queued writes and for
// offline reads with nothing cached.
type Result struct {
	StatusCode int
	Body       json.RawMessage
	Queued     bool
	FromCache  bool
	Offline    bool
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	queue      queue.Queue
	cache      queue.Cache
	logger     *slog.Logger
	onStatus   func(Status)

	flushMu  sync.Mutex
	statusMu sync.Mutex
	status   Status
}

func New(baseURL string, opts Options) (*Client, error) {
	if opts.Queue == nil || opts.Cache == nil {
		return nil, errors.New("client requires a queue and a cache")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		queue:      opts.Queue,
		cache:      opts.Cache,
		logger:     logging.NewComponentLogger(opts.Logger, "client"),
		onStatus:   opts.OnStatusChange,
	}, nil
}

// Do performs a request with offline fallbacks. An empty method means GET.
func (c *Client) Do(ctx context.Context, method, path string, body []byte) (Result, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" || method == http.MethodGet {
		return c.read(ctx, path)
	}
	m, ok := model.ParseMethod(method)
	if !ok {
		return Result{}, fmt.Errorf("unsupported method %q", method)
	}
	return c.write(ctx, m, path, body)
}

func (c *Client) read(ctx context.Context, path string) (Result, error) {
	status, data, err := c.send(ctx, http.MethodGet, path, nil)
	if err == nil {
		if cerr := c.cache.Put(ctx, path, data); cerr != nil {
			c.logger.Warn("failed to update read cache", logging.Args(logging.String("path", path), logging.Error(cerr))...)
		}
		return Result{StatusCode: status, Body: data}, nil
	}
	if !IsNetworkError(err) {
		return Result{}, err
	}

	c.setStatus(StatusOffline)
	cached, ok, cerr := c.cache.Get(ctx, path)
	if cerr != nil {
		c.logger.Warn("failed to read cache", logging.Args(logging.String("path", path), logging.Error(cerr))...)
	}
	if ok {
		c.logger.Debug("serving cached read", logging.Args(logging.String("path", path))...)
		return Result{Body: cached, FromCache: true, Offline: true}, nil
	}
	return Result{Offline: true}, nil
}

func (c *Client) write(ctx context.Context, method model.Method, path string, body []byte) (Result, error) {
	behind, err := c.pendingAfterFlush(ctx)
	if err != nil {
		return Result{}, err
	}
	if behind {
		return c.enqueue(ctx, method, path, body, errQueuedBehind)
	}

	status, data, err := c.send(ctx, string(method), path, body)
	if err == nil {
		return Result{StatusCode: status, Body: data}, nil
	}
	if !IsNetworkError(err) {
		return Result{}, err
	}
	c.setStatus(StatusOffline)
	return c.enqueue(ctx, method, path, body, err)
}

// pendingAfterFlush reports whether earlier writes are still queued after an
// attempt to deliver them. A new write must not overtake them.
func (c *Client) pendingAfterFlush(ctx context.Context) (bool, error) {
	pending, err := c.queue.Len(ctx)
	if err != nil {
		return false, fmt.Errorf("read queue: %w", err)
	}
	if pending == 0 {
		return false, nil
	}

	if _, err := c.Flush(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		c.logger.Debug("queued writes not delivered before new write",
			logging.Args(logging.Int("pending", pending), logging.Error(err))...)
	}
	if pending, err = c.queue.Len(ctx); err != nil {
		return false, fmt.Errorf("read queue: %w", err)
	}
	return pending > 0, nil
}

func (c *Client) enqueue(ctx context.Context, method model.Method, path string, body []byte, cause error) (Result, error) {
	op := model.Operation{Path: path, Method: method}
	if body != nil {
		s := string(body)
		op.Body = &s
	}
	queued, err := c.queue.Enqueue(ctx, op)
	if err != nil {
		return Result{}, fmt.Errorf("queue write after %v: %w", cause, err)
	}
	c.logger.Info("write queued for replay",
		logging.Args(logging.Event("write_queued"), logging.Int64("seq", queued.Seq),
			logging.String("method", string(method)), logging.String("path", path), logging.Error(cause))...)
	return Result{Queued: true, Offline: c.Status() == StatusOffline}, nil
}

// Flush replays queued writes in order. A network failure stops the replay
// and leaves the whole queue in place for the next attempt. It returns the
// number of operations delivered. Only one replay runs at a time, across
// processes when the queue is a queue.FlushLocker.
func (c *Client) Flush(ctx context.Context) (int, error) {
	if !c.flushMu.TryLock() {
		return 0, ErrFlushInProgress
	}
	defer c.flushMu.Unlock()

	if locker, ok := c.queue.(queue.FlushLocker); ok {
		unlock, held, err := locker.TryLockFlush()
		if err != nil {
			return 0, fmt.Errorf("lock queue: %w", err)
		}
		if !held {
			return 0, ErrFlushInProgress
		}
		defer func() { _ = unlock() }()
	}

	ops, err := c.queue.PeekAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("read queue: %w", err)
	}
	if len(ops) == 0 {
		c.setStatus(StatusOnline)
		return 0, nil
	}

	for _, op := range ops {
		var body []byte
		if op.Body != nil {
			body = []byte(*op.Body)
		}
		_, _, err := c.send(ctx, string(op.Method), op.Path, body)
		if err == nil {
			continue
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			c.logger.Warn("server rejected queued write; dropping it",
				logging.Args(logging.Event("replay_rejected"), logging.Int64("seq", op.Seq),
					logging.String("method", string(op.Method)), logging.String("path", op.Path),
					logging.Int("status", apiErr.StatusCode), logging.String("reason", apiErr.Message))...)
			continue
		}
		if IsNetworkError(err) {
			c.setStatus(StatusOffline)
		}
		return 0, fmt.Errorf("replay seq %d: %w", op.Seq, err)
	}

	if err := c.queue.DrainAll(ctx, ops[len(ops)-1].Seq); err != nil {
		return 0, fmt.Errorf("drain queue: %w", err)
	}
	c.logger.Info("queue flushed", logging.Args(logging.Event("queue_flushed"), logging.Int("replayed", len(ops)))...)

	if remaining, err := c.queue.Len(ctx); err == nil && remaining == 0 {
		c.setStatus(StatusOnline)
	}
	return len(ops), nil
}

// Online signals that connectivity is back and drains the queue.
func (c *Client) Online(ctx context.Context) error {
	_, err := c.Flush(ctx)
	if errors.Is(err, ErrFlushInProgress) {
		return nil
	}
	return err
}

// Offline signals that connectivity was lost.
func (c *Client) Offline() {
	c.setStatus(StatusOffline)
}

// Ping reports whether the server answered the health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, _, err := c.send(ctx, http.MethodGet, "/health", nil)
	return err
}

func (c *Client) Pending(ctx context.Context) (int, error) {
	return c.queue.Len(ctx)
}

func (c *Client) Status() Status {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	return c.status
}

func (c *Client) setStatus(s Status) {
	c.statusMu.Lock()
	changed := c.status != s
	c.status = s
	c.statusMu.Unlock()

	if changed {
		c.logger.Info("connectivity changed", logging.Args(logging.String("status", s.String()))...)
		if c.onStatus != nil {
			c.onStatus(s)
		}
	}
}

// send performs one HTTP exchange. Transport failures become *NetworkError,
// non-2xx responses *APIError, and a cancelled ctx is returned unchanged.
func (c *Client) send(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, nil, ctxErr
		}
		return 0, nil, &NetworkError{Op: method + " " + path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, nil, ctxErr
		}
		return 0, nil, &NetworkError{Op: method + " " + path, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return resp.StatusCode, nil, apiErr
	}
	return resp.StatusCode, data, nil
}
