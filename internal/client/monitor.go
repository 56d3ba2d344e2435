package client

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"lovelist/internal/logging"
)

const DefaultPollInterval = 5 * time.Second

// Monitor turns health probes into connectivity signals for a Client.
type Monitor struct {
	client    *Client
	interval  time.Duration
	logger    *slog.Logger
	reachable bool
}

func NewMonitor(c *Client, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Monitor{
		client:   c,
		interval: interval,
		logger:   logging.NewComponentLogger(c.logger, "monitor"),
	}
}

// Run probes the server until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check probes once. A reachable server with queued writes triggers a flush,
// so a flush that failed earlier is retried on the next probe.
func (m *Monitor) Check(ctx context.Context) bool {
	err := m.client.Ping(ctx)
	var apiErr *APIError
	reachable := err == nil || errors.As(err, &apiErr)

	if !reachable {
		if ctx.Err() != nil {
			return m.reachable
		}
		if m.reachable {
			m.logger.Info("server unreachable", logging.Args(logging.Error(err))...)
		}
		m.reachable = false
		m.client.Offline()
		return false
	}

	if !m.reachable {
		m.logger.Info("server reachable again")
	}
	m.reachable = true

	pending, perr := m.client.Pending(ctx)
	if perr != nil {
		m.logger.Warn("failed to count queued writes", logging.Args(logging.Error(perr))...)
		return true
	}
	if pending == 0 && m.client.Status() == StatusOnline {
		return true
	}
	if err := m.client.Online(ctx); err != nil {
		m.logger.Warn("queue flush failed; will retry", logging.Args(logging.Error(err), logging.Int("pending", pending))...)
	}
	return true
}
