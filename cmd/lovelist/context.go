package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"lovelist/internal/client"
	"lovelist/internal/config"
	"lovelist/internal/logging"
	"lovelist/internal/queue"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	logger     *slog.Logger
	configErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		// CLI output owns stdout, so logs go to stderr at warn unless debugging.
		level := cfg.Logging.Level
		if level == "info" {
			level = "warn"
		}
		logger, err := logging.New(logging.Options{Level: level, Format: cfg.Logging.Format, Output: "stderr"})
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.logger = logger
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput(cmd *cobra.Command) bool {
	if c.jsonFlag != nil && *c.jsonFlag {
		return true
	}
	file, ok := cmd.OutOrStdout().(*os.File)
	return !ok || !isTerminal(file)
}

// openClient opens the offline state and builds a client over it. The caller
// closes the returned state.
func (c *commandContext) openClient(ctx context.Context, onStatus func(client.Status)) (*client.Client, *queue.SQLiteState, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	state, err := queue.Open(ctx, cfg.Client.StateDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open offline state: %w", err)
	}
	if onStatus == nil {
		onStatus = func(s client.Status) {
			c.logger.Debug("connectivity", logging.Args(logging.String("status", s.String()))...)
		}
	}
	cl, err := client.New(cfg.Client.ServerURL, client.Options{
		HTTPClient:     &http.Client{Timeout: cfg.Client.Timeout.Duration},
		Queue:          state,
		Cache:          state,
		Logger:         c.logger,
		OnStatusChange: onStatus,
	})
	if err != nil {
		_ = state.Close()
		return nil, nil, err
	}
	return cl, state, nil
}

// withClient retries queued writes when there are any, then hands the
// client to fn.
func (c *commandContext) withClient(cmd *cobra.Command, fn func(context.Context, *client.Client) error) error {
	ctx := commandCtx(cmd)
	cl, state, err := c.openClient(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = state.Close() }()

	if pending, err := cl.Pending(ctx); err == nil && pending > 0 {
		if _, err := cl.Flush(ctx); err != nil && !client.IsNetworkError(err) && !errors.Is(err, client.ErrFlushInProgress) {
			return fmt.Errorf("replay queued writes: %w", err)
		}
	}
	return fn(ctx, cl)
}

func commandCtx(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
