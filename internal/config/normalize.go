package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	var err error
	if c.Server.DataDir, err = expandPath(strings.TrimSpace(c.Server.DataDir)); err != nil {
		return fmt.Errorf("server.data_dir: %w", err)
	}
	if c.Client.StateDir, err = expandPath(strings.TrimSpace(c.Client.StateDir)); err != nil {
		return fmt.Errorf("client.state_dir: %w", err)
	}
	c.Server.Addr = strings.TrimSpace(c.Server.Addr)
	c.Client.ServerURL = strings.TrimRight(strings.TrimSpace(c.Client.ServerURL), "/")
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Level == "warning" {
		c.Logging.Level = "warn"
	}
	if c.Logging.Format == "text" {
		c.Logging.Format = "console"
	}
	return nil
}
