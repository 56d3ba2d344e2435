// Package config loads lovelist settings from a TOML file, applies
// environment overrides, expands paths and validates the result.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

const defaultConfigPath = "~/.config/lovelist/config.toml"

// Duration is a time.Duration written as a Go duration string ("50ms", "5s").
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

// Server configures the API process and its persistence writer.
type Server struct {
	Addr              string   `toml:"addr" validate:"required,hostname_port"`
	DataDir           string   `toml:"data_dir" validate:"required"`
	Debounce          Duration `toml:"debounce"`
	SyncWrites        bool     `toml:"sync_writes"`
	ReadHeaderTimeout Duration `toml:"read_header_timeout"`
	RequestTimeout    Duration `toml:"request_timeout"`
}

// Client configures the offline-tolerant CLI client.
type Client struct {
	ServerURL    string   `toml:"server_url" validate:"required,http_url"`
	StateDir     string   `toml:"state_dir" validate:"required"`
	Timeout      Duration `toml:"timeout"`
	PollInterval Duration `toml:"poll_interval"`
}

type Logging struct {
	Level  string `toml:"level" validate:"oneof=debug info warn error"`
	Format string `toml:"format" validate:"oneof=console json"`
}

type Config struct {
	Server  Server  `toml:"server"`
	Client  Client  `toml:"client"`
	Logging Logging `toml:"logging"`
}

// DataFile is the JSON file holding the server's items.
func (c *Config) DataFile() string {
	return filepath.Join(c.Server.DataDir, "todos.json")
}

// DefaultConfigPath returns the absolute path of the default configuration file.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load reads path (or the default location when empty) over Default, then
// applies environment overrides, expands paths and validates. It also
// returns the resolved path and whether a file was found there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if strings.TrimSpace(path) == "" {
		path = defaultConfigPath
	}
	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %q is a directory", expanded)
	}
	return expanded, true, nil
}

func (c *Config) applyEnv() {
	c.Server.Addr = envOrDefault("LOVELIST_HTTP_ADDR", c.Server.Addr)
	c.Server.DataDir = envOrDefault("LOVELIST_DATA_DIR", c.Server.DataDir)
	c.Client.ServerURL = envOrDefault("LOVELIST_SERVER_URL", c.Client.ServerURL)
	c.Client.StateDir = envOrDefault("LOVELIST_STATE_DIR", c.Client.StateDir)
}

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// CreateSample writes a commented sample configuration to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
