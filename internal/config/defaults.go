package config

import (
	"time"

	"lovelist/internal/engine"
)

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: Server{
			Addr:              "127.0.0.1:3001",
			DataDir:           "~/.local/share/lovelist",
			Debounce:          Duration{engine.DefaultQuietInterval},
			ReadHeaderTimeout: Duration{5 * time.Second},
			RequestTimeout:    Duration{30 * time.Second},
		},
		Client: Client{
			ServerURL:    "http://127.0.0.1:3001",
			StateDir:     "~/.local/state/lovelist",
			Timeout:      Duration{10 * time.Second},
			PollInterval: Duration{5 * time.Second},
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}
