package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Server.Debounce.Duration <= 0 {
		return errors.New("invalid config: server.debounce must be positive")
	}
	if c.Server.ReadHeaderTimeout.Duration <= 0 || c.Server.RequestTimeout.Duration <= 0 {
		return errors.New("invalid config: server timeouts must be positive")
	}
	if c.Client.Timeout.Duration <= 0 {
		return errors.New("invalid config: client.timeout must be positive")
	}
	if c.Client.PollInterval.Duration <= 0 {
		return errors.New("invalid config: client.poll_interval must be positive")
	}
	return nil
}
