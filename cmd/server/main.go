package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"lovelist/internal/config"
	"lovelist/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFlag string

	cmd := &cobra.Command{
		Use:           "lovelist-server",
		Short:         "Serve the lovelist item API",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(configFlag)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			if exists {
				logger.Info("loaded config", logging.Args(logging.String("path", path))...)
			} else {
				logger.Info("no config file found; using defaults", logging.Args(logging.String("path", path))...)
			}
			return run(cmd.Context(), cfg, logger, nil)
		},
	}
	cmd.Flags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	return cmd
}
