package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"lovelist/internal/client"
	"lovelist/internal/logging"
	"lovelist/internal/queue"
)

func newPendingCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "Show writes waiting to reach the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			state, err := queue.Open(commandCtx(cmd), cfg.Client.StateDir)
			if err != nil {
				return fmt.Errorf("open offline state: %w", err)
			}
			defer func() { _ = state.Close() }()

			ops, err := state.PeekAll(commandCtx(cmd))
			if err != nil {
				return err
			}
			if ctx.jsonOutput(cmd) {
				return writeJSON(cmd, ops)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderOperations(ops, time.Now()))
			return nil
		},
	}
}

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Send queued writes to the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx := commandCtx(cmd)
			cl, state, err := ctx.openClient(runCtx, nil)
			if err != nil {
				return err
			}
			defer func() { _ = state.Close() }()

			sent, err := cl.Flush(runCtx)
			if err != nil {
				remaining, _ := cl.Pending(runCtx)
				return fmt.Errorf("sync failed with %d write(s) still queued: %w", remaining, err)
			}
			if ctx.jsonOutput(cmd) {
				return writeJSON(cmd, map[string]int{"sent": sent})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent %d queued write(s)\n", sent)
			return nil
		},
	}
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Probe the server and send queued writes whenever it is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if interval <= 0 {
				interval = cfg.Client.PollInterval.Duration
			}
			runCtx := commandCtx(cmd)
			out := cmd.ErrOrStderr()
			cl, state, err := ctx.openClient(runCtx, func(s client.Status) {
				fmt.Fprintf(out, "%s %s\n", time.Now().Format(time.TimeOnly), s)
			})
			if err != nil {
				return err
			}
			defer func() { _ = state.Close() }()

			ctx.logger.Info("watching server", logging.Args(logging.String("url", cfg.Client.ServerURL), logging.Duration("interval", interval))...)
			return client.NewMonitor(cl, interval).Run(runCtx)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "Probe interval (defaults to client.poll_interval)")
	return cmd
}
