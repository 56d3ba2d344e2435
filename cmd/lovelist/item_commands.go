package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lovelist/internal/client"
	"lovelist/internal/model"
)

const queuedNote = "offline: change queued and will be sent when the server is reachable"

func newItemCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newListCommand(ctx),
		newAddCommand(ctx),
		newSetDoneCommand(ctx, "done", "Mark an item as done", true),
		newSetDoneCommand(ctx, "undo", "Mark an item as not done", false),
		newEditCommand(ctx),
		newRemoveCommand(ctx),
		newToggleAllCommand(ctx),
		newClearCompletedCommand(ctx),
		newStatsCommand(ctx),
	}
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var doneOnly, activeOnly bool
	var query string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List items",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if doneOnly && activeOnly {
				return errors.New("--done and --active are mutually exclusive")
			}
			filter := model.Filter{Query: query}
			if doneOnly || activeOnly {
				filter.Done = &doneOnly
			}
			return ctx.withClient(cmd, func(c context.Context, cl *client.Client) error {
				items, res, err := cl.ListItems(c, filter)
				if err != nil {
					return err
				}
				printNote(cmd, offlineNote(res))
				if ctx.jsonOutput(cmd) {
					return writeJSON(cmd, items)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderItems(items, time.Now()))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&doneOnly, "done", false, "Only completed items")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "Only items not yet done")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Only items whose text contains this")
	return cmd
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <text>",
		Short: "Add an item",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			return ctx.withClient(cmd, func(c context.Context, cl *client.Client) error {
				item, err := cl.CreateItem(c, text)
				return reportItem(ctx, cmd, item, err, "Added")
			})
		},
	}
}

func newSetDoneCommand(ctx *commandContext, use, short string, done bool) *cobra.Command {
	verb := "Completed"
	if !done {
		verb = "Reopened"
	}
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(cmd, func(c context.Context, cl *client.Client) error {
				item, err := cl.UpdateItem(c, id, client.UpdateRequest{Done: &done})
				return reportItem(ctx, cmd, item, err, verb)
			})
		},
	}
}

func newEditCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id> <text>",
		Short: "Change the text of an item",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			text := strings.Join(args[1:], " ")
			return ctx.withClient(cmd, func(c context.Context, cl *client.Client) error {
				item, err := cl.UpdateItem(c, id, client.UpdateRequest{Text: &text})
				return reportItem(ctx, cmd, item, err, "Updated")
			})
		},
	}
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete an item",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(cmd, func(c context.Context, cl *client.Client) error {
				item, err := cl.DeleteItem(c, id)
				return reportItem(ctx, cmd, item, err, "Deleted")
			})
		},
	}
}

func newToggleAllCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle-all",
		Short: "Mark every item done, or every item not done when all are done",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, cl *client.Client) error {
				summary, err := cl.ToggleAll(c)
				if err != nil {
					return err
				}
				if summary == nil {
					printNote(cmd, queuedNote)
					return nil
				}
				if ctx.jsonOutput(cmd) {
					return writeJSON(cmd, summary)
				}
				state := "done"
				if !summary.Done {
					state = "not done"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Marked %d item(s) %s\n", summary.Updated, state)
				return nil
			})
		},
	}
}

func newClearCompletedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-completed",
		Short: "Delete every completed item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, cl *client.Client) error {
				summary, err := cl.ClearCompleted(c)
				if err != nil {
					return err
				}
				if summary == nil {
					printNote(cmd, queuedNote)
					return nil
				}
				if ctx.jsonOutput(cmd) {
					return writeJSON(cmd, summary)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d completed item(s)\n", summary.Removed)
				return nil
			})
		},
	}
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show item counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, cl *client.Client) error {
				stats, res, err := cl.Stats(c)
				if err != nil {
					return err
				}
				printNote(cmd, offlineNote(res))
				if stats == nil {
					return nil
				}
				if ctx.jsonOutput(cmd) {
					return writeJSON(cmd, stats)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Total", "Done", "Remaining"},
					[][]string{{strconv.Itoa(stats.Total), strconv.Itoa(stats.Done), strconv.Itoa(stats.Remaining)}},
					[]columnAlignment{alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}
}

// reportItem prints the outcome of a single-item write. A nil item with no
// error means the write was queued.
func reportItem(ctx *commandContext, cmd *cobra.Command, item *model.Item, err error, verb string) error {
	if errors.Is(err, client.ErrNotFound) {
		return errors.New("item not found")
	}
	if err != nil {
		return err
	}
	if item == nil {
		printNote(cmd, queuedNote)
		return nil
	}
	if ctx.jsonOutput(cmd) {
		return writeJSON(cmd, item)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s #%d: %s\n", verb, item.ID, item.Text)
	return nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(raw), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid item id %q", raw)
	}
	return id, nil
}
