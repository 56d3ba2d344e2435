package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"lovelist/internal/client"
	"lovelist/internal/model"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderItems(items []model.Item, now time.Time) string {
	if len(items) == 0 {
		return "No items."
	}
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		mark := ""
		if item.Done {
			mark = "x"
		}
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			mark,
			item.Text,
			humanize.RelTime(time.UnixMilli(item.CreatedAt), now, "ago", "from now"),
		})
	}
	return renderTable([]string{"ID", "Done", "Text", "Created"}, rows, []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft})
}

func renderOperations(ops []model.Operation, now time.Time) string {
	if len(ops) == 0 {
		return "No queued writes."
	}
	rows := make([][]string, 0, len(ops))
	for _, op := range ops {
		body := ""
		if op.Body != nil {
			body = *op.Body
		}
		rows = append(rows, []string{
			strconv.FormatInt(op.Seq, 10),
			string(op.Method),
			op.Path,
			body,
			humanize.RelTime(time.UnixMilli(op.EnqueuedAt), now, "ago", "from now"),
		})
	}
	return renderTable([]string{"Seq", "Method", "Path", "Body", "Queued"}, rows, []columnAlignment{alignRight})
}

// offlineNote describes how a read or write was served while offline.
func offlineNote(res client.Result) string {
	switch {
	case res.Queued:
		return queuedNote
	case res.FromCache:
		return "offline: showing the last list fetched from the server"
	case res.Offline:
		return "offline: nothing cached for this view"
	}
	return ""
}

func printNote(cmd *cobra.Command, note string) {
	if note != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), note)
	}
}
