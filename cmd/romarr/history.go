package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/vmunix/romarr/internal/importer"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent import outcomes",
	RunE:  runHistoryCmd,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum rows to show")
	historyCmd.Flags().String("batch", "", "Only show one batch")
	historyCmd.Flags().String("event", "", "Filter by event (imported, conflicted, failed, subsumed, bios, artwork, junk)")
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	batch, _ := cmd.Flags().GetString("batch")
	event, _ := cmd.Flags().GetString("event")

	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	filter := importer.HistoryFilter{Limit: limit}
	if batch != "" {
		filter.BatchID = &batch
	}
	if event != "" {
		filter.Event = &event
	}
	entries, err := importer.NewHistoryStore(a.db).List(filter)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), entries)
	}
	printHistory(cmd.OutOrStdout(), entries)
	return nil
}

func historyRows(entries []*importer.HistoryEntry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, h := range entries {
		var data importer.HistoryData
		_ = json.Unmarshal([]byte(h.Data), &data)
		detail := data.Dest
		if data.Error != "" {
			detail = data.Error
		}
		rows = append(rows, []string{
			humanize.Time(h.CreatedAt),
			shortID(h.BatchID),
			h.Event,
			truncate(filepath.Base(h.Path), 40),
			truncate(detail, 60),
		})
	}
	return rows
}

func printHistory(w io.Writer, entries []*importer.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No history")
		return
	}
	fmt.Fprintln(w, renderTable([]string{"WHEN", "BATCH", "EVENT", "FILE", "DETAIL"}, historyRows(entries), nil))
}
