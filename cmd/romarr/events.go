package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/vmunix/romarr/internal/events"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recorded pipeline events",
	RunE:  runEventsCmd,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().IntP("limit", "n", 50, "Maximum events to show")
	eventsCmd.Flags().StringP("type", "t", "", "Only show one event type")
	eventsCmd.Flags().Duration("since", 0, "Only show events newer than this (e.g. 24h)")
}

type eventView struct {
	ID         int64        `json:"id,omitempty"`
	Type       string       `json:"type"`
	EntityType string       `json:"entity_type"`
	EntityID   int64        `json:"entity_id"`
	OccurredAt time.Time    `json:"occurred_at"`
	Event      events.Event `json:"event"`
}

func newEventView(id int64, e events.Event) eventView {
	return eventView{
		ID:         id,
		Type:       e.EventType(),
		EntityType: e.EntityType(),
		EntityID:   e.EntityID(),
		OccurredAt: e.OccurredAt(),
		Event:      e,
	}
}

func runEventsCmd(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	eventType, _ := cmd.Flags().GetString("type")
	since, _ := cmd.Flags().GetDuration("since")

	registry := events.ImportEvents()
	if eventType != "" && !registry.Known(eventType) {
		return fmt.Errorf("unknown event type %q (one of %s)", eventType, strings.Join(registry.Types(), ", "))
	}

	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	rows, err := readEvents(a.events, eventType, limit, since)
	if err != nil {
		return err
	}

	views := make([]eventView, 0, len(rows))
	for _, raw := range rows {
		e, err := registry.Decode(raw)
		if err != nil {
			a.log.Warn("skipping unreadable event", "id", raw.ID, "error", err)
			continue
		}
		views = append(views, newEventView(raw.ID, e))
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), views)
	}
	printEvents(cmd.OutOrStdout(), views)
	return nil
}

// readEvents returns up to limit events, newest first.
func readEvents(log *events.EventLog, eventType string, limit int, since time.Duration) ([]events.RawEvent, error) {
	if since <= 0 {
		rows, err := log.Recent(eventType, limit)
		if err != nil {
			return nil, fmt.Errorf("read events: %w", err)
		}
		return rows, nil
	}

	all, err := log.Since(time.Now().Add(-since))
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	var rows []events.RawEvent
	for i := len(all) - 1; i >= 0 && (limit <= 0 || len(rows) < limit); i-- {
		if eventType == "" || all[i].EventType == eventType {
			rows = append(rows, all[i])
		}
	}
	return rows, nil
}

// eventSummary is a one-line description of an event's payload.
func eventSummary(e events.Event) string {
	switch ev := e.(type) {
	case *events.BatchStarted:
		return fmt.Sprintf("batch %s started", shortID(ev.BatchID))
	case *events.BatchCompleted:
		return fmt.Sprintf("batch %s: %d committed, %d conflicted, %d failed, %d deferred in %s",
			shortID(ev.BatchID), ev.Committed, ev.Conflicted, ev.Failed, ev.Deferred,
			time.Duration(ev.DurationMS)*time.Millisecond)
	case *events.ImportCommitted:
		return fmt.Sprintf("%s -> %s", ev.Source, ev.Dest)
	case *events.ImportConflicted:
		return fmt.Sprintf("%s: %s", ev.Source, ev.Reason)
	case *events.ImportFailed:
		if ev.Retry {
			return fmt.Sprintf("%s: %s (will retry)", ev.Source, ev.Reason)
		}
		return fmt.Sprintf("%s: %s", ev.Source, ev.Reason)
	case *events.CatalogChanged:
		return fmt.Sprintf("batch %s changed %d records", shortID(ev.BatchID), ev.Changes)
	}
	return ""
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printEventLine(w io.Writer, e events.Event) {
	fmt.Fprintf(w, "%s  %-18s %s\n", e.OccurredAt().Format(time.TimeOnly), e.EventType(), eventSummary(e))
}

func printEvents(w io.Writer, views []eventView) {
	if len(views) == 0 {
		fmt.Fprintln(w, "No events")
		return
	}
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		rows = append(rows, []string{
			humanize.Time(v.OccurredAt),
			v.Type,
			truncate(eventSummary(v.Event), 90),
		})
	}
	fmt.Fprintln(w, renderTable([]string{"WHEN", "TYPE", "DETAIL"}, rows, nil))
}
