package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vmunix/romarr/internal/events"
	"github.com/vmunix/romarr/internal/server"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Import continuously as files arrive in the intake directory",
	RunE:  runWatchCmd,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatchCmd(cmd *cobra.Command, args []string) error {
	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := server.NewRunner(a.importer, a.bus, a.systems, server.Config{
		Debounce: a.cfg.Import.Debounce,
	}, a.log)
	runner.AddUpkeep("events", func(context.Context) (int64, error) {
		return a.events.Prune(a.cfg.Database.EventRetention)
	})
	runner.AddUpkeep("metadata cache", a.metadata.Prune)

	feed := a.bus.SubscribeAll(64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		streamEvents(cmd.OutOrStdout(), feed)
	}()

	err = runner.Run(ctx)
	a.bus.Unsubscribe(feed)
	<-done
	a.log.Info("watch stopped")
	return err
}

// streamEvents prints each event as it is published until ch is closed.
// With --json every event is one line.
func streamEvents(w io.Writer, ch <-chan events.Event) {
	enc := json.NewEncoder(w)
	for e := range ch {
		if jsonOutput {
			_ = enc.Encode(newEventView(0, e))
			continue
		}
		printEventLine(w, e)
	}
}
