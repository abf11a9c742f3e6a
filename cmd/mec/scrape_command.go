package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mec/internal/config"
	"mec/internal/dispatcher"
	"mec/internal/event"
	"mec/internal/logging"
	"mec/internal/portals"
	"mec/internal/queue"
)

func newScrapeCommand(ctx *commandContext) *cobra.Command {
	var enqueue bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "scrape <adapter>",
		Short: "Run one adapter once and print the events it finds",
		Long: "Run one adapter outside the dispatcher. Events are printed as JSON;\n" +
			"with --enqueue they are also appended to the outbox.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg, "scrape")
			if err != nil {
				return err
			}
			sources, err := dispatcher.Sources(cfg, time.Now(), logger)
			if err != nil {
				return err
			}
			adapter, err := dispatcher.Lookup(sources, args[0])
			if err != nil {
				return err
			}

			runCtx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			skipped := 0
			events, runErr := portals.Collect(runCtx, adapter, func(err error) {
				skipped++
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped: %v\n", err)
			})
			for _, ev := range events {
				ev.Normalize()
				ev.EnsureIDs()
			}

			if enqueue && len(events) > 0 {
				if err := ctx.withStore(func(_ *config.Config, store *queue.Store) error {
					return enqueueAll(cmd.Context(), store, adapter.Name(), events)
				}); err != nil {
					return err
				}
			}

			if events == nil {
				events = []*event.MusicEvent{}
			}
			if err := writeJSON(cmd, events); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d events, %d skipped\n", adapter.Name(), len(events), skipped)
			if runErr != nil {
				return fmt.Errorf("%s run: %w", adapter.Name(), runErr)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&enqueue, "enqueue", false, "Append the events to the outbox")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "Abort the run after this long")
	return cmd
}

func enqueueAll(ctx context.Context, store *queue.Store, name string, events []*event.MusicEvent) error {
	for _, ev := range events {
		if _, err := store.Enqueue(ctx, name, ev); err != nil {
			return err
		}
	}
	return nil
}
