package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/scrypster/rollcall/internal/engine"
	"github.com/scrypster/rollcall/internal/notify"
	"github.com/scrypster/rollcall/internal/reminders"
)

func serveCommand() *command {
	return &command{
		summary: "run the engine until interrupted",
		flags: func(fs *pflag.FlagSet) {
			fs.Bool("no-watch", false, "do not watch the events directory")
		},
		run: runServe,
	}
}

func runServe(ctx context.Context, a *app, _ []string) error {
	eng, store, err := a.openEngine(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	stats := eng.Stats()
	a.logger.Info("engine ready", "entities", stats.Entities, "tokens", stats.Tokens, "edges", stats.Edges)

	writer := notify.NewEventWriter(a.cfg.Storage.DataPath)
	eng.SetOnChange(func(eventType string, entityID int64) {
		if err := writer.Notify(eventType, entityID); err != nil {
			a.logger.Warn("failed to publish change", "event", eventType, "err", err)
		}
	})

	rebuilder := engine.NewRebuilder(eng, a.cfg.Rebuild.MinInterval, a.cfg.Rebuild.Burst)

	noWatch, _ := a.fs.GetBool("no-watch")
	if a.cfg.Rebuild.Watch && !noWatch {
		watcher := notify.NewEventWatcher(a.cfg.Storage.DataPath, func(evt notify.Event) {
			a.logger.Debug("directory event", "type", evt.Type, "entity", evt.EntityID)
			rebuilder.Trigger()
		}, a.logger)
		if err := watcher.Start(); err != nil {
			return err
		}
		defer watcher.Stop()
	}

	// Book schedules reminders ahead of each booked activity; deliver them as log lines.
	dispatcher := reminders.NewDispatcher(eng.Reminders(), func(n reminders.Notification) {
		a.logger.Info("reminder", "id", n.ID, "message", n.Message, "due", n.Due.Format(time.RFC3339))
	}, a.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return rebuilder.Run(gctx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(a.cfg.Reminders.PollInterval)
		defer ticker.Stop()
		return dispatcher.Run(gctx, ticker.C)
	})

	a.logger.Info("serving; press Ctrl-C to stop")
	err = g.Wait()
	a.logger.Info("shutting down")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
