package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/scrypster/rollcall/internal/importer"
	"github.com/scrypster/rollcall/internal/notify"
	"github.com/scrypster/rollcall/pkg/types"
)

func importCommand() *command {
	return &command{
		summary: "load a YAML seed file into the directory store",
		flags: func(fs *pflag.FlagSet) {
			fs.StringP("file", "f", "", "seed file to import (required)")
		},
		run: func(ctx context.Context, a *app, _ []string) error {
			path, _ := a.fs.GetString("file")
			if path == "" {
				return fmt.Errorf("import: --file is required")
			}
			seed, err := importer.LoadSeedFile(path)
			if err != nil {
				return err
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			res, err := importer.Import(ctx, store, seed)
			if err != nil {
				return err
			}
			a.logger.Info("import complete", "entities", res.Entities, "activities", res.Activities, "skipped", res.Skipped)

			// Tell a running server to rebuild.
			if err := notify.NewEventWriter(a.cfg.Storage.DataPath).Notify(notify.DirectoryImported, 0); err != nil {
				a.logger.Warn("failed to signal import", "err", err)
			}
			fmt.Fprintf(a.stdout, "imported %d entities, %d new activities (%d already present)\n",
				res.Entities, res.Activities, res.Skipped)
			return nil
		},
	}
}

func searchCommand() *command {
	return &command{
		summary: "search names, aliases and keywords",
		run: func(ctx context.Context, a *app, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("search: query is required")
			}
			eng, store, err := a.openEngine(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			results, err := eng.Search(strings.Join(args, " "))
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(a.stdout, "no matches")
				return nil
			}
			for _, e := range results {
				fmt.Fprintf(a.stdout, "%d\t%s\t%s\t%s\n", e.ID, e.Name, e.Room, e.Attributes)
			}
			return nil
		},
	}
}

func freeCommand() *command {
	return &command{
		summary: "show common free time for a group on one day",
		flags: func(fs *pflag.FlagSet) {
			fs.String("day", "", "weekday, e.g. Mon or Monday (required)")
			fs.Int64Slice("ids", nil, "comma-separated entity IDs (required)")
		},
		run: func(ctx context.Context, a *app, _ []string) error {
			dayName, _ := a.fs.GetString("day")
			day, err := types.ParseWeekday(dayName)
			if err != nil {
				return err
			}
			ids, _ := a.fs.GetInt64Slice("ids")
			if len(ids) == 0 {
				return fmt.Errorf("free: --ids is required")
			}

			eng, store, err := a.openEngine(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			free, err := eng.GroupAvailability(ctx, ids, day)
			if err != nil {
				return err
			}
			if len(free) == 0 {
				fmt.Fprintf(a.stdout, "no common free time on %s\n", day)
				return nil
			}
			for _, r := range free {
				fmt.Fprintf(a.stdout, "%s %s (%d min)\n", day, r, r.Len())
			}
			return nil
		},
	}
}

func recommendCommand() *command {
	return &command{
		summary: "list entities sharing a keyword with <id>",
		run: func(ctx context.Context, a *app, args []string) error {
			id, err := parseID(args)
			if err != nil {
				return err
			}
			eng, store, err := a.openEngine(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			for _, n := range eng.Recommend(id) {
				if e, ok := eng.Entity(n); ok {
					fmt.Fprintf(a.stdout, "%d\t%s\t%s\n", e.ID, e.Name, e.Attributes)
				}
			}
			return nil
		},
	}
}

func presenceCommand() *command {
	return &command{
		summary: "report whether <id> is busy, free or off hours now",
		flags: func(fs *pflag.FlagSet) {
			fs.String("at", "", "RFC 3339 instant to evaluate (default: now)")
		},
		run: func(ctx context.Context, a *app, args []string) error {
			id, err := parseID(args)
			if err != nil {
				return err
			}
			at := time.Now()
			if s, _ := a.fs.GetString("at"); s != "" {
				if at, err = time.Parse(time.RFC3339, s); err != nil {
					return fmt.Errorf("presence: --at: %w", err)
				}
			}

			eng, store, err := a.openEngine(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			p, err := eng.Presence(ctx, id, at)
			if err != nil {
				return err
			}
			line := fmt.Sprintf("%s %s: %s", p.Day, types.FormatClock(p.Minute), p.State)
			if p.Current != nil {
				line += fmt.Sprintf(" (%s until %s)", p.Current.Label, types.FormatClock(p.Current.End))
			}
			if p.Free != nil {
				line += fmt.Sprintf("; free %s", p.Free)
			}
			fmt.Fprintln(a.stdout, line)
			return nil
		},
	}
}

func bookCommand() *command {
	return &command{
		summary: "book an activity if it conflicts with nothing",
		flags: func(fs *pflag.FlagSet) {
			fs.Int64("id", 0, "entity ID (required)")
			fs.String("day", "", "weekday (required)")
			fs.String("start", "", "start time HH:MM (required)")
			fs.String("end", "", "end time HH:MM (required)")
			fs.String("label", "", "activity label")
		},
		run: func(ctx context.Context, a *app, _ []string) error {
			id, _ := a.fs.GetInt64("id")
			dayName, _ := a.fs.GetString("day")
			startStr, _ := a.fs.GetString("start")
			endStr, _ := a.fs.GetString("end")
			label, _ := a.fs.GetString("label")

			day, err := types.ParseWeekday(dayName)
			if err != nil {
				return err
			}
			start, err := types.ParseClock(startStr)
			if err != nil {
				return err
			}
			end, err := types.ParseClock(endStr)
			if err != nil {
				return err
			}

			eng, store, err := a.openEngine(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			eng.SetOnChange(func(eventType string, entityID int64) {
				if err := notify.NewEventWriter(a.cfg.Storage.DataPath).Notify(eventType, entityID); err != nil {
					a.logger.Warn("failed to signal booking", "err", err)
				}
			})

			act, err := eng.Book(ctx, id, day, start, end, label)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "booked %s (%s)\n", act, act.ID)
			return nil
		},
	}
}

func parseID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("exactly one entity ID is required")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid entity ID %q", args[0])
	}
	return id, nil
}
