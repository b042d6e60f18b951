// rollcall is the directory indexing and scheduling engine.
//
// Usage:
//
//	rollcall serve                              run the engine, rebuilding on directory events
//	rollcall import -f seed.yaml                load entities and activities into the store
//	rollcall search <query>                     prefix search with fuzzy fallback
//	rollcall free --day Mon --ids 1,2           common free time inside working hours
//	rollcall recommend <id>                     entities sharing a keyword
//	rollcall presence <id>                      where someone is right now
//	rollcall book --id 5 --day Mon --start 09:00 --end 10:00 --label Lecture
//
// Every command accepts --config (YAML file) and --log-level. Settings can
// also come from ROLLCALL_* environment variables or a .env file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/scrypster/rollcall/internal/config"
	"github.com/scrypster/rollcall/internal/engine"
	"github.com/scrypster/rollcall/internal/logging"
	"github.com/scrypster/rollcall/internal/storage"
	"github.com/scrypster/rollcall/internal/storage/postgres"
	"github.com/scrypster/rollcall/internal/storage/sqlite"
)

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

// command is one subcommand. flags are registered on fs before parsing.
type command struct {
	summary string
	flags   func(fs *pflag.FlagSet)
	run     func(ctx context.Context, a *app, args []string) error
}

// app carries what every command shares once flags are parsed.
type app struct {
	cfg    *config.Config
	logger *log.Logger
	fs     *pflag.FlagSet
	stdout io.Writer
}

func commands() map[string]*command {
	return map[string]*command{
		"serve":     serveCommand(),
		"import":    importCommand(),
		"search":    searchCommand(),
		"free":      freeCommand(),
		"recommend": recommendCommand(),
		"presence":  presenceCommand(),
		"book":      bookCommand(),
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage(stderr)
		if len(args) == 0 {
			return errUsage
		}
		return nil
	}

	cmd, ok := commands()[args[0]]
	if !ok {
		printUsage(stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}

	fs := pflag.NewFlagSet("rollcall "+args[0], pflag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a YAML config file (default: $ROLLCALL_CONFIG)")
	logLevel := fs.String("log-level", "", "debug, info, warn or error (overrides config)")
	if cmd.flags != nil {
		cmd.flags(fs)
	}
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	a := &app{
		cfg:    cfg,
		logger: logging.New(logging.Options{Level: cfg.Log.Level, Writer: stderr, Prefix: "rollcall"}),
		fs:     fs,
		stdout: stdout,
	}
	return cmd.run(ctx, a, fs.Args())
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `rollcall: directory search and scheduling engine

Usage:
  rollcall <command> [flags] [args]

Commands:
`)
	for _, name := range []string{"serve", "import", "search", "free", "recommend", "presence", "book"} {
		fmt.Fprintf(w, "  %-10s %s\n", name, commands()[name].summary)
	}
	fmt.Fprint(w, "\nRun 'rollcall <command> --help' for command flags.\n")
}

// openStore opens the configured directory store.
func (a *app) openStore() (storage.Directory, error) {
	switch a.cfg.Storage.Engine {
	case "postgres":
		return postgres.NewDirectoryStore(a.cfg.Storage.PostgresDSN)
	default:
		if err := os.MkdirAll(a.cfg.Storage.DataPath, 0o700); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		return sqlite.NewDirectoryStore(filepath.Join(a.cfg.Storage.DataPath, "rollcall.db"))
	}
}

// openEngine opens the store, builds an engine over a guarded source, and
// runs the first rebuild. The caller closes the returned store.
func (a *app) openEngine(ctx context.Context) (*engine.Engine, storage.Directory, error) {
	store, err := a.openStore()
	if err != nil {
		return nil, nil, err
	}

	engCfg, err := engine.ConfigFromSettings(a.cfg)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	guarded := storage.NewGuarded(store, storage.BreakerConfig{
		MaxFailures: uint32(a.cfg.Breaker.MaxFailures),
		Timeout:     a.cfg.Breaker.Timeout,
	}, a.logger)

	eng, err := engine.New(store, engCfg, engine.WithSource(guarded), engine.WithLogger(a.logger))
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	if err := eng.Rebuild(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	return eng, store, nil
}
