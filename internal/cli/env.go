package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tagstorm/internal/config"
	"github.com/roach88/tagstorm/internal/engine"
	"github.com/roach88/tagstorm/internal/store"
	"github.com/roach88/tagstorm/internal/tags"
)

// DatabaseFlags override the config file's database section.
type DatabaseFlags struct {
	Driver string
	DSN    string
}

func (d *DatabaseFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&d.DSN, "db", "", "database DSN or SQLite path (overrides config)")
	cmd.Flags().StringVar(&d.Driver, "driver", "", "database driver: sqlite|postgres (overrides config)")
}

func (d DatabaseFlags) apply(cfg *config.Config) error {
	if d.Driver != "" {
		if d.Driver != "sqlite" && d.Driver != "postgres" {
			return fmt.Errorf("unknown driver %q: must be sqlite or postgres", d.Driver)
		}
		cfg.Database.Driver = d.Driver
	}
	if d.DSN != "" {
		cfg.Database.DSN = d.DSN
	}
	return nil
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// loadConfig reads --config, or returns the defaults when it is unset.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	if opts.Config == "" {
		return config.Default(), nil
	}
	return config.Load(opts.Config)
}

// setupLogging installs a text logger on w at the configured level, or
// Debug with --verbose, and returns it.
func setupLogging(w io.Writer, cfg *config.Config, verbose bool) *slog.Logger {
	level := cfg.LogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// querier is a search backend the command owns and must close.
type querier interface {
	engine.Querier
	Close() error
}

// openQuerier opens the configured store.
func openQuerier(ctx context.Context, db config.Database) (querier, error) {
	switch db.Driver {
	case "postgres":
		pg, err := store.OpenPostgres(ctx, db.DSN)
		if err != nil {
			return nil, err
		}
		return pg, nil
	case "sqlite":
		st, err := openExistingSQLite(db.DSN)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown driver %q", db.Driver)
	}
}

// openExistingSQLite opens a SQLite store that must already exist.
// Searches and edits must not create an empty database by accident.
func openExistingSQLite(dsn string) (*store.Store, error) {
	if dsn != ":memory:" {
		if _, err := os.Stat(dsn); err != nil {
			return nil, err
		}
	}
	return store.Open(dsn)
}

// StoreOptions holds flags for commands that read or edit a SQLite store.
type StoreOptions struct {
	*RootOptions
	DB DatabaseFlags
}

// storeRun is what a store command body works with.
type storeRun struct {
	ctx       context.Context
	cfg       *config.Config
	store     *store.Store
	formatter *OutputFormatter
	logger    *slog.Logger
}

// report prints data in JSON mode and text otherwise.
func (r *storeRun) report(data any, text string) error {
	if r.formatter.Format == "json" {
		return r.formatter.Success(data)
	}
	fmt.Fprintln(r.formatter.Writer, text)
	return nil
}

// withStore loads config, opens the configured SQLite store and runs fn
// against it.
func withStore(opts *StoreOptions, cmd *cobra.Command, fn func(r *storeRun) error) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
	if err := opts.DB.apply(cfg); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid database flags", err)
	}
	if cfg.Database.Driver != "sqlite" {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase,
			fmt.Sprintf("%s edits sqlite stores only, configured driver is %q", cmd.CommandPath(), cfg.Database.Driver), nil)
	}

	logger := setupLogging(cmd.ErrOrStderr(), cfg, opts.Verbose)

	logger.Debug("opening database", "path", cfg.Database.DSN)
	st, err := openExistingSQLite(cfg.Database.DSN)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	return fn(&storeRun{
		ctx:       commandContext(cmd),
		cfg:       cfg,
		store:     st,
		formatter: formatter,
		logger:    logger,
	})
}

// storeSubcommand builds a leaf command that runs fn against the store.
func storeSubcommand(opts *StoreOptions, use, short string, posArgs cobra.PositionalArgs, fn func(r *storeRun, args []string) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		Args:          posArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, cmd, func(r *storeRun) error {
				return fn(r, args)
			})
		},
	}
	opts.DB.register(cmd)
	return cmd
}

// loadMappings reads the configured tag reference data. With nothing
// configured it returns an empty snapshot.
func loadMappings(cfg *config.Config) (*tags.Mappings, error) {
	return tags.Load(cfg.TagFiles())
}

// readInput reads a request from a file, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
