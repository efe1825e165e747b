package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tagstorm/internal/store"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		Long: `Create the tables of the configured database if they do not exist.

A SQLite database file is created when missing. A Postgres database
must exist already; only its tables are created.

Examples:
  tagstorm migrate --db ./images.db
  tagstorm migrate --driver postgres --db postgres://localhost/tags`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(opts, cmd)
		},
	}

	opts.DB.register(cmd)

	return cmd
}

func runMigrate(opts *StoreOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
	if err := opts.DB.apply(cfg); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid database flags", err)
	}

	logger := setupLogging(cmd.ErrOrStderr(), cfg, opts.Verbose)
	ctx := commandContext(cmd)

	switch cfg.Database.Driver {
	case "postgres":
		pg, err := store.OpenPostgres(ctx, cfg.Database.DSN)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
		}
		defer pg.Close()

		if err := pg.Migrate(ctx); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to apply schema", err)
		}
	default:
		// Opening a SQLite store applies the schema.
		st, err := store.Open(cfg.Database.DSN)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
		}
		if err := st.Close(); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to close database", err)
		}
	}
	logger.Info("schema ready", "driver", cfg.Database.Driver)

	if formatter.Format == "json" {
		return formatter.Success(map[string]string{"driver": cfg.Database.Driver})
	}
	fmt.Fprintf(formatter.Writer, "✓ Schema ready (%s)\n", cfg.Database.Driver)
	return nil
}
