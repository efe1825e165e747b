package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tagstorm/internal/store"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	DB DatabaseFlags
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <images.ndjson|->",
		Short: "Load image records into a SQLite store",
		Long: `Load newline-delimited image records into a SQLite store, creating the
database if it does not exist.

Each line is {"hash": "<hex>", "tags": [names], "caption": "...",
"attributes": {"key": ["value", ...]}}. Tags are created on first use.

Example:
  tagstorm import --db ./images.db images.ndjson`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	opts.DB.register(cmd)

	return cmd
}

func runImport(opts *ImportOptions, path string, cmd *cobra.Command) error {
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
			fmt.Sprintf("import writes to sqlite only, configured driver is %q", cfg.Database.Driver), nil)
	}

	logger := setupLogging(cmd.ErrOrStderr(), cfg, opts.Verbose)

	var records []store.ImageRecord
	if path == "-" {
		records, err = store.ReadImageRecords(cmd.InOrStdin())
	} else {
		var f *os.File
		f, err = os.Open(path)
		if err == nil {
			records, err = store.ReadImageRecords(f)
			f.Close()
		}
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeReadInput, "failed to read image records", err)
	}

	logger.Info("opening database", "path", cfg.Database.DSN)
	st, err := store.Open(cfg.Database.DSN)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	stats, err := st.Load(commandContext(cmd), records)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeImportFailed,
			fmt.Sprintf("import stopped after %d image(s)", stats.Images), err)
	}
	logger.Info("import complete", "images", stats.Images, "tags", stats.Tags, "attributes", stats.Attributes)

	if formatter.Format == "json" {
		return formatter.Success(stats)
	}
	fmt.Fprintf(formatter.Writer, "✓ Imported %d image(s), %d new tag(s), %d attribute value(s)\n",
		stats.Images, stats.Tags, stats.Attributes)
	return nil
}
