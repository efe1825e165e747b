package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tagstorm/internal/engine"
	"github.com/roach88/tagstorm/internal/project"
	"github.com/roach88/tagstorm/internal/search"
)

// SearchOptions holds flags for the search command.
type SearchOptions struct {
	*RootOptions
	DB      DatabaseFlags
	Request string // inline request JSON

	// IDGenerator allows overriding the query id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator engine.IDGenerator
}

// SearchResponse is the response body when more than one column is
// selected.
type SearchResponse struct {
	Images []project.Record `json:"images"`
}

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SearchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "search [request.json|-]",
		Short: "Run a search request against the store",
		Long: `Run a JSON search request and print the matching images.

With one selected column the response is {"<column>": [values...]},
otherwise {"images": [records...]}. A column selected twice counts once,
and a search with no matches always returns {"images": []}. Records keep
the select order.

Exit codes:
  0 - Search succeeded
  1 - Request rejected (invalid query)
  2 - Command error (config, tag data, database)

Examples:
  tagstorm search --db ./images.db request.json
  tagstorm search --config tagstorm.cue --request '{"select":["id","tags"],"operator":{"tag":5}}'
  tagstorm search --driver postgres --db postgres://localhost/tags -`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(opts, args, cmd)
		},
	}

	opts.DB.register(cmd)
	cmd.Flags().StringVar(&opts.Request, "request", "", "inline request JSON")

	return cmd
}

func runSearch(opts *SearchOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
	if err := opts.DB.apply(cfg); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid database flags", err)
	}

	logger := setupLogging(cmd.ErrOrStderr(), cfg, opts.Verbose)

	// Reference data is checked before anything else starts.
	mappings, err := loadMappings(cfg)
	if err != nil {
		return formatter.failTags(err)
	}

	data, err := requestBytes(cmd, opts.Request, args)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeReadInput, "failed to read request", err)
	}
	req, err := search.ParseRequest(data)
	if err != nil {
		return formatter.failSearch(err)
	}

	ctx := commandContext(cmd)

	logger.Debug("opening database", "driver", cfg.Database.Driver)
	q, err := openQuerier(ctx, cfg.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer func() {
		if closeErr := q.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	engineOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithMappings(mappings),
		engine.WithMaxLimit(cfg.Search.MaxLimit),
	}
	if opts.IDGenerator != nil {
		engineOpts = append(engineOpts, engine.WithIDGenerator(opts.IDGenerator))
	}
	eng := engine.New(q, engineOpts...)

	result, err := eng.Search(ctx, req)
	if err != nil {
		return formatter.failSearch(err)
	}

	body, err := responseBody(result)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeSearchFailed, "failed to shape response", err)
	}

	if formatter.Format == "json" {
		return json.NewEncoder(formatter.Writer).Encode(CLIResponse{
			Status:  "ok",
			Data:    body,
			QueryID: result.QueryID,
		})
	}

	out, err := json.Marshal(body)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to encode response", err)
	}
	fmt.Fprintln(formatter.Writer, string(out))
	return nil
}

// responseBody shapes a result: flattened when records hold a single
// distinct column, a list of records otherwise. An empty result is always
// a list.
func responseBody(result *engine.Result) (any, error) {
	if _, ok := result.SingleColumn(); ok && len(result.Records) > 0 {
		return result.Flatten()
	}
	return SearchResponse{Images: result.Records}, nil
}
