package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tagstorm/internal/bind"
	"github.com/roach88/tagstorm/internal/search"
	"github.com/roach88/tagstorm/internal/searchsql"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Dialect string // "postgres" | "sqlite"; defaults to the configured driver
	Request string // inline request JSON
}

// CompileOutput is the compiled form of a request.
type CompileOutput struct {
	Dialect string   `json:"dialect"`
	SQL     string   `json:"sql"`
	Params  []Param  `json:"params"`
	Columns []string `json:"columns"`
}

// Param is one bound value, in placeholder order.
type Param struct {
	Index int       `json:"index"`
	Kind  bind.Kind `json:"kind"`
	Value any       `json:"value"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile [request.json|-]",
		Short: "Compile a search request to SQL",
		Long: `Compile a JSON search request to a parameterized SQL statement.

Nothing is executed. The statement and its bound values are printed so the
query can be inspected or run by hand.

Examples:
  tagstorm compile request.json
  tagstorm compile --dialect sqlite --request '{"select":["id"],"operator":{"tag":5}}'
  echo '{"select":["count"]}' | tagstorm compile -`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dialect, "dialect", "", "SQL dialect: postgres|sqlite (default: configured driver)")
	cmd.Flags().StringVar(&opts.Request, "request", "", "inline request JSON")

	return cmd
}

func runCompile(opts *CompileOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}

	dialectName := opts.Dialect
	if dialectName == "" {
		dialectName = cfg.Database.Driver
	}
	dialect, err := searchsql.ParseDialect(dialectName)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "invalid dialect", err)
	}

	data, err := requestBytes(cmd, opts.Request, args)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeReadInput, "failed to read request", err)
	}

	req, err := search.ParseRequest(data)
	if err != nil {
		return formatter.failSearch(err)
	}

	compiled, err := searchsql.NewCompiler(dialect).Compile(req)
	if err != nil {
		return formatter.failSearch(err)
	}

	out, err := newCompileOutput(dialect, compiled)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to convert bound values", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(out)
	}
	writeCompileText(formatter, out)
	return nil
}

// requestBytes returns the inline request if given, else the file or
// stdin named by args.
func requestBytes(cmd *cobra.Command, inline string, args []string) ([]byte, error) {
	if inline != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("--request and a request file are mutually exclusive")
		}
		return []byte(inline), nil
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("no request given: pass a file, - for stdin, or --request")
	}
	return readInput(cmd, args[0])
}

func newCompileOutput(d searchsql.Dialect, c searchsql.Compiled) (CompileOutput, error) {
	out := CompileOutput{
		Dialect: d.String(),
		SQL:     c.SQL,
		Params:  make([]Param, len(c.Values)),
		Columns: make([]string, len(c.Columns)),
	}
	for i, v := range c.Values {
		native, err := bind.Native(v)
		if err != nil {
			return CompileOutput{}, err
		}
		out.Params[i] = Param{Index: i + 1, Kind: v.Kind(), Value: native}
	}
	for i, col := range c.Columns {
		out.Columns[i] = col.Name()
	}
	return out, nil
}

func writeCompileText(f *OutputFormatter, out CompileOutput) {
	fmt.Fprintf(f.Writer, "-- %s\n%s\n", out.Dialect, out.SQL)
	if len(out.Params) > 0 {
		fmt.Fprintln(f.Writer)
		for _, p := range out.Params {
			fmt.Fprintf(f.Writer, "#%d %s %v\n", p.Index, p.Kind, p.Value)
		}
	}
	fmt.Fprintf(f.Writer, "\ncolumns: %s\n", strings.Join(out.Columns, ", "))
}
