package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tagstorm/internal/tags"
)

// MappingsOptions holds flags for the mappings command.
type MappingsOptions struct {
	*RootOptions
	Files tags.Files // overrides the config file's tags section
	Stats bool
}

// NewMappingsCommand creates the mappings command.
func NewMappingsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MappingsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "mappings [tag...]",
		Short: "Resolve tag aliases and implications",
		Long: `Load tag reference data and print the resolved mappings.

Without arguments the whole snapshot is printed: aliases, the transitive
implication closure, blacklist and deprecations. With tag names, each tag
is looked up and the expanded tag set is printed.

Invalid reference data (self alias, conflicting alias, alias chain,
malformed record) exits with code 2.

Examples:
  tagstorm mappings --aliases aliases.ndjson --implications implications.ndjson
  tagstorm mappings --config tagstorm.cue ff7 cat
  tagstorm mappings --config tagstorm.cue --stats`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMappings(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Files.Aliases, "aliases", "", "alias relations (NDJSON)")
	cmd.Flags().StringVar(&opts.Files.Implications, "implications", "", "implication relations (NDJSON)")
	cmd.Flags().StringVar(&opts.Files.Blacklist, "blacklist", "", "blacklisted tags, one per line")
	cmd.Flags().StringVar(&opts.Files.Deprecations, "deprecations", "", "deprecated tags, one per line")
	cmd.Flags().BoolVar(&opts.Stats, "stats", false, "print entry counts only")

	return cmd
}

func runMappings(opts *MappingsOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
	override(&cfg.Tags.Aliases, opts.Files.Aliases)
	override(&cfg.Tags.Implications, opts.Files.Implications)
	override(&cfg.Tags.Blacklist, opts.Files.Blacklist)
	override(&cfg.Tags.Deprecations, opts.Files.Deprecations)

	m, err := loadMappings(cfg)
	if err != nil {
		return formatter.failTags(err)
	}

	var out any
	switch {
	case opts.Stats:
		out = m.Stats()
	case len(args) > 0:
		out = m.Lookup(args)
	default:
		out = m.Snapshot()
	}

	if formatter.Format == "json" {
		return formatter.Success(out)
	}

	if stats, ok := out.(tags.Stats); ok {
		fmt.Fprintf(formatter.Writer, "aliases: %d\nimplications: %d\nblacklist: %d\ndeprecations: %d\n",
			stats.Aliases, stats.Implications, stats.Blacklist, stats.Deprecations)
		return nil
	}
	if res, ok := out.(tags.LookupResult); ok {
		writeLookupText(formatter, res)
		return nil
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to encode mappings", err)
	}
	fmt.Fprintln(formatter.Writer, string(data))
	return nil
}

func override(dst *string, flag string) {
	if flag != "" {
		*dst = flag
	}
}

func writeLookupText(f *OutputFormatter, res tags.LookupResult) {
	for _, t := range res.Tags {
		fmt.Fprintln(f.Writer, lookupLine(t))
	}
	fmt.Fprintf(f.Writer, "\nexpanded: %s\n", strings.Join(res.Expanded, ", "))
}

// lookupLine renders one tag as "tag -> canonical => implied [flags]".
func lookupLine(t tags.TagLookup) string {
	line := t.Tag
	if t.Alias {
		line += " -> " + t.Canonical
	}
	if len(t.Implied) > 0 {
		line += " => " + strings.Join(t.Implied, ", ")
	}
	var flags []string
	if t.Blacklisted {
		flags = append(flags, "blacklisted")
	}
	if t.Deprecated {
		flags = append(flags, "deprecated")
	}
	if len(flags) > 0 {
		line += " [" + strings.Join(flags, ", ") + "]"
	}
	return line
}
