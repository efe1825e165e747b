package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tagstorm/internal/engine"
	"github.com/roach88/tagstorm/internal/store"
	"github.com/roach88/tagstorm/internal/tags"
)

// TagInfo is a stored tag together with what the reference data says
// about it.
type TagInfo struct {
	store.Tag
	Mapping tags.TagLookup `json:"mapping"`
}

// NewTagsCommand creates the tags command group.
func NewTagsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List and edit the tags of a SQLite store",
		Long: `List and edit the tags of a SQLite store.

Removing a tag deactivates it and takes it off every image. Adding a
removed tag again reactivates it under its old id.

Examples:
  tagstorm tags list --db ./images.db
  tagstorm tags get --config tagstorm.cue ff7
  tagstorm tags add --db ./images.db landscape
  tagstorm tags rm --db ./images.db landscape`,
	}

	cmd.AddCommand(
		storeSubcommand(opts, "list", "List every tag, active or not", cobra.NoArgs, runTagsList),
		storeSubcommand(opts, "get <name>", "Show a tag and its reference data", cobra.ExactArgs(1), runTagsGet),
		storeSubcommand(opts, "add <name>", "Add or reactivate a tag", cobra.ExactArgs(1), runTagsAdd),
		storeSubcommand(opts, "rm <name>", "Deactivate a tag", cobra.ExactArgs(1), runTagsRemove),
	)

	return cmd
}

func runTagsList(r *storeRun, _ []string) error {
	list, err := r.store.ListTags(r.ctx)
	if err != nil {
		return r.formatter.failStore("list tags", err)
	}

	lines := make([]string, 0, len(list))
	for _, t := range list {
		lines = append(lines, tagLine(t))
	}
	if len(lines) == 0 {
		lines = append(lines, "(no tags)")
	}
	return r.report(list, strings.Join(lines, "\n"))
}

func runTagsGet(r *storeRun, args []string) error {
	// Reference data is checked before the store is read.
	mappings, err := loadMappings(r.cfg)
	if err != nil {
		return r.formatter.failTags(err)
	}

	tag, err := r.store.TagByName(r.ctx, args[0])
	if err != nil {
		return r.formatter.failStore("get tag", err)
	}

	eng := engine.New(r.store,
		engine.WithLogger(r.logger),
		engine.WithMappings(mappings),
	)
	info := TagInfo{Tag: tag, Mapping: eng.Lookup([]string{tag.Name}).Tags[0]}

	return r.report(info, tagLine(tag)+"\n"+lookupLine(info.Mapping))
}

func runTagsAdd(r *storeRun, args []string) error {
	id, err := r.store.AddTag(r.ctx, args[0])
	if err != nil {
		return r.formatter.failStore("add tag", err)
	}
	r.logger.Info("tag added", "tag", args[0], "id", id)

	return r.report(store.Tag{ID: id, Name: args[0], Active: true},
		fmt.Sprintf("✓ Added tag %q (id %d)", args[0], id))
}

func runTagsRemove(r *storeRun, args []string) error {
	if err := r.store.RemoveTag(r.ctx, args[0]); err != nil {
		return r.formatter.failStore("remove tag", err)
	}
	r.logger.Info("tag removed", "tag", args[0])

	return r.report(map[string]string{"removed": args[0]},
		fmt.Sprintf("✓ Removed tag %q", args[0]))
}

func tagLine(t store.Tag) string {
	line := fmt.Sprintf("%d\t%s", t.ID, t.Name)
	if !t.Active {
		line += "\tinactive"
	}
	return line
}
