package cli

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
)

// ImageRef identifies one stored image.
type ImageRef struct {
	ID   int64  `json:"id"`
	Hash string `json:"hash"`
}

// NewImageCommand creates the image command group.
func NewImageCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "image",
		Short: "Edit the images of a SQLite store",
		Long: `Edit the images of a SQLite store. Images are addressed by their hex hash.

Removing an image deactivates it and clears its tags and attributes.

Examples:
  tagstorm image get --db ./images.db a1
  tagstorm image tag --db ./images.db a1 cat
  tagstorm image caption --db ./images.db a1 "a cat on a mat"
  tagstorm image attr --db ./images.db --singular a1 source scan
  tagstorm image attr --db ./images.db --remove a1 color red
  tagstorm image last-id --db ./images.db`,
	}

	var singular, remove bool
	attr := storeSubcommand(opts, "attr <hash> <key> <value>", "Add or remove an attribute value",
		cobra.ExactArgs(3), func(r *storeRun, args []string) error {
			return runImageAttr(r, args, singular, remove)
		})
	attr.Flags().BoolVar(&singular, "singular", false, "replace other values under the same key")
	attr.Flags().BoolVar(&remove, "remove", false, "remove the value instead of adding it")
	attr.MarkFlagsMutuallyExclusive("singular", "remove")

	cmd.AddCommand(
		storeSubcommand(opts, "get <hash>", "Show the id of an image", cobra.ExactArgs(1), runImageGet),
		storeSubcommand(opts, "add <hash>", "Add or reactivate an image", cobra.ExactArgs(1), runImageAdd),
		storeSubcommand(opts, "rm <hash>", "Deactivate an image", cobra.ExactArgs(1), runImageRemove),
		storeSubcommand(opts, "tag <hash> <tag>", "Tag an image", cobra.ExactArgs(2), runImageTag),
		storeSubcommand(opts, "untag <hash> <tag>", "Remove a tag from an image", cobra.ExactArgs(2), runImageUntag),
		storeSubcommand(opts, "caption <hash> <caption>", "Set an image's caption", cobra.ExactArgs(2), runImageCaption),
		storeSubcommand(opts, "last-id", "Show the largest image id", cobra.NoArgs, runImageLastID),
		attr,
	)

	return cmd
}

// parseHash decodes a hex image hash argument.
func (r *storeRun) parseHash(arg string) ([]byte, error) {
	hash, err := hex.DecodeString(arg)
	if err == nil && len(hash) == 0 {
		err = fmt.Errorf("empty hash")
	}
	if err != nil {
		return nil, r.formatter.Fail(ExitCommandError, ErrCodeReadInput,
			fmt.Sprintf("invalid image hash %q", arg), err)
	}
	return hash, nil
}

func runImageGet(r *storeRun, args []string) error {
	hash, err := r.parseHash(args[0])
	if err != nil {
		return err
	}
	id, err := r.store.ImageIDByHash(r.ctx, hash)
	if err != nil {
		return r.formatter.failStore("get image", err)
	}

	ref := ImageRef{ID: id, Hash: hex.EncodeToString(hash)}
	return r.report(ref, fmt.Sprintf("%d\t%s", ref.ID, ref.Hash))
}

func runImageAdd(r *storeRun, args []string) error {
	hash, err := r.parseHash(args[0])
	if err != nil {
		return err
	}
	id, err := r.store.AddImage(r.ctx, hash)
	if err != nil {
		return r.formatter.failStore("add image", err)
	}
	r.logger.Info("image added", "hash", args[0], "id", id)

	ref := ImageRef{ID: id, Hash: hex.EncodeToString(hash)}
	return r.report(ref, fmt.Sprintf("✓ Added image %s (id %d)", ref.Hash, ref.ID))
}

func runImageRemove(r *storeRun, args []string) error {
	hash, err := r.parseHash(args[0])
	if err != nil {
		return err
	}
	if err := r.store.RemoveImage(r.ctx, hash); err != nil {
		return r.formatter.failStore("remove image", err)
	}
	r.logger.Info("image removed", "hash", args[0])

	return r.report(map[string]string{"removed": args[0]},
		fmt.Sprintf("✓ Removed image %s", args[0]))
}

func runImageTag(r *storeRun, args []string) error {
	hash, err := r.parseHash(args[0])
	if err != nil {
		return err
	}
	if err := r.store.TagImage(r.ctx, hash, args[1]); err != nil {
		return r.formatter.failStore("tag image", err)
	}

	return r.report(map[string]string{"image": args[0], "tagged": args[1]},
		fmt.Sprintf("✓ Tagged %s with %q", args[0], args[1]))
}

func runImageUntag(r *storeRun, args []string) error {
	hash, err := r.parseHash(args[0])
	if err != nil {
		return err
	}
	if err := r.store.UntagImage(r.ctx, hash, args[1]); err != nil {
		return r.formatter.failStore("untag image", err)
	}

	return r.report(map[string]string{"image": args[0], "untagged": args[1]},
		fmt.Sprintf("✓ Removed %q from %s", args[1], args[0]))
}

func runImageCaption(r *storeRun, args []string) error {
	hash, err := r.parseHash(args[0])
	if err != nil {
		return err
	}
	if err := r.store.SetCaption(r.ctx, hash, args[1]); err != nil {
		return r.formatter.failStore("set caption", err)
	}

	return r.report(map[string]string{"image": args[0], "caption": args[1]},
		fmt.Sprintf("✓ Captioned %s", args[0]))
}

func runImageAttr(r *storeRun, args []string, singular, remove bool) error {
	hash, err := r.parseHash(args[0])
	if err != nil {
		return err
	}
	key, value := args[1], args[2]

	if remove {
		if err := r.store.RemoveAttribute(r.ctx, hash, key, value); err != nil {
			return r.formatter.failStore("remove attribute", err)
		}
		return r.report(map[string]string{"image": args[0], "removed": key + "=" + value},
			fmt.Sprintf("✓ Removed %s=%q from %s", key, value, args[0]))
	}

	if err := r.store.AddAttribute(r.ctx, hash, key, value, singular); err != nil {
		return r.formatter.failStore("add attribute", err)
	}
	return r.report(map[string]string{"image": args[0], "added": key + "=" + value},
		fmt.Sprintf("✓ Added %s=%q to %s", key, value, args[0]))
}

func runImageLastID(r *storeRun, _ []string) error {
	id, err := r.store.MaxImageID(r.ctx)
	if err != nil {
		return r.formatter.failStore("last image id", err)
	}
	return r.report(map[string]int64{"id": id}, fmt.Sprintf("%d", id))
}
