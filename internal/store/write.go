package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// removeTagExpr rebuilds an image's tag list without one id.
const removeTagExpr = "(SELECT json_group_array(json_each.value) FROM json_each(images.tags) WHERE json_each.value != ?)"

const hasTagExpr = "EXISTS (SELECT 1 FROM json_each(images.tags) WHERE json_each.value = ?)"

// AddImage inserts an image, or reactivates an inactive one, and returns
// its id. Returns ErrConflict if an active image has the same hash.
func (s *Store) AddImage(ctx context.Context, hash []byte) (int64, error) {
	if len(hash) == 0 {
		return 0, fmt.Errorf("add image: empty hash")
	}

	query, args, err := sb.Insert("images").
		Columns("hash", "active", "tags").
		Values(hash, 1, "[]").
		Suffix("ON CONFLICT(hash) DO UPDATE SET active = 1 WHERE images.active = 0 RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("add image: %w", err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("add image %x: %w", hash, ErrConflict)
	}
	if err != nil {
		return 0, fmt.Errorf("add image: %w", err)
	}
	return id, nil
}

// RemoveImage deactivates an image and clears its tags and attributes.
// Returns ErrNotFound if the image does not exist or is inactive.
func (s *Store) RemoveImage(ctx context.Context, hash []byte) error {
	return s.withTx(ctx, "remove image", func(tx *sql.Tx) error {
		id, err := activeImageID(ctx, tx, hash)
		if err != nil {
			return err
		}

		if err := execBuilder(ctx, tx, sb.Update("images").
			Set("active", 0).
			Set("tags", "[]").
			Where(sq.Eq{"id": id})); err != nil {
			return err
		}

		return execBuilder(ctx, tx, sb.Delete("image_attributes").Where(sq.Eq{"image_id": id}))
	})
}

// AddTag inserts a tag, or reactivates an inactive one, and returns its id.
// Returns ErrConflict if an active tag has the same name.
func (s *Store) AddTag(ctx context.Context, name string) (int64, error) {
	if name == "" {
		return 0, fmt.Errorf("add tag: empty name")
	}

	query, args, err := sb.Insert("tags").
		Columns("tag", "active").
		Values(name, 1).
		Suffix("ON CONFLICT(tag) DO UPDATE SET active = 1 WHERE tags.active = 0 RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("add tag: %w", err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("add tag %q: %w", name, ErrConflict)
	}
	if err != nil {
		return 0, fmt.Errorf("add tag: %w", err)
	}
	return id, nil
}

// RemoveTag deactivates a tag and removes it from every image.
// Returns ErrNotFound if the tag does not exist or is inactive.
func (s *Store) RemoveTag(ctx context.Context, name string) error {
	return s.withTx(ctx, "remove tag", func(tx *sql.Tx) error {
		tag, err := tagByName(ctx, tx, name)
		if err != nil {
			return err
		}
		if !tag.Active {
			return fmt.Errorf("tag %q: %w", name, ErrNotFound)
		}

		if err := execBuilder(ctx, tx, sb.Update("tags").Set("active", 0).Where(sq.Eq{"id": tag.ID})); err != nil {
			return err
		}

		return execBuilder(ctx, tx, sb.Update("images").
			Set("tags", sq.Expr(removeTagExpr, tag.ID)).
			Where(hasTagExpr, tag.ID))
	})
}

// TagImage appends a tag to an image's tag list.
// Returns ErrNotFound if the image or tag does not exist or is inactive,
// and ErrConflict if the image already has the tag.
func (s *Store) TagImage(ctx context.Context, hash []byte, tagName string) error {
	return s.withTx(ctx, "tag image", func(tx *sql.Tx) error {
		imageID, tagID, err := imageAndTag(ctx, tx, hash, tagName)
		if err != nil {
			return err
		}

		n, err := execBuilderCount(ctx, tx, sb.Update("images").
			Set("tags", sq.Expr("json_insert(tags, '$[#]', ?)", tagID)).
			Where(sq.Eq{"id": imageID}).
			Where("NOT "+hasTagExpr, tagID))
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("image %x already tagged %q: %w", hash, tagName, ErrConflict)
		}
		return nil
	})
}

// UntagImage removes a tag from an image's tag list.
// Returns ErrNotFound if the image or tag does not exist or is inactive,
// or if the image does not have the tag.
func (s *Store) UntagImage(ctx context.Context, hash []byte, tagName string) error {
	return s.withTx(ctx, "untag image", func(tx *sql.Tx) error {
		imageID, tagID, err := imageAndTag(ctx, tx, hash, tagName)
		if err != nil {
			return err
		}

		n, err := execBuilderCount(ctx, tx, sb.Update("images").
			Set("tags", sq.Expr(removeTagExpr, tagID)).
			Where(sq.Eq{"id": imageID}).
			Where(hasTagExpr, tagID))
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("image %x not tagged %q: %w", hash, tagName, ErrNotFound)
		}
		return nil
	})
}

// AddAttribute stores a key/value pair on an image. With singular set,
// other values under the same key are removed first.
// Returns ErrNotFound if the image does not exist or is inactive, and
// ErrConflict if the exact pair is already present.
func (s *Store) AddAttribute(ctx context.Context, hash []byte, key, value string, singular bool) error {
	return s.withTx(ctx, "add attribute", func(tx *sql.Tx) error {
		imageID, err := activeImageID(ctx, tx, hash)
		if err != nil {
			return err
		}

		if singular {
			if err := execBuilder(ctx, tx, sb.Delete("image_attributes").Where(sq.And{
				sq.Eq{"image_id": imageID, "key": key},
				sq.NotEq{"value": value},
			})); err != nil {
				return err
			}
		}

		n, err := execBuilderCount(ctx, tx, sb.Insert("image_attributes").
			Columns("image_id", "key", "value", "value_digest").
			Values(imageID, key, value, ValueDigest(value)).
			Suffix("ON CONFLICT DO NOTHING"))
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("attribute %s=%q: %w", key, value, ErrConflict)
		}
		return nil
	})
}

// RemoveAttribute deletes one key/value pair from an image.
// Returns ErrNotFound if the image is missing or inactive, or the pair is
// not present.
func (s *Store) RemoveAttribute(ctx context.Context, hash []byte, key, value string) error {
	return s.withTx(ctx, "remove attribute", func(tx *sql.Tx) error {
		imageID, err := activeImageID(ctx, tx, hash)
		if err != nil {
			return err
		}

		n, err := execBuilderCount(ctx, tx, sb.Delete("image_attributes").
			Where(sq.Eq{"image_id": imageID, "key": key, "value": value}))
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("attribute %s=%q: %w", key, value, ErrNotFound)
		}
		return nil
	})
}

// SetCaption replaces an image's caption.
// Returns ErrNotFound if the image does not exist or is inactive, and
// ErrConflict if the caption is unchanged.
func (s *Store) SetCaption(ctx context.Context, hash []byte, caption string) error {
	return s.withTx(ctx, "set caption", func(tx *sql.Tx) error {
		imageID, err := activeImageID(ctx, tx, hash)
		if err != nil {
			return err
		}

		n, err := execBuilderCount(ctx, tx, sb.Update("images").
			Set("caption", caption).
			Where(sq.Eq{"id": imageID}).
			Where("caption IS NOT ?", caption))
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("caption unchanged: %w", ErrConflict)
		}
		return nil
	})
}

func imageAndTag(ctx context.Context, tx *sql.Tx, hash []byte, tagName string) (imageID, tagID int64, err error) {
	tag, err := tagByName(ctx, tx, tagName)
	if err != nil {
		return 0, 0, err
	}
	if !tag.Active {
		return 0, 0, fmt.Errorf("tag %q: %w", tagName, ErrNotFound)
	}

	imageID, err = activeImageID(ctx, tx, hash)
	if err != nil {
		return 0, 0, err
	}
	return imageID, tag.ID, nil
}

// withTx runs fn in a transaction, committing only if fn succeeds.
func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(tx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}

func execBuilder(ctx context.Context, tx *sql.Tx, b sq.Sqlizer) error {
	_, err := execBuilderCount(ctx, tx, b)
	return err
}

func execBuilderCount(ctx context.Context, tx *sql.Tx, b sq.Sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
