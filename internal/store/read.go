package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// Tag is one row of the tags table.
type Tag struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// ListTags returns every tag, active or not, ordered by id.
//
// Returns an empty slice (not nil) if there are no tags.
func (s *Store) ListTags(ctx context.Context) ([]Tag, error) {
	query, args, err := sb.Select("id", "tag", "active").From("tags").OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	tags := []Tag{}
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Active); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}

	return tags, nil
}

// TagByName returns the named tag, active or not.
func (s *Store) TagByName(ctx context.Context, name string) (Tag, error) {
	return tagByName(ctx, s.db, name)
}

// MaxImageID returns the largest image id, or 0 for an empty store.
func (s *Store) MaxImageID(ctx context.Context) (int64, error) {
	query, args, err := sb.Select("COALESCE(MAX(id), 0)").From("images").ToSql()
	if err != nil {
		return 0, fmt.Errorf("max image id: %w", err)
	}

	var id int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("max image id: %w", err)
	}
	return id, nil
}

// ImageIDByHash returns the id of the image with the given hash, active
// or not.
func (s *Store) ImageIDByHash(ctx context.Context, hash []byte) (int64, error) {
	query, args, err := sb.Select("id").From("images").Where(sq.Eq{"hash": hash}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("image by hash: %w", err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("image %x: %w", hash, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("image by hash: %w", err)
	}
	return id, nil
}

// queryRower is satisfied by *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func tagByName(ctx context.Context, q queryRower, name string) (Tag, error) {
	query, args, err := sb.Select("id", "tag", "active").From("tags").Where(sq.Eq{"tag": name}).ToSql()
	if err != nil {
		return Tag{}, fmt.Errorf("tag by name: %w", err)
	}

	var t Tag
	err = q.QueryRowContext(ctx, query, args...).Scan(&t.ID, &t.Name, &t.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return Tag{}, fmt.Errorf("tag %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return Tag{}, fmt.Errorf("tag by name: %w", err)
	}
	return t, nil
}

// activeImageID returns the id of the active image with the given hash.
func activeImageID(ctx context.Context, q queryRower, hash []byte) (int64, error) {
	query, args, err := sb.Select("id").From("images").
		Where(sq.Eq{"hash": hash, "active": 1}).ToSql()
	if err != nil {
		return 0, err
	}

	var id int64
	err = q.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("image %x: %w", hash, ErrNotFound)
	}
	return id, err
}
