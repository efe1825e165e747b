package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// addTestImage adds an image and fails the test on error.
func addTestImage(t *testing.T, s *Store, hash []byte) int64 {
	t.Helper()
	id, err := s.AddImage(context.Background(), hash)
	require.NoError(t, err)
	return id
}

// addTestTag adds a tag and fails the test on error.
func addTestTag(t *testing.T, s *Store, name string) int64 {
	t.Helper()
	id, err := s.AddTag(context.Background(), name)
	require.NoError(t, err)
	return id
}

// imageTags reads an image's raw tag list column.
func imageTags(t *testing.T, s *Store, id int64) string {
	t.Helper()
	var tags string
	require.NoError(t, s.db.QueryRow("SELECT tags FROM images WHERE id = ?", id).Scan(&tags))
	return tags
}

// imageAttributes reads an image's attribute values for key, ordered.
func imageAttributes(t *testing.T, s *Store, id int64, key string) []string {
	t.Helper()
	rows, err := s.db.Query("SELECT value FROM image_attributes WHERE image_id = ? AND key = ? ORDER BY value", id, key)
	require.NoError(t, err)
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		require.NoError(t, rows.Scan(&v))
		values = append(values, v)
	}
	require.NoError(t, rows.Err())
	return values
}
