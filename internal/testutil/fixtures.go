// Package testutil provides shared fixtures for tests: a temporary SQLite
// store, a seeded image collection, and sample tag reference data.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/tagstorm/internal/store"
	"github.com/roach88/tagstorm/internal/tags"
)

// NewStore opens an empty store in a temp directory. It is closed when the
// test ends.
func NewStore(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func str(s string) *string { return &s }

// Images is the seeded collection. Tag ids are assigned in first-use
// order: cat=1, animal=2, dog=3, landscape=4.
var Images = []store.ImageRecord{
	{
		Hash:       "a1",
		Tags:       []string{"cat", "animal"},
		Caption:    str("a cat"),
		Attributes: map[string][]string{"color": {"red", "blue"}, "source": {"scan"}},
	},
	{
		Hash:       "b2",
		Tags:       []string{"dog", "animal"},
		Caption:    str("a dog"),
		Attributes: map[string][]string{"color": {"red"}},
	},
	{
		Hash: "c3",
		Tags: []string{"landscape"},
	},
	{
		Hash:       "d4",
		Tags:       []string{"cat"},
		Attributes: map[string][]string{"source": {"web"}},
	},
}

// Tag ids in the seeded collection.
const (
	TagCat       = 1
	TagAnimal    = 2
	TagDog       = 3
	TagLandscape = 4
)

// SeededStore returns a store loaded with Images. Image ids are 1..4 in
// order.
func SeededStore(t testing.TB) *store.Store {
	t.Helper()
	s := NewStore(t)
	if _, err := s.Load(context.Background(), Images); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	return s
}

// Mappings returns a small resolved snapshot:
// ff7 -> final_fantasy_vii, final_fantasy_vii => video_games => media.
func Mappings() *tags.Mappings {
	active := func(a, c string) tags.Relation {
		return tags.Relation{Antecedent: a, Consequent: c, Status: tags.StatusActive}
	}
	return tags.MustResolve(
		[]tags.Relation{active("ff7", "final_fantasy_vii")},
		[]tags.Relation{
			active("final_fantasy_vii", "video_games"),
			active("video_games", "media"),
		},
		[]string{"spoilers"},
		[]string{"old_tag"},
	)
}
