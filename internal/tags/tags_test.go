package tags

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func active(ante, cons string) Relation {
	return Relation{Antecedent: ante, Consequent: cons, Status: StatusActive}
}

func TestResolve_ClosureUsesCanonicalNames(t *testing.T) {
	m, err := Resolve(
		[]Relation{active("ff7", "final_fantasy_vii")},
		[]Relation{
			active("final_fantasy_vii", "video_games"),
			active("video_games", "media"),
		},
		nil, nil,
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"media", "video_games"}, m.Implied("final_fantasy_vii"))
	assert.Equal(t, []string{"media"}, m.Implied("video_games"))
	assert.False(t, m.HasImplications("ff7"))
	assert.Nil(t, m.Implied("ff7"))
	assert.Equal(t, "final_fantasy_vii", m.Canonical("ff7"))
	assert.Equal(t, "media", m.Canonical("media"))
}

func TestResolve_ImplicationsRewrittenThroughAliases(t *testing.T) {
	m, err := Resolve(
		[]Relation{active("ff7", "final_fantasy_vii"), active("vg", "video_games")},
		[]Relation{
			active("ff7", "vg"),
			active("final_fantasy_vii", "square_enix"),
		},
		nil, nil,
	)
	require.NoError(t, err)

	want := map[string][]string{
		"final_fantasy_vii": {"square_enix", "video_games"},
	}
	if diff := cmp.Diff(want, m.Snapshot().Implications); diff != "" {
		t.Errorf("implications mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_Fixpoint(t *testing.T) {
	m, err := Resolve(nil, []Relation{
		active("a", "b"),
		active("b", "c"),
		active("c", "d"),
		active("d", "e"),
		active("x", "c"),
	}, nil, nil)
	require.NoError(t, err)

	snap := m.Snapshot()
	want := map[string][]string{
		"a": {"b", "c", "d", "e"},
		"b": {"c", "d", "e"},
		"c": {"d", "e"},
		"d": {"e"},
		"x": {"c", "d", "e"},
	}
	if diff := cmp.Diff(want, snap.Implications); diff != "" {
		t.Errorf("closure mismatch (-want +got):\n%s", diff)
	}

	// No member's implied set adds anything new.
	for tag, implied := range snap.Implications {
		have := make(map[string]bool)
		for _, i := range implied {
			have[i] = true
		}
		for _, i := range implied {
			for _, next := range snap.Implications[i] {
				assert.True(t, have[next], "%s: %s reachable via %s but missing", tag, next, i)
			}
		}
	}
}

func TestResolve_CycleTerminates(t *testing.T) {
	m, err := Resolve(nil, []Relation{
		active("a", "b"),
		active("b", "c"),
		active("c", "a"),
	}, nil, nil)
	require.NoError(t, err)

	for _, tag := range []string{"a", "b", "c"} {
		assert.Equal(t, []string{"a", "b", "c"}, m.Implied(tag), tag)
	}
}

func TestResolve_InactiveIgnored(t *testing.T) {
	m, err := Resolve(
		[]Relation{{Antecedent: "a", Consequent: "a", Status: "deleted"}},
		[]Relation{{Antecedent: "x", Consequent: "y", Status: "pending"}},
		nil, nil,
	)
	require.NoError(t, err)
	assert.False(t, m.IsAlias("a"))
	assert.False(t, m.HasImplications("x"))
}

func TestResolve_AliasIntegrity(t *testing.T) {
	testCases := []struct {
		name    string
		aliases []Relation
		code    ErrorCode
	}{
		{"self alias", []Relation{active("a", "a")}, ErrCodeSelfAlias},
		{"alias chain", []Relation{active("a", "b"), active("b", "c")}, ErrCodeAliasChain},
		{"conflicting antecedent", []Relation{active("a", "b"), active("a", "c")}, ErrCodeDuplicateAntecedent},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := Resolve(tc.aliases, nil, nil, nil)
			require.Error(t, err)
			assert.Nil(t, m)

			var le *LoadError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, tc.code, le.Code)
			assert.True(t, strings.HasPrefix(err.Error(), string(tc.code)))
		})
	}
}

func TestResolve_IdenticalDuplicateAllowed(t *testing.T) {
	m, err := Resolve([]Relation{active("a", "b"), active("a", "b")}, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "b", m.Canonical("a"))
}

func TestMustResolve(t *testing.T) {
	assert.Panics(t, func() {
		MustResolve([]Relation{active("a", "a")}, nil, nil, nil)
	})
	assert.NotPanics(t, func() {
		MustResolve(nil, nil, nil, nil)
	})
}

func TestMappings_Expand(t *testing.T) {
	m := MustResolve(
		[]Relation{active("ff7", "final_fantasy_vii")},
		[]Relation{active("final_fantasy_vii", "video_games"), active("video_games", "media")},
		nil, nil,
	)

	got := m.Expand([]string{"ff7", "cloud_strife", "media", "ff7"})
	assert.Equal(t, []string{"cloud_strife", "final_fantasy_vii", "media", "video_games"}, got)
	assert.Empty(t, m.Expand(nil))
}

func TestMappings_Lists(t *testing.T) {
	m := MustResolve(nil, nil, []string{"gore"}, []string{"old_tag"})

	assert.True(t, m.IsBlacklisted("gore"))
	assert.False(t, m.IsBlacklisted("old_tag"))
	assert.True(t, m.IsDeprecated("old_tag"))
	assert.False(t, m.IsDeprecated("gore"))
	assert.Equal(t, Stats{Blacklist: 1, Deprecations: 1}, m.Stats())
}

func TestMappings_LookupsNormalizeNames(t *testing.T) {
	m := MustResolve(
		[]Relation{active("caf\u00e9", "coffee_shop")},
		[]Relation{active("coffee_shop", "place")},
		[]string{"na\u00efve"}, nil,
	)

	decomposed := "cafe\u0301"
	assert.Equal(t, "coffee_shop", m.Canonical(decomposed))
	assert.True(t, m.IsAlias(decomposed))
	assert.Equal(t, []string{"coffee_shop", "place"}, m.Expand([]string{decomposed}))
	assert.True(t, m.IsBlacklisted("nai\u0308ve"))
}

func TestMappings_Lookup(t *testing.T) {
	m := MustResolve(
		[]Relation{active("ff7", "final_fantasy_vii")},
		[]Relation{active("final_fantasy_vii", "video_games")},
		nil, []string{"final_fantasy_vii"},
	)

	res := m.Lookup([]string{"ff7", "cloud"})
	require.Len(t, res.Tags, 2)
	assert.Equal(t, TagLookup{
		Tag:        "ff7",
		Canonical:  "final_fantasy_vii",
		Alias:      true,
		Implied:    []string{"video_games"},
		Deprecated: true,
	}, res.Tags[0])
	assert.Equal(t, TagLookup{Tag: "cloud", Canonical: "cloud", Implied: []string{}}, res.Tags[1])
	assert.Equal(t, []string{"cloud", "final_fantasy_vii", "video_games"}, res.Expanded)
}

func TestMappings_MarshalJSON(t *testing.T) {
	m := MustResolve(
		[]Relation{active("ff7", "final_fantasy_vii")},
		[]Relation{active("final_fantasy_vii", "video_games"), active("final_fantasy_vii", "rpg")},
		[]string{"z", "a"},
		nil,
	)

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"aliases": {"ff7": "final_fantasy_vii"},
		"implications": {"final_fantasy_vii": ["rpg", "video_games"]},
		"blacklist": ["a", "z"],
		"deprecations": []
	}`, string(data))
}

func TestReadRelations(t *testing.T) {
	input := `{"antecedent_name":"ff7","consequent_name":"final_fantasy_vii","status":"active","id":9}

{"antecedent_name":"Café","consequent_name":"coffee","status":"deleted"}
`
	rels, err := ReadRelations(strings.NewReader(input))
	require.NoError(t, err)

	want := []Relation{
		{Antecedent: "ff7", Consequent: "final_fantasy_vii", Status: "active"},
		{Antecedent: "Café", Consequent: "coffee", Status: "deleted"},
	}
	if diff := cmp.Diff(want, rels); diff != "" {
		t.Errorf("relations mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, rels[0].Active())
	assert.False(t, rels[1].Active())
}

func TestReadRelations_Malformed(t *testing.T) {
	testCases := map[string]string{
		"bad json":         "{\"antecedent_name\":\"a\"",
		"missing name":     `{"antecedent_name":"a","status":"active"}`,
		"second line bad":  "{\"antecedent_name\":\"a\",\"consequent_name\":\"b\",\"status\":\"active\"}\n[1,2]",
		"wrong field type": `{"antecedent_name":1,"consequent_name":"b","status":"active"}`,
	}

	for name, input := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadRelations(strings.NewReader(input))
			require.Error(t, err)

			var le *LoadError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, ErrCodeMalformedRecord, le.Code)
			assert.Positive(t, le.Line)
		})
	}
}

func TestReadList(t *testing.T) {
	names, err := ReadList(strings.NewReader("  spoilers \n\n\tgore\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"spoilers", "gore"}, names)
}

func TestLoad(t *testing.T) {
	m, err := Load(Files{
		Aliases:      "testdata/aliases.ndjson",
		Implications: "testdata/implications.ndjson",
		Blacklist:    "testdata/blacklist.txt",
		Deprecations: "testdata/deprecations.txt",
	})
	require.NoError(t, err)

	assert.Equal(t, "final_fantasy_vii", m.Canonical("ff7"))
	assert.Equal(t, "vg", m.Canonical("vg"))
	assert.Equal(t, []string{"media", "video_games"}, m.Implied("final_fantasy_vii"))
	assert.True(t, m.IsBlacklisted("spoilers"))
	assert.True(t, m.IsDeprecated("old_tag"))
	assert.Equal(t, Stats{Aliases: 1, Implications: 2, Blacklist: 2, Deprecations: 1}, m.Stats())
}

func TestLoad_Empty(t *testing.T) {
	m, err := Load(Files{})
	require.NoError(t, err)
	assert.Equal(t, Stats{}, m.Stats())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(Files{Aliases: "testdata/self_alias.ndjson"})
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ErrCodeSelfAlias, le.Code)
	assert.Equal(t, "testdata/self_alias.ndjson", le.Source)

	_, err = Load(Files{Implications: "testdata/malformed.ndjson"})
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ErrCodeMalformedRecord, le.Code)
	assert.Equal(t, 2, le.Line)
	assert.Contains(t, err.Error(), "testdata/malformed.ndjson:2")

	_, err = Load(Files{Blacklist: "testdata/missing.txt"})
	require.Error(t, err)
	assert.False(t, errors.As(err, &le))
}
