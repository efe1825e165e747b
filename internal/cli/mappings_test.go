package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tagstorm/internal/tags"
)

func writeTagData(t *testing.T) (dir string) {
	t.Helper()
	dir = t.TempDir()
	writeFile(t, dir, "aliases.ndjson",
		`{"antecedent_name":"ff7","consequent_name":"final_fantasy_vii","status":"active"}`+"\n")
	writeFile(t, dir, "implications.ndjson",
		`{"antecedent_name":"final_fantasy_vii","consequent_name":"video_games","status":"active"}`+"\n"+
			`{"antecedent_name":"video_games","consequent_name":"media","status":"active"}`+"\n")
	writeFile(t, dir, "blacklist.txt", "spoilers\n")
	writeFile(t, dir, "deprecations.txt", "old_tag\n")
	return dir
}

func tagFlags(dir string) []string {
	return []string{
		"--aliases", dir + "/aliases.ndjson",
		"--implications", dir + "/implications.ndjson",
		"--blacklist", dir + "/blacklist.txt",
		"--deprecations", dir + "/deprecations.txt",
	}
}

func TestMappings_Snapshot(t *testing.T) {
	dir := writeTagData(t)

	out, _, err := execute(t, "", append([]string{"mappings"}, tagFlags(dir)...)...)
	require.NoError(t, err)

	var snap tags.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, map[string]string{"ff7": "final_fantasy_vii"}, snap.Aliases)
	assert.Equal(t, []string{"media", "video_games"}, snap.Implications["final_fantasy_vii"])
	assert.Equal(t, []string{"media"}, snap.Implications["video_games"])
	assert.Equal(t, []string{"spoilers"}, snap.Blacklist)
	assert.Equal(t, []string{"old_tag"}, snap.Deprecations)
}

func TestMappings_LookupText(t *testing.T) {
	dir := writeTagData(t)

	args := append([]string{"mappings"}, tagFlags(dir)...)
	out, _, err := execute(t, "", append(args, "ff7", "spoilers")...)
	require.NoError(t, err)

	assert.Contains(t, out, "ff7 -> final_fantasy_vii => media, video_games\n")
	assert.Contains(t, out, "spoilers [blacklisted]\n")
	assert.Contains(t, out, "expanded: final_fantasy_vii, media, spoilers, video_games\n")
}

func TestMappings_LookupJSON(t *testing.T) {
	dir := writeTagData(t)

	args := append([]string{"--format", "json", "mappings"}, tagFlags(dir)...)
	out, _, err := execute(t, "", append(args, "old_tag")...)
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   tags.LookupResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Tags, 1)
	got := resp.Data.Tags[0]
	assert.Equal(t, "old_tag", got.Canonical)
	assert.False(t, got.Alias)
	assert.True(t, got.Deprecated)
	assert.Equal(t, []string{}, got.Implied)
	assert.Equal(t, []string{"old_tag"}, resp.Data.Expanded)
}

func TestMappings_LookupNormalizesArguments(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "aliases.ndjson",
		`{"antecedent_name":"caf\u00e9","consequent_name":"coffee_shop","status":"active"}`+"\n")

	// Decomposed e + combining acute accent.
	out, _, err := execute(t, "", "mappings", "--aliases", path, "cafe\u0301")
	require.NoError(t, err)
	assert.Contains(t, out, "caf\u00e9 -> coffee_shop\n")
	assert.Contains(t, out, "expanded: coffee_shop\n")
}

func TestMappings_Stats(t *testing.T) {
	dir := writeTagData(t)

	out, _, err := execute(t, "", append([]string{"mappings", "--stats"}, tagFlags(dir)...)...)
	require.NoError(t, err)
	assert.Equal(t, "aliases: 1\nimplications: 2\nblacklist: 1\ndeprecations: 1\n", out)
}

func TestMappings_EmptyWithoutData(t *testing.T) {
	out, _, err := execute(t, "", "--format", "json", "mappings", "--stats")
	require.NoError(t, err)
	assert.Contains(t, out, `"aliases":0`)
}

func TestMappings_AliasChainExitsTwo(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "aliases.ndjson",
		`{"antecedent_name":"a","consequent_name":"b","status":"active"}`+"\n"+
			`{"antecedent_name":"b","consequent_name":"c","status":"active"}`+"\n")

	out, _, err := execute(t, "", "mappings", "--aliases", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]: ALIAS_CHAIN")
}

func TestMappings_MissingFileExitsTwo(t *testing.T) {
	out, _, err := execute(t, "", "mappings", "--aliases", "/nonexistent/aliases.ndjson")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]")
}
