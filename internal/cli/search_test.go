package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tagstorm/internal/engine"
)

func TestSearch_SingleColumnIsFlattened(t *testing.T) {
	db := seededDB(t)

	out, _, err := execute(t, "", "search", "--db", db,
		"--request", `{"select":["id"],"order_by":"id","operator":{"tag":1}}`)
	require.NoError(t, err)
	assert.Equal(t, `{"id":[1,4]}`+"\n", out)
}

func TestSearch_RepeatedColumnIsFlattened(t *testing.T) {
	db := seededDB(t)

	out, _, err := execute(t, "", "search", "--db", db,
		"--request", `{"select":["id","id"],"order_by":"id","operator":{"tag":1}}`)
	require.NoError(t, err)
	assert.Equal(t, `{"id":[1,4]}`+"\n", out)
}

func TestSearch_EmptySingleColumnIsImages(t *testing.T) {
	db := seededDB(t)

	out, _, err := execute(t, "", "search", "--db", db,
		"--request", `{"select":["id"],"operator":{"tag":99}}`)
	require.NoError(t, err)
	assert.Equal(t, `{"images":[]}`+"\n", out)
}

func TestSearch_ManyColumnsAreRecords(t *testing.T) {
	db := seededDB(t)

	out, _, err := execute(t, "", "search", "--db", db,
		"--request", `{"select":["id","caption"],"order_by":"id","operator":{"tag":2}}`)
	require.NoError(t, err)
	assert.Equal(t, `{"images":[{"id":1,"caption":"a cat"},{"id":2,"caption":"a dog"}]}`+"\n", out)
}

func TestSearch_Aggregates(t *testing.T) {
	db := seededDB(t)

	out, _, err := execute(t, "", "search", "--db", db,
		"--request", `{"select":["count","min_id","max_id"],"operator":{"attribute":["source",null]}}`)
	require.NoError(t, err)
	assert.Equal(t, `{"images":[{"count":2,"min_id":1,"max_id":4}]}`+"\n", out)
}

func TestSearch_FromStdin(t *testing.T) {
	db := seededDB(t)

	out, _, err := execute(t, `{"select":["hash"],"order_by":"hash","operator":{"tag":4}}`, "search", "--db", db, "-")
	require.NoError(t, err)
	assert.Equal(t, `{"hash":["c3"]}`+"\n", out)
}

func TestSearch_JSONIncludesQueryID(t *testing.T) {
	db := seededDB(t)

	out := &bytes.Buffer{}
	opts := &SearchOptions{
		RootOptions: &RootOptions{Format: "json"},
		IDGenerator: engine.NewFixedGenerator("q-1"),
	}
	cmd := NewSearchCommand(opts.RootOptions)
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	// Replace the options the command was built with.
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runSearch(opts, args, cmd)
	}
	opts.DB.DSN = db
	opts.Request = `{"select":["id"],"order_by":"id","operator":{"maxid":2}}`
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status  string             `json:"status"`
		Data    map[string][]int64 `json:"data"`
		QueryID string             `json:"query_id"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "q-1", resp.QueryID)
	assert.Equal(t, []int64{1, 2}, resp.Data["id"])
}

func TestSearch_MaxLimitFromConfig(t *testing.T) {
	db := seededDB(t)
	dir := t.TempDir()
	cfg := writeFile(t, dir, "tagstorm.cue", `
database: {
	driver: "sqlite"
	dsn:    "`+db+`"
}
search: max_limit: 2
`)

	out, _, err := execute(t, "", "--config", cfg, "search",
		"--request", `{"select":["id"],"order_by":"id"}`)
	require.NoError(t, err)
	assert.Equal(t, `{"id":[1,2]}`+"\n", out)
}

func TestSearch_InvalidQueryExitsOne(t *testing.T) {
	db := seededDB(t)

	out, _, err := execute(t, "", "search", "--db", db, "--request", `{"select":[]}`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E006]: EMPTY_SELECT")
}

func TestSearch_MissingDatabase(t *testing.T) {
	out, _, err := execute(t, "", "search",
		"--db", filepath.Join(t.TempDir(), "nope.db"),
		"--request", `{"select":["id"]}`)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E004]")
}

func TestSearch_UnknownDriver(t *testing.T) {
	_, _, err := execute(t, "", "search", "--driver", "mysql", "--request", `{"select":["id"]}`)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `unknown driver "mysql"`)
}

func TestSearch_BadTagDataExitsTwo(t *testing.T) {
	db := seededDB(t)
	dir := t.TempDir()
	writeFile(t, dir, "aliases.ndjson",
		`{"antecedent_name":"cat","consequent_name":"cat","status":"active"}`+"\n")
	cfg := writeFile(t, dir, "tagstorm.cue", `
database: {
	driver: "sqlite"
	dsn:    "`+db+`"
}
tags: aliases: "aliases.ndjson"
`)

	out, _, err := execute(t, "", "--config", cfg, "search", "--request", `{"select":["id"]}`)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]: SELF_ALIAS")
}

func TestSearch_BadConfig(t *testing.T) {
	cfg := writeFile(t, t.TempDir(), "tagstorm.cue", `database: driver: "oracle"`)

	out, _, err := execute(t, "", "--config", cfg, "search", "--request", `{"select":["id"]}`)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E002]")
}
