package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// searchIDs runs an id search against db and returns the raw output.
func searchIDs(t *testing.T, db, operator string) string {
	t.Helper()
	out, _, err := execute(t, "", "search", "--db", db,
		"--request", `{"select":["id"],"order_by":"id","operator":`+operator+`}`)
	require.NoError(t, err)
	return out
}

func TestImage_Get(t *testing.T) {
	db := seededDB(t)

	out, _, err := execute(t, "", "image", "get", "--db", db, "b2")
	require.NoError(t, err)
	assert.Equal(t, "2\tb2\n", out)
}

func TestImage_GetErrors(t *testing.T) {
	db := seededDB(t)

	out, _, err := execute(t, "", "image", "get", "--db", db, "zz")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")

	out, _, err = execute(t, "", "image", "get", "--db", db, "ff")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E009]")
}

func TestImage_AddAndLastID(t *testing.T) {
	db := seededDB(t)

	out, _, err := execute(t, "", "image", "add", "--db", db, "e5")
	require.NoError(t, err)
	assert.Equal(t, "✓ Added image e5 (id 5)\n", out)

	out, _, err = execute(t, "", "image", "last-id", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "5\n", out)

	_, _, err = execute(t, "", "image", "add", "--db", db, "e5")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestImage_TagAndUntag(t *testing.T) {
	db := seededDB(t)

	_, _, err := execute(t, "", "image", "tag", "--db", db, "b2", "landscape")
	require.NoError(t, err)
	assert.Equal(t, `{"id":[2,3]}`+"\n", searchIDs(t, db, `{"tag":4}`))

	_, _, err = execute(t, "", "image", "untag", "--db", db, "a1", "cat")
	require.NoError(t, err)
	assert.Equal(t, `{"id":[4]}`+"\n", searchIDs(t, db, `{"tag":1}`))

	out, _, err := execute(t, "", "image", "untag", "--db", db, "a1", "cat")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E009]")
}

func TestImage_Caption(t *testing.T) {
	db := seededDB(t)

	_, _, err := execute(t, "", "image", "caption", "--db", db, "c3", "hills")
	require.NoError(t, err)
	assert.Equal(t, `{"id":[3]}`+"\n", searchIDs(t, db, `{"attribute":["caption","hills"]}`))
}

func TestImage_AttrSingularReplaces(t *testing.T) {
	db := seededDB(t)

	_, _, err := execute(t, "", "image", "attr", "--db", db, "--singular", "a1", "color", "green")
	require.NoError(t, err)
	assert.Equal(t, `{"id":[2]}`+"\n", searchIDs(t, db, `{"attribute":["color","red"]}`))
	assert.Equal(t, `{"id":[1]}`+"\n", searchIDs(t, db, `{"attribute":["color","green"]}`))
}

func TestImage_AttrRemove(t *testing.T) {
	db := seededDB(t)

	_, _, err := execute(t, "", "image", "attr", "--db", db, "--remove", "b2", "color", "red")
	require.NoError(t, err)
	assert.Equal(t, `{"id":[1]}`+"\n", searchIDs(t, db, `{"attribute":["color","red"]}`))

	out, _, err := execute(t, "", "image", "attr", "--db", db, "--remove", "b2", "color", "red")
	require.Error(t, err)
	assert.Contains(t, out, "Error [E009]")
}

func TestImage_AttrFlagsExclusive(t *testing.T) {
	db := seededDB(t)

	_, _, err := execute(t, "", "image", "attr", "--db", db, "--singular", "--remove", "a1", "color", "red")
	assert.Error(t, err)
}

func TestImage_Remove(t *testing.T) {
	db := seededDB(t)

	_, _, err := execute(t, "", "image", "rm", "--db", db, "a1")
	require.NoError(t, err)
	assert.Equal(t, `{"id":[2]}`+"\n", searchIDs(t, db, `{"tag":2}`))

	out, _, err := execute(t, "", "image", "last-id", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "4\n", out)
}
