package searchsql

import (
	"fmt"
	"strconv"

	"github.com/roach88/tagstorm/internal/search"
)

// Dialect selects the SQL flavor a Compiler emits.
type Dialect int

const (
	// Postgres emits $N placeholders and stores tags as bigint[].
	Postgres Dialect = iota + 1

	// SQLite emits ?N placeholders and stores tags as a JSON array.
	// The value_digest SQL function is registered by the store.
	SQLite
)

// ParseDialect maps a driver name to its dialect.
func ParseDialect(name string) (Dialect, error) {
	switch name {
	case "postgres", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return 0, fmt.Errorf("unknown dialect %q", name)
	}
}

func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case SQLite:
		return "sqlite"
	default:
		return "Dialect(" + strconv.Itoa(int(d)) + ")"
	}
}

func (d Dialect) valid() bool {
	return d == Postgres || d == SQLite
}

// placeholder returns the marker for the n-th bound value (1-based).
func (d Dialect) placeholder(n int) string {
	if d == SQLite {
		return "?" + strconv.Itoa(n)
	}
	return "$" + strconv.Itoa(n)
}

// tagContains tests whether the image's tag list contains the bound id.
func (d Dialect) tagContains(p string) string {
	if d == SQLite {
		return "EXISTS (SELECT 1 FROM json_each(i.tags) WHERE json_each.value = " + p + ")"
	}
	return p + " = ANY(i.tags)"
}

// hashEquals compares the binary hash column with a bound hex string.
func (d Dialect) hashEquals(p string) string {
	if d == SQLite {
		return "i.hash = unhex(" + p + ")"
	}
	return "i.hash = decode(" + p + ", 'hex')"
}

// digest returns the SHA-256 of a bound text value, matching the
// image_attributes.value_digest column.
func (d Dialect) digest(p string) string {
	if d == SQLite {
		return "value_digest(" + p + ")"
	}
	return "sha256(convert_to(" + p + ", 'UTF8'))"
}

// column returns the select expression for c.
func (d Dialect) column(c search.Column) string {
	switch c {
	case search.ColumnID:
		return "i.id"
	case search.ColumnHash:
		return "i.hash"
	case search.ColumnActive:
		return "i.active"
	case search.ColumnTags:
		return "i.tags"
	case search.ColumnCaption:
		return "i.caption"
	case search.ColumnAttributes:
		if d == SQLite {
			return "json_group_array(json_object('key', a.key, 'value', a.value)) FILTER (WHERE a.key IS NOT NULL AND a.value IS NOT NULL) AS attributes"
		}
		return "json_agg(json_build_object('key', a.key, 'value', a.value)) FILTER (WHERE a.key IS NOT NULL AND a.value IS NOT NULL) AS attributes"
	case search.ColumnCount:
		return "count(*)"
	case search.ColumnMinID:
		return "min(i.id)"
	case search.ColumnMaxID:
		return "max(i.id)"
	default:
		return ""
	}
}
