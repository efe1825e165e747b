// Package searchsql compiles search requests to parameterized SQL.
//
// Every user-controlled literal leaves the compiler as a bound value; the
// query text only ever contains fixed column expressions, placeholders and
// the validated non-negative limit.
package searchsql

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/tagstorm/internal/bind"
	"github.com/roach88/tagstorm/internal/search"
)

const (
	imagesTable     = "images"
	attributesTable = "image_attributes"
)

// Compiled is the output of a successful compilation.
//
// Values[n-1] is the value for placeholder n. Columns lists the output
// columns in statement order, which is the submitted select order.
type Compiled struct {
	SQL     string
	Values  []bind.Value
	Columns []search.Column
}

// Args returns the bound values as driver arguments.
func (c Compiled) Args() ([]any, error) {
	return bind.Args(c.Values)
}

// Compiler turns search requests into SQL for one dialect.
// It holds no mutable state and is safe for concurrent use.
type Compiler struct {
	dialect Dialect
}

// NewCompiler creates a Compiler for the given dialect.
func NewCompiler(d Dialect) *Compiler {
	return &Compiler{dialect: d}
}

// Dialect returns the compiler's dialect.
func (c *Compiler) Dialect() Dialect {
	return c.dialect
}

// Compile validates req and converts it to a parameterized statement.
// A failed compilation returns a *search.CompileError and no statement.
func (c *Compiler) Compile(req search.Request) (Compiled, error) {
	if !c.dialect.valid() {
		return Compiled{}, fmt.Errorf("compile: unsupported dialect %v", c.dialect)
	}
	if err := req.Validate(); err != nil {
		return Compiled{}, err
	}

	b := &builder{dialect: c.dialect}

	var where string
	if req.Operator != nil {
		w, err := b.compileExpr(req.Operator, 0)
		if err != nil {
			return Compiled{}, err
		}
		where = w
	}

	selects := make([]string, len(req.Select))
	for i, col := range req.Select {
		selects[i] = c.dialect.column(col)
	}

	var sql strings.Builder
	sql.WriteString("SELECT ")
	sql.WriteString(strings.Join(selects, ", "))
	sql.WriteString(" FROM " + imagesTable + " i")

	withAttributes := req.Has(search.ColumnAttributes)
	if withAttributes {
		sql.WriteString(" LEFT JOIN " + attributesTable + " a ON a.image_id = i.id")
	}
	if where != "" {
		sql.WriteString(" WHERE ")
		sql.WriteString(where)
	}
	if withAttributes {
		sql.WriteString(" GROUP BY i.id")
	}

	switch req.OrderBy {
	case search.OrderByID:
		sql.WriteString(" ORDER BY i.id")
	case search.OrderByHash:
		sql.WriteString(" ORDER BY i.hash")
	}

	if req.Limit != nil {
		// Validate guarantees the limit is non-negative.
		sql.WriteString(" LIMIT ")
		sql.WriteString(strconv.FormatInt(*req.Limit, 10))
	}

	columns := make([]search.Column, len(req.Select))
	copy(columns, req.Select)

	return Compiled{
		SQL:     sql.String(),
		Values:  b.values,
		Columns: columns,
	}, nil
}

// builder accumulates bound values for one compilation.
type builder struct {
	dialect Dialect
	values  []bind.Value
}

// bind appends v and returns its placeholder.
func (b *builder) bind(v bind.Value) string {
	b.values = append(b.values, v)
	return b.dialect.placeholder(len(b.values))
}

// compileExpr compiles e found at the given depth.
func (b *builder) compileExpr(e search.Expr, depth int) (string, error) {
	if depth > search.MaxDepth {
		return "", search.Errorf(search.ErrCodeDepthExceeded,
			"expression nesting exceeds maximum depth of %d", search.MaxDepth)
	}

	switch n := e.(type) {
	case search.Not:
		return b.compileNot(n, depth)
	case *search.Not:
		return b.compileNot(*n, depth)
	case search.And:
		return b.compileBinary("AND", n.Left, n.Right, depth)
	case *search.And:
		return b.compileBinary("AND", n.Left, n.Right, depth)
	case search.Or:
		return b.compileBinary("OR", n.Left, n.Right, depth)
	case *search.Or:
		return b.compileBinary("OR", n.Left, n.Right, depth)
	case search.Tag:
		return b.dialect.tagContains(b.bind(bind.Int(n.ID))), nil
	case *search.Tag:
		return b.dialect.tagContains(b.bind(bind.Int(n.ID))), nil
	case search.Attribute:
		return b.compileAttribute(n)
	case *search.Attribute:
		return b.compileAttribute(*n)
	case search.MinID:
		return "i.id >= " + b.bind(bind.Int(n.ID)), nil
	case *search.MinID:
		return "i.id >= " + b.bind(bind.Int(n.ID)), nil
	case search.MaxID:
		return "i.id <= " + b.bind(bind.Int(n.ID)), nil
	case *search.MaxID:
		return "i.id <= " + b.bind(bind.Int(n.ID)), nil
	case nil:
		return "", search.Errorf(search.ErrCodeInvalidRequest, "missing expression")
	default:
		return "", search.Errorf(search.ErrCodeInvalidRequest, "unsupported expression type %T", e)
	}
}

func (b *builder) compileNot(n search.Not, depth int) (string, error) {
	x, err := b.compileExpr(n.X, depth+1)
	if err != nil {
		return "", err
	}
	return "NOT (" + x + ")", nil
}

// compileBinary compiles left before right so placeholder numbers follow
// the textual order of the statement.
func (b *builder) compileBinary(op string, left, right search.Expr, depth int) (string, error) {
	l, err := b.compileExpr(left, depth+1)
	if err != nil {
		return "", err
	}
	r, err := b.compileExpr(right, depth+1)
	if err != nil {
		return "", err
	}
	return "(" + l + ") " + op + " (" + r + ")", nil
}

// compileAttribute handles the image's own columns first, then falls back
// to the attribute table.
func (b *builder) compileAttribute(a search.Attribute) (string, error) {
	if a.Value != nil {
		value := *a.Value
		switch a.Key {
		case "id":
			id, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return "", search.Errorf(search.ErrCodeInvalidLiteral, "id %q is not an integer", value)
			}
			return "i.id = " + b.bind(bind.Int(id)), nil
		case "hash":
			if _, err := hex.DecodeString(value); err != nil {
				return "", search.Errorf(search.ErrCodeInvalidLiteral, "hash %q is not hex", value)
			}
			return b.dialect.hashEquals(b.bind(bind.Text(value))), nil
		case "caption":
			return "i.caption = " + b.bind(bind.Text(value)), nil
		}
	} else if a.Key == "caption" {
		return "i.caption IS NULL", nil
	}

	key := b.bind(bind.Text(a.Key))
	exists := "EXISTS (SELECT 1 FROM " + attributesTable + " ia WHERE ia.image_id = i.id AND ia.key = " + key

	if a.Value == nil || *a.Value == "*" {
		return exists + ")", nil
	}

	value := b.bind(bind.Text(*a.Value))
	return exists + " AND ia.value_digest = " + b.dialect.digest(value) + ")", nil
}
