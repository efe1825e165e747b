package search

import (
	"encoding/json"
	"fmt"
)

// Column is one of the fixed outputs a search can select.
type Column int

const (
	ColumnID Column = iota + 1
	ColumnHash
	ColumnActive
	ColumnTags
	ColumnCaption
	ColumnAttributes
	ColumnCount
	ColumnMinID
	ColumnMaxID
)

var columnNames = map[Column]string{
	ColumnID:         "id",
	ColumnHash:       "hash",
	ColumnActive:     "active",
	ColumnTags:       "tags",
	ColumnCaption:    "caption",
	ColumnAttributes: "attributes",
	ColumnCount:      "count",
	ColumnMinID:      "min_id",
	ColumnMaxID:      "max_id",
}

// ParseColumn returns the column with the given wire name.
func ParseColumn(name string) (Column, error) {
	for c, n := range columnNames {
		if n == name {
			return c, nil
		}
	}
	return 0, Errorf(ErrCodeInvalidRequest, "unknown select column %q", name)
}

// Name returns the wire name, which is also the output field name.
func (c Column) Name() string {
	if n, ok := columnNames[c]; ok {
		return n
	}
	return fmt.Sprintf("Column(%d)", int(c))
}

func (c Column) String() string { return c.Name() }

// IsAggregate reports whether c summarizes many images rather than
// describing one.
func (c Column) IsAggregate() bool {
	return c == ColumnCount || c == ColumnMinID || c == ColumnMaxID
}

// MarshalJSON implements json.Marshaler.
func (c Column) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Name())
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Column) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return Errorf(ErrCodeInvalidRequest, "select column must be a string: %v", err)
	}
	parsed, err := ParseColumn(name)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// OrderBy selects the result ordering. The zero value leaves order unspecified.
type OrderBy int

const (
	OrderNone OrderBy = iota
	OrderByID
	OrderByHash
)

func (o OrderBy) String() string {
	switch o {
	case OrderByID:
		return "id"
	case OrderByHash:
		return "hash"
	default:
		return ""
	}
}

// MarshalJSON implements json.Marshaler.
func (o OrderBy) MarshalJSON() ([]byte, error) {
	if o == OrderNone {
		return []byte("null"), nil
	}
	return json.Marshal(o.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *OrderBy) UnmarshalJSON(data []byte) error {
	var name *string
	if err := json.Unmarshal(data, &name); err != nil {
		return Errorf(ErrCodeInvalidRequest, "order_by must be a string: %v", err)
	}
	switch {
	case name == nil:
		*o = OrderNone
	case *name == "id":
		*o = OrderByID
	case *name == "hash":
		*o = OrderByHash
	default:
		return Errorf(ErrCodeInvalidRequest, "unknown order_by %q", *name)
	}
	return nil
}

// Request is a decoded search request. It lives for one
// compile, execute and project cycle.
type Request struct {
	Select   []Column
	OrderBy  OrderBy
	Limit    *int64
	Operator Expr
}

type wireRequest struct {
	Select   []Column        `json:"select"`
	OrderBy  OrderBy         `json:"order_by"`
	Limit    *int64          `json:"limit"`
	Operator json.RawMessage `json:"operator"`
}

// ParseRequest decodes a JSON search request.
func ParseRequest(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, asCompileError(err)
	}
	return req, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Request) UnmarshalJSON(data []byte) error {
	var w wireRequest
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	var op Expr
	if len(w.Operator) > 0 && string(w.Operator) != "null" {
		parsed, err := ParseExpr(w.Operator)
		if err != nil {
			return err
		}
		op = parsed
	}

	*r = Request{
		Select:   w.Select,
		OrderBy:  w.OrderBy,
		Limit:    w.Limit,
		Operator: op,
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (r Request) MarshalJSON() ([]byte, error) {
	w := struct {
		Select   []Column        `json:"select"`
		OrderBy  *OrderBy        `json:"order_by,omitempty"`
		Limit    *int64          `json:"limit,omitempty"`
		Operator json.RawMessage `json:"operator,omitempty"`
	}{
		Select: r.Select,
		Limit:  r.Limit,
	}
	if r.OrderBy != OrderNone {
		w.OrderBy = &r.OrderBy
	}
	if r.Operator != nil {
		op, err := MarshalExpr(r.Operator)
		if err != nil {
			return nil, err
		}
		w.Operator = op
	}
	return json.Marshal(w)
}

// Validate checks the select list and limit.
//
// Expression depth is enforced during compilation, where each recursive
// step checks its own depth.
func (r Request) Validate() error {
	if len(r.Select) == 0 {
		return Errorf(ErrCodeEmptySelect, "at least one column must be selected")
	}

	aggregates := 0
	for _, c := range r.Select {
		if _, ok := columnNames[c]; !ok {
			return Errorf(ErrCodeInvalidRequest, "unknown select column %d", int(c))
		}
		if c.IsAggregate() {
			aggregates++
		}
	}
	if aggregates > 0 && aggregates != len(r.Select) {
		return Errorf(ErrCodeAggregateMix, "count, min_id and max_id cannot be selected with row columns")
	}

	if r.Limit != nil && *r.Limit < 0 {
		return Errorf(ErrCodeNegativeLimit, "limit must be non-negative, got %d", *r.Limit)
	}

	return nil
}

// Has reports whether c is in the select list.
func (r Request) Has(c Column) bool {
	for _, s := range r.Select {
		if s == c {
			return true
		}
	}
	return false
}

// IsAggregate reports whether the request selects aggregate columns only.
func (r Request) IsAggregate() bool {
	return len(r.Select) > 0 && r.Select[0].IsAggregate()
}
