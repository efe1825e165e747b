// Package project turns fetched storage rows into ordered output records.
package project

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/tagstorm/internal/search"
)

// Field is one named output value.
type Field struct {
	Column search.Column
	Value  any
}

// Record is one projected row. Fields are kept in select order and
// marshal to a JSON object whose keys appear in that same order.
type Record struct {
	fields []Field
}

// NewRecord creates a record from fields, in the given order.
func NewRecord(fields ...Field) Record {
	return Record{fields: fields}
}

// Fields returns the record's fields in select order.
func (r Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Len returns the number of fields.
func (r Record) Len() int {
	return len(r.fields)
}

// Get returns the first value projected for col.
func (r Record) Get(col search.Column) (any, bool) {
	for _, f := range r.fields {
		if f.Column == col {
			return f.Value, true
		}
	}
	return nil, false
}

// MarshalJSON writes the fields as an object in select order.
// A column selected twice is written once, at its first position.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	seen := make(map[search.Column]bool, len(r.fields))
	first := true
	for _, f := range r.fields {
		if seen[f.Column] {
			continue
		}
		seen[f.Column] = true

		key, err := json.Marshal(f.Column.Name())
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Column, err)
		}

		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Flatten reshapes single-column records into one array of values keyed
// by the column name. It fails if any record does not hold exactly one
// distinct column, or holds a column other than col.
func Flatten(col search.Column, records []Record) (map[string][]any, error) {
	values := make([]any, 0, len(records))
	for i, r := range records {
		if r.Len() == 0 {
			return nil, fmt.Errorf("flatten: record %d is empty", i)
		}
		for _, f := range r.fields {
			if f.Column != col {
				return nil, fmt.Errorf("flatten: record %d has column %s, want only %s", i, f.Column, col)
			}
		}
		values = append(values, r.fields[0].Value)
	}
	return map[string][]any{col.Name(): values}, nil
}
