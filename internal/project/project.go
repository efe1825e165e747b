package project

import (
	"encoding/hex"
	"encoding/json"
	"math"

	"github.com/roach88/tagstorm/internal/search"
)

// Attributes maps an attribute key to every value stored under it.
type Attributes map[string][]string

// Project converts one fetched row into a record, one field per column.
// row holds the raw driver values in select order.
//
// Output types: id, count, min_id and max_id are int64 (min_id and max_id
// are nil over an empty set); hash is lowercase hex; active is bool; tags
// is []int64; caption is *string; attributes is Attributes.
func Project(row []any, cols []search.Column) (Record, error) {
	if len(row) != len(cols) {
		return Record{}, malformed(0, "row has %d values for %d columns", len(row), len(cols))
	}

	fields := make([]Field, len(cols))
	for i, col := range cols {
		v, err := projectValue(col, row[i])
		if err != nil {
			return Record{}, err
		}
		fields[i] = Field{Column: col, Value: v}
	}
	return Record{fields: fields}, nil
}

func projectValue(col search.Column, raw any) (any, error) {
	switch col {
	case search.ColumnID, search.ColumnCount:
		n, ok := toInt64(raw)
		if !ok {
			return nil, malformed(col, "want integer, got %T", raw)
		}
		return n, nil
	case search.ColumnMinID, search.ColumnMaxID:
		if raw == nil {
			return (*int64)(nil), nil
		}
		n, ok := toInt64(raw)
		if !ok {
			return nil, malformed(col, "want integer, got %T", raw)
		}
		return &n, nil
	case search.ColumnHash:
		b, ok := raw.([]byte)
		if !ok {
			return nil, malformed(col, "want bytes, got %T", raw)
		}
		return hex.EncodeToString(b), nil
	case search.ColumnActive:
		return projectActive(raw)
	case search.ColumnTags:
		return projectTags(raw)
	case search.ColumnCaption:
		switch v := raw.(type) {
		case nil:
			return (*string)(nil), nil
		case string:
			return &v, nil
		case []byte:
			s := string(v)
			return &s, nil
		default:
			return nil, malformed(col, "want text, got %T", raw)
		}
	case search.ColumnAttributes:
		return foldAttributes(raw)
	default:
		return nil, malformed(col, "unknown column")
	}
}

func toInt64(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case int:
		return int64(v), true
	case float64:
		// JSON numbers decode as float64.
		if v != math.Trunc(v) || math.Abs(v) > 1<<53 {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}

func projectActive(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case int64:
		// SQLite stores booleans as 0/1.
		if v == 0 || v == 1 {
			return v == 1, nil
		}
	}
	return false, malformed(search.ColumnActive, "want boolean, got %T(%v)", raw, raw)
}

func projectTags(raw any) ([]int64, error) {
	switch v := raw.(type) {
	case nil:
		return []int64{}, nil
	case []int64:
		return v, nil
	case []any:
		return tagList(v)
	case string:
		return decodeTags([]byte(v))
	case []byte:
		return decodeTags(v)
	default:
		return nil, malformed(search.ColumnTags, "want integer array, got %T", raw)
	}
}

func decodeTags(data []byte) ([]int64, error) {
	var list []any
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, malformed(search.ColumnTags, "invalid JSON array: %v", err)
	}
	return tagList(list)
}

func tagList(list []any) ([]int64, error) {
	tags := make([]int64, len(list))
	for i, item := range list {
		n, ok := toInt64(item)
		if !ok {
			return nil, malformed(search.ColumnTags, "element %d: want integer, got %T", i, item)
		}
		tags[i] = n
	}
	return tags, nil
}

// foldAttributes groups (key, value) pairs by key. Every value is kept,
// including repeated values under one key.
func foldAttributes(raw any) (Attributes, error) {
	var pairs []any
	switch v := raw.(type) {
	case nil:
		return Attributes{}, nil
	case []any:
		pairs = v
	case string:
		if err := json.Unmarshal([]byte(v), &pairs); err != nil {
			return nil, malformed(search.ColumnAttributes, "invalid JSON array: %v", err)
		}
	case []byte:
		if err := json.Unmarshal(v, &pairs); err != nil {
			return nil, malformed(search.ColumnAttributes, "invalid JSON array: %v", err)
		}
	default:
		return nil, malformed(search.ColumnAttributes, "want pair array, got %T", raw)
	}

	attrs := make(Attributes)
	for i, p := range pairs {
		obj, ok := p.(map[string]any)
		if !ok {
			return nil, malformed(search.ColumnAttributes, "pair %d: want object, got %T", i, p)
		}
		key, ok := obj["key"].(string)
		if !ok {
			return nil, malformed(search.ColumnAttributes, "pair %d: key is %T", i, obj["key"])
		}
		value, ok := obj["value"].(string)
		if !ok {
			return nil, malformed(search.ColumnAttributes, "pair %d: value is %T", i, obj["value"])
		}
		attrs[key] = append(attrs[key], value)
	}
	return attrs, nil
}
