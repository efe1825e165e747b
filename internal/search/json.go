package search

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ParseExpr decodes the JSON form of an expression.
//
// Each node is an object with exactly one key:
//
//	{"not": E}  {"and": [E, E]}  {"or": [E, E]}
//	{"tag": int}  {"attribute": [string, string|null]}
//	{"minid": int}  {"maxid": int}
func ParseExpr(data []byte) (Expr, error) {
	var node map[string]json.RawMessage
	if err := json.Unmarshal(data, &node); err != nil {
		return nil, Errorf(ErrCodeInvalidRequest, "operator must be an object: %v", err)
	}
	if len(node) != 1 {
		keys := make([]string, 0, len(node))
		for k := range node {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return nil, Errorf(ErrCodeInvalidRequest, "operator must have exactly one key, got %v", keys)
	}

	for key, body := range node {
		switch key {
		case "not":
			x, err := ParseExpr(body)
			if err != nil {
				return nil, err
			}
			return Not{X: x}, nil

		case "and", "or":
			left, right, err := parsePair(key, body)
			if err != nil {
				return nil, err
			}
			if key == "and" {
				return And{Left: left, Right: right}, nil
			}
			return Or{Left: left, Right: right}, nil

		case "tag":
			id, err := parseInt(key, body)
			if err != nil {
				return nil, err
			}
			return Tag{ID: id}, nil

		case "minid":
			id, err := parseInt(key, body)
			if err != nil {
				return nil, err
			}
			return MinID{ID: id}, nil

		case "maxid":
			id, err := parseInt(key, body)
			if err != nil {
				return nil, err
			}
			return MaxID{ID: id}, nil

		case "attribute":
			var pair []*string
			if err := json.Unmarshal(body, &pair); err != nil {
				return nil, Errorf(ErrCodeInvalidRequest, "attribute must be [key, value]: %v", err)
			}
			if len(pair) != 2 || pair[0] == nil {
				return nil, Errorf(ErrCodeInvalidRequest, "attribute must be [key, value]")
			}
			return Attribute{Key: *pair[0], Value: pair[1]}, nil

		default:
			return nil, Errorf(ErrCodeInvalidRequest, "unknown operator %q", key)
		}
	}

	// Unreachable: len(node) == 1.
	return nil, Errorf(ErrCodeInvalidRequest, "empty operator")
}

func parsePair(key string, body json.RawMessage) (Expr, Expr, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(body, &parts); err != nil {
		return nil, nil, Errorf(ErrCodeInvalidRequest, "%s must be a two-element array: %v", key, err)
	}
	if len(parts) != 2 {
		return nil, nil, Errorf(ErrCodeInvalidRequest, "%s must be a two-element array, got %d elements", key, len(parts))
	}
	left, err := ParseExpr(parts[0])
	if err != nil {
		return nil, nil, err
	}
	right, err := ParseExpr(parts[1])
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

func parseInt(key string, body json.RawMessage) (int64, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return 0, Errorf(ErrCodeInvalidRequest, "%s must be an integer: %v", key, err)
	}
	n, ok := raw.(json.Number)
	if !ok {
		return 0, Errorf(ErrCodeInvalidRequest, "%s must be an integer, got %T", key, raw)
	}
	i, err := n.Int64()
	if err != nil {
		return 0, Errorf(ErrCodeInvalidRequest, "%s must be an integer, got %s", key, n)
	}
	return i, nil
}

// MarshalExpr encodes an expression in its JSON form.
func MarshalExpr(e Expr) ([]byte, error) {
	v, err := wireExpr(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func wireExpr(e Expr) (map[string]any, error) {
	pair := func(key string, l, r Expr) (map[string]any, error) {
		left, err := wireExpr(l)
		if err != nil {
			return nil, err
		}
		right, err := wireExpr(r)
		if err != nil {
			return nil, err
		}
		return map[string]any{key: []any{left, right}}, nil
	}

	switch n := e.(type) {
	case Not:
		x, err := wireExpr(n.X)
		if err != nil {
			return nil, err
		}
		return map[string]any{"not": x}, nil
	case *Not:
		return wireExpr(*n)
	case And:
		return pair("and", n.Left, n.Right)
	case *And:
		return pair("and", n.Left, n.Right)
	case Or:
		return pair("or", n.Left, n.Right)
	case *Or:
		return pair("or", n.Left, n.Right)
	case Tag:
		return map[string]any{"tag": n.ID}, nil
	case *Tag:
		return map[string]any{"tag": n.ID}, nil
	case Attribute:
		return map[string]any{"attribute": []any{n.Key, n.Value}}, nil
	case *Attribute:
		return wireExpr(*n)
	case MinID:
		return map[string]any{"minid": n.ID}, nil
	case *MinID:
		return map[string]any{"minid": n.ID}, nil
	case MaxID:
		return map[string]any{"maxid": n.ID}, nil
	case *MaxID:
		return map[string]any{"maxid": n.ID}, nil
	default:
		return nil, fmt.Errorf("unsupported expression type: %T", e)
	}
}

// asCompileError classifies a decoding failure as an invalid request,
// keeping an existing CompileError as is.
func asCompileError(err error) error {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce
	}
	return Errorf(ErrCodeInvalidRequest, "decode request: %v", err)
}
