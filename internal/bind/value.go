// Package bind models the values passed to the database alongside compiled
// query text.
//
// A compiled statement carries its literals out of band: the text contains
// only positional placeholders and the Values slice holds one entry per
// placeholder, in placeholder order. Value is a sealed interface so that the
// executor can switch exhaustively over the four storage types.
package bind

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind identifies the storage type of a bound value.
type Kind int

const (
	KindBool Kind = iota + 1
	KindInt
	KindFloat
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a sealed interface. Only Bool, Int, Float and Text implement it.
type Value interface {
	Kind() Kind
	boundValue()
}

// Bool is a boolean bound value.
type Bool bool

// Int is a 64-bit integer bound value.
type Int int64

// Float is a 64-bit float bound value.
type Float float64

// Text is a string bound value.
type Text string

func (Bool) boundValue()  {}
func (Int) boundValue()   {}
func (Float) boundValue() {}
func (Text) boundValue()  {}

func (Bool) Kind() Kind  { return KindBool }
func (Int) Kind() Kind   { return KindInt }
func (Float) Kind() Kind { return KindFloat }
func (Text) Kind() Kind  { return KindText }

// Native converts v to the Go type database drivers accept for its kind.
func Native(v Value) (any, error) {
	switch val := v.(type) {
	case Bool:
		return bool(val), nil
	case Int:
		return int64(val), nil
	case Float:
		return float64(val), nil
	case Text:
		return string(val), nil
	default:
		return nil, fmt.Errorf("unsupported bound value type: %T", v)
	}
}

// Args converts values to driver arguments, preserving order.
func Args(values []Value) ([]any, error) {
	args := make([]any, len(values))
	for i, v := range values {
		native, err := Native(v)
		if err != nil {
			return nil, fmt.Errorf("bound value %d: %w", i+1, err)
		}
		args[i] = native
	}
	return args, nil
}

// Kinds returns the kind of each value, in order.
func Kinds(values []Value) []Kind {
	kinds := make([]Kind, len(values))
	for i, v := range values {
		kinds[i] = v.Kind()
	}
	return kinds
}

// MarshalJSON renders a kind by name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}
