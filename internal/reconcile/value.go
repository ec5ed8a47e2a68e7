package reconcile

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Kind tags the JSON type held by a Value
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Value is untrusted JSON decoded from model output. Every accessor is total:
// asking for a field of a non-object or an item of a non-array yields a null
// Value instead of panicking.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	arr  []Value
	obj  map[string]Value
}

// Parse decodes a JSON document into a Value
func Parse(data string) (Value, error) {
	var raw any
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return Value{}, err
	}
	return fromAny(raw), nil
}

func fromAny(x any) Value {
	switch t := x.(type) {
	case bool:
		return Value{kind: KindBool, b: t}
	case float64:
		return Value{kind: KindNumber, n: t}
	case string:
		return Value{kind: KindString, s: t}
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = fromAny(item)
		}
		return Value{kind: KindArray, arr: items}
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, v := range t {
			fields[k] = fromAny(v)
		}
		return Value{kind: KindObject, obj: fields}
	default:
		return Value{}
	}
}

// Kind returns the JSON type of the value
func (v Value) Kind() Kind {
	return v.kind
}

// Get returns the named field of an object
func (v Value) Get(key string) Value {
	if v.kind != KindObject {
		return Value{}
	}
	return v.obj[key]
}

// Has reports whether an object carries the named field
func (v Value) Has(key string) bool {
	if v.kind != KindObject {
		return false
	}
	_, ok := v.obj[key]
	return ok
}

// Items returns the elements of an array
func (v Value) Items() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.arr, true
}

// StringOr returns the string value, or def when the value is not a
// non-empty string. Numbers are formatted.
func (v Value) StringOr(def string) string {
	switch v.kind {
	case KindString:
		if strings.TrimSpace(v.s) != "" {
			return v.s
		}
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	}
	return def
}

// IntOr returns the value as an int, or def when it is zero or not numeric.
// Numeric strings are accepted.
func (v Value) IntOr(def int) int {
	switch v.kind {
	case KindNumber:
		if v.n != 0 {
			return int(v.n)
		}
	case KindString:
		if n, err := strconv.Atoi(strings.TrimSpace(v.s)); err == nil && n != 0 {
			return n
		}
	}
	return def
}

// Truthy reports true for boolean true and for the string "true"
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindString:
		return strings.EqualFold(strings.TrimSpace(v.s), "true")
	}
	return false
}

// Strings returns the non-empty string elements of an array, or an empty
// slice. A single string is treated as a one-element list.
func (v Value) Strings() []string {
	out := []string{}
	switch v.kind {
	case KindString:
		if strings.TrimSpace(v.s) != "" {
			out = append(out, v.s)
		}
	case KindArray:
		for _, item := range v.arr {
			if s := item.StringOr(""); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
