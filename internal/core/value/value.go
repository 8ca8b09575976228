// Package value models stored record attributes as a tagged union so that
// backend numbers (arbitrary-precision decimals) can be normalized into
// response-safe integers and floats without reflection.
package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
)

type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindDecimal
	KindInt
	KindFloat
	KindString
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindDecimal:
		return "decimal"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is an immutable node of an attribute tree. The zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	d    decimal.Decimal
	i    int64
	f    float64
	s    string
	list []Value
	m    map[string]Value
}

func Null() Value               { return Value{} }
func Bool(b bool) Value         { return Value{kind: KindBool, b: b} }
func Int(i int64) Value         { return Value{kind: KindInt, i: i} }
func Float(f float64) Value     { return Value{kind: KindFloat, f: f} }
func String(s string) Value     { return Value{kind: KindString, s: s} }
func List(items ...Value) Value { return Value{kind: KindList, list: items} }

func Decimal(d decimal.Decimal) Value {
	return Value{kind: KindDecimal, d: d}
}

// DecimalString parses a backend number literal such as "12" or "12.50".
func DecimalString(raw string) (Value, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return Value{}, fmt.Errorf("parse decimal %q: %w", raw, err)
	}
	return Decimal(d), nil
}

func Map(fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}
	return Value{kind: KindMap, m: fields}
}

func Strings(items []string) Value {
	out := make([]Value, 0, len(items))
	for _, s := range items {
		out = append(out, String(s))
	}
	return List(out...)
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) AsInt() (int64, bool)            { return v.i, v.kind == KindInt }
func (v Value) AsFloat() (float64, bool)        { return v.f, v.kind == KindFloat }
func (v Value) AsString() (string, bool)        { return v.s, v.kind == KindString }
func (v Value) AsList() ([]Value, bool)         { return v.list, v.kind == KindList }
func (v Value) AsMap() (map[string]Value, bool) { return v.m, v.kind == KindMap }

// Get returns a map field. It reports false for missing keys and non-map values.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	field, ok := v.m[key]
	return field, ok
}

// Keys returns map keys in sorted order.
func (v Value) Keys() []string {
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Normalize converts every Decimal in the tree into Int when it has no
// fractional part and fits in int64, and into Float otherwise.
func Normalize(v Value) Value {
	switch v.kind {
	case KindDecimal:
		if v.d.IsInteger() {
			if bi := v.d.BigInt(); bi.IsInt64() {
				return Int(bi.Int64())
			}
		}
		f, _ := v.d.Float64()
		return Float(f)
	case KindList:
		out := make([]Value, len(v.list))
		for i, item := range v.list {
			out[i] = Normalize(item)
		}
		return List(out...)
	case KindMap:
		out := make(map[string]Value, len(v.m))
		for k, field := range v.m {
			out[k] = Normalize(field)
		}
		return Map(out)
	default:
		return v
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return strconv.AppendBool(nil, v.b), nil
	case KindDecimal:
		return []byte(v.d.String()), nil
	case KindInt:
		return strconv.AppendInt(nil, v.i, 10), nil
	case KindFloat:
		return json.Marshal(v.f)
	case KindString:
		return json.Marshal(v.s)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindMap:
		return json.Marshal(v.m)
	default:
		return nil, fmt.Errorf("marshal value: unknown kind %d", v.kind)
	}
}

// UnmarshalJSON decodes numbers as Decimal, keeping their literal precision.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// FromAny converts the output of a json.Decoder with UseNumber into a Value.
func FromAny(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return DecimalString(t.String())
	case string:
		return String(t), nil
	case int64:
		return Decimal(decimal.NewFromInt(t)), nil
	case int:
		return Decimal(decimal.NewFromInt(int64(t))), nil
	case float64:
		return Decimal(decimal.NewFromFloat(t)), nil
	case []string:
		return Strings(t), nil
	case []any:
		out := make([]Value, 0, len(t))
		for _, item := range t {
			parsed, err := FromAny(item)
			if err != nil {
				return Value{}, err
			}
			out = append(out, parsed)
		}
		return List(out...), nil
	case map[string]any:
		out := make(map[string]Value, len(t))
		for k, item := range t {
			parsed, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("field %q: %w", k, err)
			}
			out[k] = parsed
		}
		return Map(out), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", raw)
	}
}
