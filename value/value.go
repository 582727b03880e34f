// Package value provides the dynamic value type the template engine
// evaluates.
//
// A Value is a closed sum over the kinds a template can observe: undefined
// (the result of a resolution miss), none, booleans, integers, floats,
// strings, ordered sequences, key-ordered maps, records and functions.
// Host data enters through FromAny, which converts Go values into these
// kinds once, at the boundary. Structs become records whose fields and
// zero-argument methods are looked up by name without further reflection.
//
// # Example Usage
//
//	ctx := value.NewMap()
//	ctx.Set("Name", value.FromString("World"))
//	ctx.Set("Items", value.FromSlice([]value.Value{
//	    value.FromString("a"),
//	    value.FromString("b"),
//	}))
//
//	v := value.FromMap(ctx)
//	v.GetAttr("Name").String() // "World"
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind describes the type of a Value.
type Kind int

const (
	// KindUndefined is the result of a resolution miss. It renders as the
	// empty string and is falsy.
	KindUndefined Kind = iota
	// KindNone is an explicit null.
	KindNone
	KindBool
	KindInt
	KindFloat
	KindString
	// KindSeq is an ordered list.
	KindSeq
	// KindMap is a string-keyed map that iterates in insertion order.
	KindMap
	// KindRecord is a host value exposing named fields and methods.
	KindRecord
	// KindFunc is a callable function value.
	KindFunc
	// KindPlain is any other host value, carried opaquely.
	KindPlain
)

var kindNames = map[Kind]string{
	KindUndefined: "undefined",
	KindNone:      "none",
	KindBool:      "bool",
	KindInt:       "int",
	KindFloat:     "float",
	KindString:    "string",
	KindSeq:       "sequence",
	KindMap:       "map",
	KindRecord:    "record",
	KindFunc:      "function",
	KindPlain:     "plain",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value represents a dynamically typed template value. The zero Value is
// undefined.
type Value struct {
	data any
}

type undefinedType struct{}
type noneType struct{}

// plain wraps opaque host values so they cannot collide with the native
// representations used by the other kinds.
type plain struct {
	v any
}

// Undefined returns the undefined value.
func Undefined() Value {
	return Value{}
}

// None returns the none value.
func None() Value {
	return Value{data: noneType{}}
}

// FromBool creates a Value from a boolean.
func FromBool(b bool) Value {
	return Value{data: b}
}

// FromInt creates a Value from an int64.
func FromInt(i int64) Value {
	return Value{data: i}
}

// FromFloat creates a Value from a float64.
func FromFloat(f float64) Value {
	return Value{data: f}
}

// FromString creates a Value from a string.
func FromString(s string) Value {
	return Value{data: s}
}

// FromSlice creates a sequence Value. The slice is not copied.
func FromSlice(items []Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{data: items}
}

// FromMap creates a map Value. A nil map becomes an empty map.
func FromMap(m *Map) Value {
	if m == nil {
		m = NewMap()
	}
	return Value{data: m}
}

// FromRecord creates a record Value.
func FromRecord(r Record) Value {
	if r == nil {
		return None()
	}
	return Value{data: r}
}

// FromFunc creates a function Value.
func FromFunc(fn Func) Value {
	if fn == nil {
		return None()
	}
	return Value{data: fn}
}

// FromPlain wraps an arbitrary host value without conversion.
func FromPlain(v any) Value {
	return Value{data: plain{v}}
}

// Kind returns the kind of value.
func (v Value) Kind() Kind {
	switch v.data.(type) {
	case nil, undefinedType:
		return KindUndefined
	case noneType:
		return KindNone
	case bool:
		return KindBool
	case int64:
		return KindInt
	case float64:
		return KindFloat
	case string:
		return KindString
	case []Value:
		return KindSeq
	case *Map:
		return KindMap
	case Record:
		return KindRecord
	case Func:
		return KindFunc
	default:
		return KindPlain
	}
}

// IsUndefined reports whether the value is undefined.
func (v Value) IsUndefined() bool {
	return v.Kind() == KindUndefined
}

// IsNone reports whether the value is none.
func (v Value) IsNone() bool {
	return v.Kind() == KindNone
}

// IsNil reports whether the value is undefined or none.
func (v Value) IsNil() bool {
	k := v.Kind()
	return k == KindUndefined || k == KindNone
}

// IsNumber reports whether the value is an int or a float.
func (v Value) IsNumber() bool {
	k := v.Kind()
	return k == KindInt || k == KindFloat
}

// IsTrue returns the truthiness of the value: nil values, false, zero
// numbers, empty strings and empty collections are false, anything else is
// true.
func (v Value) IsTrue() bool {
	switch d := v.data.(type) {
	case nil, undefinedType, noneType:
		return false
	case bool:
		return d
	case int64:
		return d != 0
	case float64:
		return d != 0 && !math.IsNaN(d)
	case string:
		return d != ""
	case []Value:
		return len(d) > 0
	case *Map:
		return d.Len() > 0
	default:
		return true
	}
}

// String renders the value as template output. A container that holds
// itself renders as "<cycle>" at the point of recursion.
func (v Value) String() string {
	var seen visiting
	return v.str(&seen)
}

func (v Value) str(seen *visiting) string {
	switch d := v.data.(type) {
	case nil, undefinedType, noneType:
		return ""
	case bool:
		return strconv.FormatBool(d)
	case int64:
		return strconv.FormatInt(d, 10)
	case float64:
		return formatFloat(d)
	case string:
		return d
	case Func:
		return "<func>"
	case plain:
		return fmt.Sprint(d.v)
	}

	leave, ok := seen.enter(v.data)
	if !ok {
		return cycleMarker
	}
	defer leave()

	switch d := v.data.(type) {
	case []Value:
		parts := make([]string, len(d))
		for i, item := range d {
			parts[i] = item.str(seen)
		}
		return "[" + strings.Join(parts, " ") + "]"
	case *Map:
		parts := make([]string, 0, d.Len())
		d.Range(func(key string, val Value) bool {
			parts = append(parts, key+":"+val.str(seen))
			return true
		})
		return "map[" + strings.Join(parts, " ") + "]"
	case Record:
		return recordString(d, seen)
	default:
		return fmt.Sprint(d)
	}
}

// Repr returns a debug representation of the value.
func (v Value) Repr() string {
	var seen visiting
	return v.repr(&seen)
}

func (v Value) repr(seen *visiting) string {
	switch d := v.data.(type) {
	case nil, undefinedType:
		return "undefined"
	case noneType:
		return "none"
	case string:
		return strconv.Quote(d)
	case []Value, *Map:
		leave, ok := seen.enter(d)
		if !ok {
			return cycleMarker
		}
		defer leave()
	}

	switch d := v.data.(type) {
	case []Value:
		parts := make([]string, len(d))
		for i, item := range d {
			parts[i] = item.repr(seen)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *Map:
		parts := make([]string, 0, d.Len())
		d.Range(func(key string, val Value) bool {
			parts = append(parts, strconv.Quote(key)+": "+val.repr(seen))
			return true
		})
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return v.str(seen)
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	case math.IsNaN(f):
		return "NaN"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// AsString returns the string if the value is one.
func (v Value) AsString() (string, bool) {
	s, ok := v.data.(string)
	return s, ok
}

// AsInt returns the integer if the value is one.
func (v Value) AsInt() (int64, bool) {
	i, ok := v.data.(int64)
	return i, ok
}

// AsFloat returns the value as a float64 if it is numeric.
func (v Value) AsFloat() (float64, bool) {
	switch d := v.data.(type) {
	case int64:
		return float64(d), true
	case float64:
		return d, true
	}
	return 0, false
}

// AsBool returns the boolean if the value is one.
func (v Value) AsBool() (bool, bool) {
	b, ok := v.data.(bool)
	return b, ok
}

// AsSlice returns the items if the value is a sequence.
func (v Value) AsSlice() ([]Value, bool) {
	s, ok := v.data.([]Value)
	return s, ok
}

// AsMap returns the map if the value is one.
func (v Value) AsMap() (*Map, bool) {
	m, ok := v.data.(*Map)
	return m, ok
}

// AsRecord returns the record if the value is one.
func (v Value) AsRecord() (Record, bool) {
	r, ok := v.data.(Record)
	return r, ok
}

// AsFunc returns the function if the value is one.
func (v Value) AsFunc() (Func, bool) {
	fn, ok := v.data.(Func)
	return fn, ok
}

// Len returns the rune count of a string or the size of a collection.
func (v Value) Len() (int, bool) {
	switch d := v.data.(type) {
	case string:
		return len([]rune(d)), true
	case []Value:
		return len(d), true
	case *Map:
		return d.Len(), true
	}
	return 0, false
}

// GetAttr looks up a named member. Maps match keys exactly. Records try an
// exact field, then a case-insensitive field, then a zero-argument method.
// A miss returns Undefined.
func (v Value) GetAttr(name string) Value {
	switch d := v.data.(type) {
	case *Map:
		if val, ok := d.Get(name); ok {
			return val
		}
	case Record:
		return lookupRecord(d, name)
	}
	return Undefined()
}

// GetItem indexes a sequence by integer or a map or record by string key.
// Out-of-range indexes and absent keys return Undefined.
func (v Value) GetItem(key Value) Value {
	switch d := v.data.(type) {
	case []Value:
		if idx, ok := key.AsInt(); ok && idx >= 0 && idx < int64(len(d)) {
			return d[idx]
		}
	case *Map, Record:
		if s, ok := key.AsString(); ok {
			return v.GetAttr(s)
		}
		if key.Kind() == KindInt {
			return v.GetAttr(key.String())
		}
	}
	return Undefined()
}

// Raw returns the underlying Go representation.
func (v Value) Raw() any {
	if p, ok := v.data.(plain); ok {
		return p.v
	}
	return v.data
}
