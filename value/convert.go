package value

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// maxConvertDepth bounds nesting during FromAny. Maps, slices and struct
// pointers are shared rather than copied, so cycles through them never
// reach it.
const maxConvertDepth = 256

// FromAny converts a Go value into a Value.
//
// Common types are matched directly. Slices, arrays and maps of any element
// type are converted recursively; Go maps are ordered by key. A map, slice
// or struct pointer reached twice converts to the same Value, so cyclic data
// stays cyclic instead of expanding. Structs (and pointers to them) become
// records whose exported fields are converted on first lookup. Exported
// zero-argument methods returning one value, optionally followed by an
// error, are exposed as lazily invoked methods. Anything else is wrapped as
// a plain value.
//
// Example usage:
//
//	type User struct{ Name string }
//	v := value.FromAny(map[string]any{"User": User{Name: "Bob"}})
//	v.GetAttr("User").GetAttr("Name").String() // "Bob"
func FromAny(v any) Value {
	c := converter{seen: make(map[refKey]Value)}
	return c.convert(v, 0)
}

// refKey identifies a converted map, slice or pointer.
type refKey struct {
	typ reflect.Type
	ptr uintptr
	n   int
}

type converter struct {
	seen map[refKey]Value
}

func (c *converter) convert(v any, depth int) Value {
	if depth > maxConvertDepth {
		return Undefined()
	}

	switch d := v.(type) {
	case nil:
		return None()
	case Value:
		return d
	case *Map:
		return FromMap(d)
	case Record:
		return FromRecord(d)
	case Func:
		return FromFunc(d)
	case func([]Value) (Value, error):
		return FromFunc(d)
	case bool:
		return FromBool(d)
	case string:
		return FromString(d)
	case int:
		return FromInt(int64(d))
	case int8:
		return FromInt(int64(d))
	case int16:
		return FromInt(int64(d))
	case int32:
		return FromInt(int64(d))
	case int64:
		return FromInt(d)
	case uint:
		return fromUint(uint64(d))
	case uint8:
		return FromInt(int64(d))
	case uint16:
		return FromInt(int64(d))
	case uint32:
		return FromInt(int64(d))
	case uint64:
		return fromUint(d)
	case float32:
		return FromFloat(float64(d))
	case float64:
		return FromFloat(d)
	case []Value:
		return FromSlice(d)
	case []string:
		items := make([]Value, len(d))
		for i, item := range d {
			items[i] = FromString(item)
		}
		return FromSlice(items)
	case map[string]Value:
		return FromMap(MapFromGo(d))
	case map[string]string:
		m := make(map[string]Value, len(d))
		for k, item := range d {
			m[k] = FromString(item)
		}
		return FromMap(MapFromGo(m))
	}

	return c.fromReflect(reflect.ValueOf(v), depth)
}

// fromUint keeps values above math.MaxInt64 as floats rather than letting
// them wrap negative.
func fromUint(u uint64) Value {
	if u > math.MaxInt64 {
		return FromFloat(float64(u))
	}
	return FromInt(int64(u))
}

func (c *converter) fromReflect(rv reflect.Value, depth int) Value {
	if !rv.IsValid() {
		return None()
	}

	switch rv.Kind() {
	case reflect.Bool:
		return FromBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return FromInt(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return fromUint(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return FromFloat(rv.Float())
	case reflect.String:
		return FromString(rv.String())
	case reflect.Slice:
		if rv.IsNil() {
			return FromSlice(nil)
		}
		key := refKey{typ: rv.Type(), ptr: rv.Pointer(), n: rv.Len()}
		if seen, ok := c.seen[key]; ok {
			return seen
		}
		items := make([]Value, rv.Len())
		out := FromSlice(items)
		c.seen[key] = out
		c.fillItems(items, rv, depth)
		return out
	case reflect.Array:
		items := make([]Value, rv.Len())
		c.fillItems(items, rv, depth)
		return FromSlice(items)
	case reflect.Map:
		if rv.IsNil() {
			return FromMap(nil)
		}
		key := refKey{typ: rv.Type(), ptr: rv.Pointer()}
		if seen, ok := c.seen[key]; ok {
			return seen
		}
		m := NewMap()
		out := FromMap(m)
		c.seen[key] = out

		entries := make(map[string]reflect.Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			entries[fmt.Sprint(interfaceOf(iter.Key()))] = iter.Value()
		}
		keys := make([]string, 0, len(entries))
		for k := range entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			m.Set(k, c.convert(interfaceOf(entries[k]), depth+1))
		}
		return out
	case reflect.Struct:
		return FromRecord(newStructRecord(rv))
	case reflect.Pointer:
		if rv.IsNil() {
			return None()
		}
		key := refKey{typ: rv.Type(), ptr: rv.Pointer()}
		if seen, ok := c.seen[key]; ok {
			return seen
		}
		var out Value
		if rv.Elem().Kind() == reflect.Struct {
			out = FromRecord(newStructRecord(rv))
			c.seen[key] = out
			return out
		}
		// Seed the entry so a pointer that leads back to itself stops here.
		c.seen[key] = Undefined()
		out = c.convert(interfaceOf(rv.Elem()), depth+1)
		c.seen[key] = out
		return out
	case reflect.Interface:
		if rv.IsNil() {
			return None()
		}
		return c.convert(interfaceOf(rv.Elem()), depth+1)
	case reflect.Func:
		if rv.IsNil() || !rv.CanInterface() {
			return None()
		}
		if fn, err := AdaptFunc(rv.Interface()); err == nil {
			return FromFunc(fn)
		}
	}
	return FromPlain(interfaceOf(rv))
}

func (c *converter) fillItems(items []Value, rv reflect.Value, depth int) {
	for i := range items {
		items[i] = c.convert(interfaceOf(rv.Index(i)), depth+1)
	}
}

func interfaceOf(rv reflect.Value) any {
	if !rv.IsValid() || !rv.CanInterface() {
		return nil
	}
	return rv.Interface()
}

// structRecord is the record form of a Go struct. Fields are converted on
// first lookup and then cached; methods are bound but only invoked on
// lookup.
type structRecord struct {
	typeName string
	value    reflect.Value
	names    []string
	index    map[string][]int
	methods  map[string]func() (Value, error)
	stringer fmt.Stringer

	mu     sync.Mutex
	fields map[string]Value
}

func newStructRecord(rv reflect.Value) *structRecord {
	ptr := rv
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}

	rec := &structRecord{
		typeName: rv.Type().String(),
		value:    rv,
		index:    make(map[string][]int),
		methods:  make(map[string]func() (Value, error)),
		fields:   make(map[string]Value),
	}

	for _, field := range reflect.VisibleFields(rv.Type()) {
		if !field.IsExported() || field.Anonymous {
			continue
		}
		// Promoted fields behind a nil embedded pointer do not exist.
		if _, err := rv.FieldByIndexErr(field.Index); err != nil {
			continue
		}
		rec.names = append(rec.names, field.Name)
		rec.index[field.Name] = field.Index
	}

	// Methods declared on the pointer receiver are only reachable when the
	// struct was passed by pointer.
	addMethods(rec, ptr)
	if s, ok := interfaceOf(ptr).(fmt.Stringer); ok {
		rec.stringer = s
	}
	return rec
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func addMethods(rec *structRecord, rv reflect.Value) {
	t := rv.Type()
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !m.IsExported() || m.Type.NumIn() != 1 {
			continue
		}
		switch m.Type.NumOut() {
		case 1:
		case 2:
			if m.Type.Out(1) != errorType {
				continue
			}
		default:
			continue
		}
		if _, exists := rec.methods[m.Name]; exists {
			continue
		}

		bound := rv.Method(i)
		name := m.Name
		rec.methods[name] = func() (result Value, err error) {
			defer func() {
				if r := recover(); r != nil {
					result, err = Undefined(), fmt.Errorf("method %s.%s panicked: %v", rec.typeName, name, r)
				}
			}()
			out := bound.Call(nil)
			if len(out) == 2 && !out[1].IsNil() {
				return Undefined(), out[1].Interface().(error)
			}
			return FromAny(interfaceOf(out[0])), nil
		}
	}
}

func (r *structRecord) Field(name string) (Value, bool) {
	idx, ok := r.index[name]
	if !ok {
		return Undefined(), false
	}

	r.mu.Lock()
	v, cached := r.fields[name]
	r.mu.Unlock()
	if cached {
		return v, true
	}

	fv, err := r.value.FieldByIndexErr(idx)
	if err != nil {
		return Undefined(), false
	}
	v = FromAny(interfaceOf(fv))

	r.mu.Lock()
	r.fields[name] = v
	r.mu.Unlock()
	return v, true
}

func (r *structRecord) FieldNames() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func (r *structRecord) Method(name string) (func() (Value, error), bool) {
	if m, ok := r.methods[name]; ok {
		return m, true
	}
	names := make([]string, 0, len(r.methods))
	for n := range r.methods {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return r.methods[n], true
		}
	}
	return nil, false
}

// ToGo converts a Value back into plain Go data: nil, bool, int64,
// float64, string, []any and map[string]any. Records, functions and plain
// values are returned as they are stored. A container reached again inside
// itself converts to nil.
func ToGo(v Value) any {
	var seen visiting
	return toGo(v, &seen)
}

func toGo(v Value, seen *visiting) any {
	switch d := v.data.(type) {
	case nil, undefinedType, noneType:
		return nil
	case []Value:
		leave, ok := seen.enter(d)
		if !ok {
			return nil
		}
		defer leave()
		out := make([]any, len(d))
		for i, item := range d {
			out[i] = toGo(item, seen)
		}
		return out
	case *Map:
		leave, ok := seen.enter(d)
		if !ok {
			return nil
		}
		defer leave()
		out := make(map[string]any, d.Len())
		d.Range(func(k string, item Value) bool {
			out[k] = toGo(item, seen)
			return true
		})
		return out
	}
	return v.Raw()
}
