package value

import "reflect"

// cycleMarker is rendered in place of a map, sequence or record that
// contains itself.
const cycleMarker = "<cycle>"

type sliceRef struct {
	first *Value
	n     int
}

// refOf returns an identity for values that can take part in a cycle.
func refOf(data any) (any, bool) {
	switch d := data.(type) {
	case *Map:
		return d, d != nil
	case []Value:
		if len(d) == 0 {
			return nil, false
		}
		return sliceRef{&d[0], len(d)}, true
	case MapRecord:
		return d.Fields, d.Fields != nil
	case Record:
		if reflect.TypeOf(d).Kind() == reflect.Pointer {
			return d, true
		}
	}
	return nil, false
}

// visiting tracks the containers on the current traversal path.
type visiting map[any]bool

// enter marks data as being visited. It reports false when data is already
// on the path; otherwise the returned func must be called on the way out.
func (s *visiting) enter(data any) (func(), bool) {
	key, ok := refOf(data)
	if !ok {
		return func() {}, true
	}
	if (*s)[key] {
		return nil, false
	}
	if *s == nil {
		*s = make(visiting)
	}
	(*s)[key] = true
	return func() { delete(*s, key) }, true
}
