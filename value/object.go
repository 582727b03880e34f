package value

import (
	"fmt"
	"strings"
)

// Record is implemented by host values that expose named fields to
// templates. Field reports whether the name exists.
//
// Example implementation:
//
//	type User struct {
//	    Name  string
//	    Email string
//	}
//
//	func (u *User) Field(name string) (value.Value, bool) {
//	    switch name {
//	    case "Name":
//	        return value.FromString(u.Name), true
//	    case "Email":
//	        return value.FromString(u.Email), true
//	    }
//	    return value.Undefined(), false
//	}
type Record interface {
	Field(name string) (Value, bool)
}

// FieldLister is implemented by records that can enumerate their field
// names. It enables case-insensitive field lookup.
type FieldLister interface {
	FieldNames() []string
}

// MethodProvider is implemented by records that expose zero-argument
// methods. Method returns the bound method for a case-insensitive name.
type MethodProvider interface {
	Method(name string) (func() (Value, error), bool)
}

// lookupRecord resolves name on r: exact field, case-insensitive field,
// then zero-argument method. A failing method resolves to Undefined.
func lookupRecord(r Record, name string) Value {
	if v, ok := r.Field(name); ok {
		return v
	}
	if lister, ok := r.(FieldLister); ok {
		for _, field := range lister.FieldNames() {
			if strings.EqualFold(field, name) {
				if v, ok := r.Field(field); ok {
					return v
				}
			}
		}
	}
	if mp, ok := r.(MethodProvider); ok {
		if method, ok := mp.Method(name); ok {
			v, err := method()
			if err != nil {
				return Undefined()
			}
			return v
		}
	}
	return Undefined()
}

func recordString(r Record, seen *visiting) string {
	if sr, ok := r.(*structRecord); ok && sr.stringer != nil {
		return sr.stringer.String()
	}
	if s, ok := r.(fmt.Stringer); ok {
		return s.String()
	}
	lister, ok := r.(FieldLister)
	if !ok {
		return fmt.Sprintf("%v", r)
	}
	names := lister.FieldNames()
	parts := make([]string, 0, len(names))
	for _, name := range names {
		v, _ := r.Field(name)
		parts = append(parts, v.str(seen))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// MapRecord adapts a plain field table to the Record interface.
type MapRecord struct {
	Fields *Map
}

// Field returns the named field.
func (m MapRecord) Field(name string) (Value, bool) {
	return m.Fields.Get(name)
}

// FieldNames returns the field names in declaration order.
func (m MapRecord) FieldNames() []string {
	return m.Fields.Keys()
}
