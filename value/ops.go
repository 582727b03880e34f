package value

import (
	"reflect"
	"strings"
)

// Equal reports whether two values are equal. Numbers compare numerically
// across int and float, none equals undefined, sequences and maps compare
// element-wise. Values of different kinds are never equal.
func (v Value) Equal(other Value) bool {
	return v.equal(other, nil)
}

// equal compares v and other. A pair of containers already under
// comparison is assumed equal, so cyclic values terminate.
func (v Value) equal(other Value, seen map[[2]any]bool) bool {
	if v.IsNil() || other.IsNil() {
		return v.IsNil() && other.IsNil()
	}

	if v.IsNumber() && other.IsNumber() {
		if a, ok := v.AsInt(); ok {
			if b, ok := other.AsInt(); ok {
				return a == b
			}
		}
		a, _ := v.AsFloat()
		b, _ := other.AsFloat()
		return a == b
	}

	switch a := v.data.(type) {
	case bool:
		b, ok := other.data.(bool)
		return ok && a == b
	case string:
		b, ok := other.data.(string)
		return ok && a == b
	case []Value:
		b, ok := other.data.([]Value)
		if !ok || len(a) != len(b) {
			return false
		}
		seen, ok = pairSeen(seen, a, b)
		if ok {
			return true
		}
		for i := range a {
			if !a[i].equal(b[i], seen) {
				return false
			}
		}
		return true
	case *Map:
		b, ok := other.data.(*Map)
		if !ok || a.Len() != b.Len() {
			return false
		}
		if a == b {
			return true
		}
		seen, ok = pairSeen(seen, a, b)
		if ok {
			return true
		}
		equal := true
		a.Range(func(k string, av Value) bool {
			bv, ok := b.Get(k)
			equal = ok && av.equal(bv, seen)
			return equal
		})
		return equal
	case Record:
		b, ok := other.data.(Record)
		return ok && sameIdentity(a, b)
	case plain:
		b, ok := other.data.(plain)
		return ok && sameIdentity(a.v, b.v)
	}
	return false
}

// pairSeen records the pair (a, b) and reports whether it was already
// recorded.
func pairSeen(seen map[[2]any]bool, a, b any) (map[[2]any]bool, bool) {
	ka, _ := refOf(a)
	kb, _ := refOf(b)
	key := [2]any{ka, kb}
	if seen[key] {
		return seen, true
	}
	if seen == nil {
		seen = make(map[[2]any]bool)
	}
	seen[key] = true
	return seen, false
}

// sameIdentity compares two host values with ==, treating uncomparable
// dynamic types as unequal.
func sameIdentity(a, b any) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || ta == nil || !ta.Comparable() {
		return false
	}
	return a == b
}

// Compare orders two values. Numbers compare numerically and strings
// lexically; ok is false for any other combination.
func (v Value) Compare(other Value) (int, bool) {
	if a, ok := v.AsInt(); ok {
		if b, ok := other.AsInt(); ok {
			return cmpOrdered(a, b), true
		}
	}
	if v.IsNumber() && other.IsNumber() {
		a, _ := v.AsFloat()
		b, _ := other.AsFloat()
		return cmpOrdered(a, b), true
	}
	if a, ok := v.AsString(); ok {
		if b, ok := other.AsString(); ok {
			return strings.Compare(a, b), true
		}
	}
	return 0, false
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
