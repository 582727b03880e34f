package value

// MergeMaps merges map values left to right into a new map. Later sources
// override earlier ones; when both sides hold a map under the same key the
// two maps are merged recursively. Non-map sources are ignored.
//
// Keys keep the position of their first appearance.
func MergeMaps(sources ...Value) Value {
	out := NewMap()
	for _, src := range sources {
		if m, ok := src.AsMap(); ok {
			mergeInto(out, m)
		}
	}
	return FromMap(out)
}

func mergeInto(dst, src *Map) {
	src.Range(func(key string, val Value) bool {
		if existing, ok := dst.Get(key); ok {
			dm, dok := existing.AsMap()
			sm, sok := val.AsMap()
			if dok && sok {
				merged := dm.Clone()
				mergeInto(merged, sm)
				dst.Set(key, FromMap(merged))
				return true
			}
		}
		dst.Set(key, val)
		return true
	})
}
