package texttemplate

import (
	"math"

	"github.com/yetanotherchris/text-template/parser"
	"github.com/yetanotherchris/text-template/value"
)

// evalPath resolves an accessor chain. A segment that cannot be resolved,
// or a nil value part way along the chain, makes the whole path resolve to
// Undefined rather than failing.
func (s *state) evalPath(dot value.Value, p *parser.PathNode) (value.Value, error) {
	var cur value.Value
	switch p.Root {
	case parser.RootDot:
		cur = dot
	case parser.RootData:
		cur = s.root
	case parser.RootVar:
		cur, _ = s.lookupVar(p.Name)
	case parser.RootIdent:
		if fn, ok := s.lookupFunc(p.Name); ok {
			var err error
			if cur, err = s.call(p.Name, fn, nil); err != nil {
				return value.Undefined(), err
			}
		} else {
			cur = s.resolveIdent(dot, p.Name)
		}
	case parser.RootPipe:
		var err error
		if cur, err = s.evalPipeline(dot, p.Pipe); err != nil {
			return value.Undefined(), err
		}
	}

	for _, seg := range p.Segments {
		if cur.IsNil() {
			return value.Undefined(), nil
		}
		next, err := s.step(dot, cur, seg)
		if err != nil {
			return value.Undefined(), err
		}
		cur = next
	}
	return cur, nil
}

func (s *state) step(dot, cur value.Value, seg parser.Segment) (value.Value, error) {
	switch seg.Kind {
	case parser.SegField:
		return cur.GetAttr(seg.Name), nil
	case parser.SegIndex:
		return cur.GetItem(value.FromInt(seg.Index)), nil
	case parser.SegKey:
		return cur.GetItem(value.FromString(seg.Name)), nil
	case parser.SegPath:
		key, err := s.evalPath(dot, seg.Path)
		if err != nil {
			return value.Undefined(), err
		}
		return cur.GetItem(integralKey(key)), nil
	}
	return value.Undefined(), nil
}

// resolveIdent resolves a bare name as a variable, then as a member of dot.
func (s *state) resolveIdent(dot value.Value, name string) value.Value {
	if v, ok := s.lookupVar(name); ok {
		return v
	}
	return dot.GetAttr(name)
}

// integralKey turns a float with no fractional part into an int so it can
// index a sequence.
func integralKey(key value.Value) value.Value {
	if key.Kind() != value.KindFloat {
		return key
	}
	f, _ := key.AsFloat()
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		return value.FromInt(int64(f))
	}
	return key
}
