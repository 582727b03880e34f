package texttemplate

import (
	goerrors "errors"
	"log/slog"
	"maps"
	"strings"

	"github.com/yetanotherchris/text-template/internal/errors"
	"github.com/yetanotherchris/text-template/parser"
	"github.com/yetanotherchris/text-template/value"
)

// definition is a named template body together with the source it was
// parsed from.
type definition struct {
	name   string
	source string
	body   *parser.ListNode
}

// state holds the evaluation state of one execution.
type state struct {
	name     string // template currently rendering
	source   string
	root     value.Value
	scopes   []map[string]value.Value
	registry map[string]*definition
	funcs    map[string]value.Func
	missing  value.MissingKey
	out      *strings.Builder
	depth    int
	maxDepth int
	fuel     *fuelTracker
	logger   *slog.Logger
}

// sentinel errors for loop control
var (
	errContinue = goerrors.New("continue")
	errBreak    = goerrors.New("break")
)

func (s *state) pushScope() {
	s.scopes = append(s.scopes, make(map[string]value.Value))
}

func (s *state) popScope() {
	if len(s.scopes) > 1 {
		s.scopes = s.scopes[:len(s.scopes)-1]
	}
}

// declare binds name in the innermost scope, shadowing outer bindings.
func (s *state) declare(name string, val value.Value) {
	s.scopes[len(s.scopes)-1][name] = val
}

// assign updates the innermost existing binding of name.
func (s *state) assign(name string, val value.Value) error {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if _, ok := s.scopes[i][name]; ok {
			s.scopes[i][name] = val
			return nil
		}
	}
	return errorf(ErrUndeclaredVar, "variable $%s is not declared", name)
}

func (s *state) lookupVar(name string) (value.Value, bool) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if v, ok := s.scopes[i][name]; ok {
			return v, true
		}
	}
	return value.Undefined(), false
}

// locals flattens the scope stack, inner bindings winning.
func (s *state) locals() map[string]value.Value {
	out := make(map[string]value.Value)
	for _, scope := range s.scopes {
		maps.Copy(out, scope)
	}
	return out
}

func (s *state) lookupFunc(name string) (value.Func, bool) {
	if fn, ok := s.funcs[name]; ok {
		return fn, true
	}
	fn, ok := builtins[name]
	return fn, ok
}

// lookupTemplate finds a named template in the registry. A define or block
// of the current tree is only visible once its action has run.
func (s *state) lookupTemplate(name string) (*definition, bool) {
	def, ok := s.registry[name]
	return def, ok
}

func (s *state) define(name string, body *parser.ListNode, overwrite bool) {
	if _, exists := s.registry[name]; exists && !overwrite {
		return
	}
	s.registry[name] = &definition{name: name, source: s.source, body: body}
	s.logger.Debug("registered template", "name", name, "overwrite", overwrite)
}

// annotate attaches position, template name, source and the variables in
// scope to err. Loop control sentinels pass through untouched.
func (s *state) annotate(err error, span parser.Span) error {
	var tmplErr *Error
	if !goerrors.As(err, &tmplErr) {
		if err == errBreak || err == errContinue {
			return err
		}
		tmplErr = errorf(ErrInvalidOperation, "%v", err).WithCause(err)
	}
	if tmplErr.Span == nil {
		tmplErr.WithSpan(span).WithName(s.name).WithSource(s.source)
		if tmplErr.DebugInfo == nil {
			tmplErr.DebugInfo = &errors.DebugInfo{ReferencedLocals: s.locals()}
		}
	}
	return tmplErr
}

func (s *state) walk(dot value.Value, node parser.Node) error {
	if err := s.walkNode(dot, node); err != nil {
		return s.annotate(err, node.Span())
	}
	return nil
}

func (s *state) walkNode(dot value.Value, node parser.Node) error {
	if err := s.fuel.consume(1); err != nil {
		return err
	}

	switch n := node.(type) {
	case *parser.ListNode:
		for _, child := range n.Nodes {
			if err := s.walk(dot, child); err != nil {
				return err
			}
		}
		return nil

	case *parser.TextNode:
		s.out.WriteString(n.Text)
		return nil

	case *parser.ActionNode:
		return s.walkAction(dot, n)

	case *parser.IfNode:
		return s.walkIf(dot, n)

	case *parser.RangeNode:
		return s.walkRange(dot, n)

	case *parser.ForNode:
		return s.walkFor(dot, n)

	case *parser.WithNode:
		return s.walkWith(dot, n)

	case *parser.DefineNode:
		s.define(n.Name, n.Body, true)
		return nil

	case *parser.BlockNode:
		s.define(n.Name, n.Body, false)
		return s.walkTemplate(dot, n.Name, n.Pipe)

	case *parser.TemplateNode:
		return s.walkTemplate(dot, n.Name, n.Pipe)

	case *parser.BreakNode:
		return errBreak

	case *parser.ContinueNode:
		return errContinue
	}
	return errorf(ErrInvalidOperation, "unsupported node type %T", node)
}

func (s *state) walkAction(dot value.Value, n *parser.ActionNode) error {
	val, err := s.evalPipeline(dot, n.Pipe)
	if err != nil {
		return err
	}
	if len(n.Pipe.Decl) > 0 {
		return nil
	}
	if val.IsUndefined() && s.missing == value.MissingError {
		return errorf(ErrMissingKey, "no value for %s", s.snippet(n.Span()))
	}
	s.out.WriteString(val.String())
	return nil
}

// snippet returns the source text of span, or a placeholder when the span
// does not lie within the current source.
func (s *state) snippet(span parser.Span) string {
	if span.StartOffset < span.EndOffset && span.EndOffset <= len(s.source) {
		return s.source[span.StartOffset:span.EndOffset]
	}
	return "action"
}

func (s *state) walkIf(dot value.Value, n *parser.IfNode) error {
	s.pushScope()
	defer s.popScope()

	cond, err := s.evalPipeline(dot, n.Cond)
	if err != nil {
		return err
	}
	if cond.IsTrue() {
		return s.walk(dot, n.Then)
	}
	for _, branch := range n.ElseIfs {
		cond, err := s.evalPipeline(dot, branch.Cond)
		if err != nil {
			return err
		}
		if cond.IsTrue() {
			return s.walk(dot, branch.Body)
		}
	}
	if n.Else != nil {
		return s.walk(dot, n.Else)
	}
	return nil
}

func (s *state) walkWith(dot value.Value, n *parser.WithNode) error {
	s.pushScope()
	defer s.popScope()

	val, err := s.evalPipeline(dot, n.Pipe)
	if err != nil {
		return err
	}
	if val.IsTrue() {
		return s.walk(val, n.Body)
	}
	if n.Else != nil {
		return s.walk(dot, n.Else)
	}
	return nil
}

func (s *state) walkRange(dot value.Value, n *parser.RangeNode) error {
	s.pushScope()
	defer s.popScope()

	src, err := s.evalPipeline(dot, n.Pipe)
	if err != nil {
		return err
	}
	count, err := s.iterate(src, func(key, elem value.Value) error {
		switch len(n.Vars) {
		case 1:
			s.declare(n.Vars[0], elem)
		case 2:
			s.declare(n.Vars[0], key)
			s.declare(n.Vars[1], elem)
		}
		return s.walk(elem, n.Body)
	})
	if err != nil {
		return err
	}
	if count == 0 && n.Else != nil {
		return s.walk(dot, n.Else)
	}
	return nil
}

func (s *state) walkFor(dot value.Value, n *parser.ForNode) error {
	s.pushScope()
	defer s.popScope()

	src, err := s.evalPipeline(dot, n.Source)
	if err != nil {
		return err
	}
	count, err := s.iterate(src, func(_, elem value.Value) error {
		s.declare(n.Item, elem)
		return s.walk(dot, n.Body)
	})
	if err != nil {
		return err
	}
	if count == 0 && n.Else != nil {
		return s.walk(dot, n.Else)
	}
	return nil
}

// iterate calls body once per element of a sequence (key is the index) or
// map (key is the map key, in map order), each call in a fresh scope. It
// returns the number of iterations; values that cannot be iterated yield
// zero.
func (s *state) iterate(src value.Value, body func(key, elem value.Value) error) (int, error) {
	count := 0
	run := func(key, elem value.Value) (bool, error) {
		count++
		if err := s.fuel.consume(1); err != nil {
			return false, err
		}
		s.pushScope()
		err := body(key, elem)
		s.popScope()
		switch err {
		case nil, errContinue:
			return true, nil
		case errBreak:
			return false, nil
		}
		return false, err
	}

	switch src.Kind() {
	case value.KindSeq:
		items, _ := src.AsSlice()
		for i, item := range items {
			more, err := run(value.FromInt(int64(i)), item)
			if err != nil || !more {
				return count, err
			}
		}
	case value.KindMap:
		m, _ := src.AsMap()
		for _, key := range m.Keys() {
			elem, _ := m.Get(key)
			more, err := run(value.FromString(key), elem)
			if err != nil || !more {
				return count, err
			}
		}
	}
	return count, nil
}

func (s *state) walkTemplate(dot value.Value, name string, pipe *parser.PipeNode) error {
	def, ok := s.lookupTemplate(name)
	if !ok {
		s.logger.Debug("template not defined", "name", name)
		return nil
	}

	newDot := dot
	if pipe != nil {
		var err error
		if newDot, err = s.evalPipeline(dot, pipe); err != nil {
			return err
		}
	}

	s.depth++
	defer func() { s.depth-- }()
	if s.depth > s.maxDepth {
		return errorf(ErrRecursionLimit, "exceeded maximum template depth (%d) calling %q", s.maxDepth, name)
	}

	prevName, prevSource := s.name, s.source
	s.name, s.source = def.name, def.source
	s.pushScope()
	err := s.walk(newDot, def.body)
	s.popScope()
	s.name, s.source = prevName, prevSource
	return err
}
