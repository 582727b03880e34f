package texttemplate

import (
	"github.com/yetanotherchris/text-template/parser"
	"github.com/yetanotherchris/text-template/value"
)

// evalPipeline runs the commands of pipe left to right, feeding each result
// to the next command as its first argument, then performs the pipeline's
// declaration or assignment.
func (s *state) evalPipeline(dot value.Value, pipe *parser.PipeNode) (value.Value, error) {
	var val value.Value
	for i, cmd := range pipe.Cmds {
		var err error
		val, err = s.evalCommand(dot, cmd, i > 0, val)
		if err != nil {
			return value.Undefined(), s.annotate(err, cmd.Span())
		}
	}

	for _, name := range pipe.Decl {
		if !pipe.IsAssign {
			s.declare(name, val)
			continue
		}
		if err := s.assign(name, val); err != nil {
			return value.Undefined(), s.annotate(err, pipe.Span())
		}
	}
	return val, nil
}

// evalCommand evaluates one pipeline stage. A head naming a function calls
// it with the piped value prepended to the explicit arguments. Any other
// head is resolved as a value and its arguments are ignored, unless it
// resolves to a function value and has arguments to receive.
func (s *state) evalCommand(dot value.Value, cmd *parser.CommandNode, piped bool, input value.Value) (value.Value, error) {
	head := cmd.Args[0]

	if ident, ok := head.(*parser.IdentifierNode); ok {
		if fn, ok := s.lookupFunc(ident.Name); ok {
			args, err := s.evalArgs(dot, cmd.Args[1:], piped, input)
			if err != nil {
				return value.Undefined(), err
			}
			return s.call(ident.Name, fn, args)
		}
		if piped {
			return value.Undefined(), errorf(ErrUnknownFunction, "function %q not defined", ident.Name)
		}
		return s.resolveIdent(dot, ident.Name), nil
	}

	val, err := s.evalArg(dot, head)
	if err != nil {
		return value.Undefined(), err
	}
	if fn, ok := val.AsFunc(); ok && (piped || len(cmd.Args) > 1) {
		args, err := s.evalArgs(dot, cmd.Args[1:], piped, input)
		if err != nil {
			return value.Undefined(), err
		}
		return s.call(s.snippet(head.Span()), fn, args)
	}
	return val, nil
}

func (s *state) evalArgs(dot value.Value, nodes []parser.Node, piped bool, input value.Value) ([]value.Value, error) {
	args := make([]value.Value, 0, len(nodes)+1)
	if piped {
		args = append(args, input)
	}
	for _, node := range nodes {
		arg, err := s.evalArg(dot, node)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return args, nil
}

// evalArg evaluates a command argument. An identifier naming a function
// yields the function itself, so it can be handed to call.
func (s *state) evalArg(dot value.Value, node parser.Node) (value.Value, error) {
	switch n := node.(type) {
	case *parser.PathNode:
		return s.evalPath(dot, n)
	case *parser.IdentifierNode:
		if fn, ok := s.lookupFunc(n.Name); ok {
			return value.FromFunc(fn), nil
		}
		return s.resolveIdent(dot, n.Name), nil
	case *parser.PipeNode:
		return s.evalPipeline(dot, n)
	case *parser.StringNode:
		return value.FromString(n.Text), nil
	case *parser.NumberNode:
		if n.IsFloat {
			return value.FromFloat(n.Float), nil
		}
		return value.FromInt(n.Int), nil
	case *parser.BoolNode:
		return value.FromBool(n.True), nil
	case *parser.NilNode:
		return value.None(), nil
	}
	return value.Undefined(), errorf(ErrInvalidOperation, "cannot evaluate %T", node)
}

func (s *state) call(name string, fn value.Func, args []value.Value) (value.Value, error) {
	result, err := fn(args)
	if err != nil {
		return value.Undefined(), callError(name, err)
	}
	return result, nil
}
