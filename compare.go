package texttemplate

import (
	"github.com/yetanotherchris/text-template/value"
)

// Comparison and logic built-ins.

// funcEq reports whether the first argument equals any of the others.
//
//	{{ if eq .Status "active" "pending" }}...{{ end }}
func funcEq(args []value.Value) (value.Value, error) {
	if len(args) < 2 {
		return value.Undefined(), errorf(ErrBadArgument, "eq: want at least 2 arguments, got %d", len(args))
	}
	for _, other := range args[1:] {
		if args[0].Equal(other) {
			return value.FromBool(true), nil
		}
	}
	return value.FromBool(false), nil
}

// funcNe reports whether two values differ.
func funcNe(args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return value.Undefined(), errorf(ErrBadArgument, "ne: want 2 arguments, got %d", len(args))
	}
	return value.FromBool(!args[0].Equal(args[1])), nil
}

func funcLt(args []value.Value) (value.Value, error) {
	return ordered("lt", args, func(c int) bool { return c < 0 })
}

func funcLe(args []value.Value) (value.Value, error) {
	return ordered("le", args, func(c int) bool { return c <= 0 })
}

func funcGt(args []value.Value) (value.Value, error) {
	return ordered("gt", args, func(c int) bool { return c > 0 })
}

func funcGe(args []value.Value) (value.Value, error) {
	return ordered("ge", args, func(c int) bool { return c >= 0 })
}

// ordered compares two numbers or two strings.
func ordered(name string, args []value.Value, test func(int) bool) (value.Value, error) {
	if len(args) != 2 {
		return value.Undefined(), errorf(ErrBadArgument, "%s: want 2 arguments, got %d", name, len(args))
	}
	c, ok := args[0].Compare(args[1])
	if !ok {
		return value.Undefined(), errorf(ErrBadArgument, "%s: incompatible types for comparison: %s and %s",
			name, args[0].Kind(), args[1].Kind())
	}
	return value.FromBool(test(c)), nil
}

func funcNot(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Undefined(), errorf(ErrBadArgument, "not: want 1 argument, got %d", len(args))
	}
	return value.FromBool(!args[0].IsTrue()), nil
}

// funcAnd returns the first falsy argument, or the last one.
func funcAnd(args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Undefined(), errorf(ErrBadArgument, "and: want at least 1 argument")
	}
	for _, arg := range args[:len(args)-1] {
		if !arg.IsTrue() {
			return arg, nil
		}
	}
	return args[len(args)-1], nil
}

// funcOr returns the first truthy argument, or the last one.
func funcOr(args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Undefined(), errorf(ErrBadArgument, "or: want at least 1 argument")
	}
	for _, arg := range args[:len(args)-1] {
		if arg.IsTrue() {
			return arg, nil
		}
	}
	return args[len(args)-1], nil
}
