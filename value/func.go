package value

import (
	"errors"
	"fmt"
	"reflect"
)

// Func is the uniform shape of every function a template can invoke.
type Func func(args []Value) (Value, error)

// ErrArgCount is returned by adapted functions called with the wrong number
// of arguments.
var ErrArgCount = errors.New("wrong number of arguments")

// AdaptFunc converts a Go function into a Func. Common signatures are
// matched directly; any other function whose parameters and results can be
// mapped is adapted once through reflection. The returned error reports an
// unsupported signature.
func AdaptFunc(fn any) (Func, error) {
	switch f := fn.(type) {
	case nil:
		return nil, errors.New("function is nil")
	case Func:
		return f, nil
	case func([]Value) (Value, error):
		return f, nil
	case func(...Value) (Value, error):
		return func(args []Value) (Value, error) { return f(args...) }, nil
	case func() string:
		return func(args []Value) (Value, error) {
			if err := arity(args, 0); err != nil {
				return Undefined(), err
			}
			return FromString(f()), nil
		}, nil
	case func(string) string:
		return func(args []Value) (Value, error) {
			if err := arity(args, 1); err != nil {
				return Undefined(), err
			}
			return FromString(f(args[0].String())), nil
		}, nil
	case func(string) (string, error):
		return func(args []Value) (Value, error) {
			if err := arity(args, 1); err != nil {
				return Undefined(), err
			}
			s, err := f(args[0].String())
			return FromString(s), err
		}, nil
	case func(string, string) string:
		return func(args []Value) (Value, error) {
			if err := arity(args, 2); err != nil {
				return Undefined(), err
			}
			return FromString(f(args[0].String(), args[1].String())), nil
		}, nil
	case func(...string) string:
		return func(args []Value) (Value, error) {
			strs := make([]string, len(args))
			for i, a := range args {
				strs[i] = a.String()
			}
			return FromString(f(strs...)), nil
		}, nil
	case func(string) bool:
		return func(args []Value) (Value, error) {
			if err := arity(args, 1); err != nil {
				return Undefined(), err
			}
			return FromBool(f(args[0].String())), nil
		}, nil
	case func(any) any:
		return func(args []Value) (Value, error) {
			if err := arity(args, 1); err != nil {
				return Undefined(), err
			}
			return FromAny(f(ToGo(args[0]))), nil
		}, nil
	case func(...any) any:
		return func(args []Value) (Value, error) {
			return FromAny(f(toGoArgs(args)...)), nil
		}, nil
	case func(...any) (any, error):
		return func(args []Value) (Value, error) {
			out, err := f(toGoArgs(args)...)
			if err != nil {
				return Undefined(), err
			}
			return FromAny(out), nil
		}, nil
	case func(...any) string:
		return func(args []Value) (Value, error) {
			return FromString(f(toGoArgs(args)...)), nil
		}, nil
	}
	return adaptReflect(fn)
}

func arity(args []Value, n int) error {
	if len(args) != n {
		return fmt.Errorf("%w: want %d, got %d", ErrArgCount, n, len(args))
	}
	return nil
}

func toGoArgs(args []Value) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = ToGo(a)
	}
	return out
}

// adaptReflect handles the remaining signatures. It accepts functions
// returning one value, or one value and an error.
func adaptReflect(fn any) (Func, error) {
	rv := reflect.ValueOf(fn)
	t := rv.Type()
	if t.Kind() != reflect.Func {
		return nil, fmt.Errorf("%T is not a function", fn)
	}
	switch {
	case t.NumOut() == 1:
	case t.NumOut() == 2 && t.Out(1) == errorType:
	default:
		return nil, fmt.Errorf("function %s must return one value, optionally followed by an error", t)
	}

	return func(args []Value) (Value, error) {
		numIn := t.NumIn()
		if t.IsVariadic() {
			if len(args) < numIn-1 {
				return Undefined(), fmt.Errorf("%w: want at least %d, got %d", ErrArgCount, numIn-1, len(args))
			}
		} else if err := arity(args, numIn); err != nil {
			return Undefined(), err
		}

		in := make([]reflect.Value, len(args))
		for i, arg := range args {
			var pt reflect.Type
			if t.IsVariadic() && i >= numIn-1 {
				pt = t.In(numIn - 1).Elem()
			} else {
				pt = t.In(i)
			}
			conv, err := toReflect(arg, pt)
			if err != nil {
				return Undefined(), fmt.Errorf("argument %d: %w", i+1, err)
			}
			in[i] = conv
		}

		out := rv.Call(in)
		if len(out) == 2 && !out[1].IsNil() {
			return Undefined(), out[1].Interface().(error)
		}
		return FromAny(interfaceOf(out[0])), nil
	}, nil
}

var valueType = reflect.TypeOf(Value{})

func toReflect(v Value, t reflect.Type) (reflect.Value, error) {
	if t == valueType {
		return reflect.ValueOf(v), nil
	}

	switch t.Kind() {
	case reflect.String:
		return reflect.ValueOf(v.String()).Convert(t), nil
	case reflect.Bool:
		return reflect.ValueOf(v.IsTrue()).Convert(t), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		switch d := v.data.(type) {
		case int64:
			return reflect.ValueOf(d).Convert(t), nil
		case float64:
			return reflect.ValueOf(int64(d)).Convert(t), nil
		}
		return reflect.Value{}, fmt.Errorf("expected integer, got %s", v.Kind())
	case reflect.Float32, reflect.Float64:
		f, ok := v.AsFloat()
		if !ok {
			return reflect.Value{}, fmt.Errorf("expected number, got %s", v.Kind())
		}
		return reflect.ValueOf(f).Convert(t), nil
	}

	raw := ToGo(v)
	if raw == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(raw)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if rv.Type().ConvertibleTo(t) {
		return rv.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %s as %s", v.Kind(), t)
}
