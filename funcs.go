package texttemplate

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/yetanotherchris/text-template/sprintf"
	"github.com/yetanotherchris/text-template/value"
)

// FuncMap maps names to functions callable from templates. A value may be a
// value.Func or any Go function value.AdaptFunc accepts.
type FuncMap map[string]any

var builtins = map[string]value.Func{
	"lower":    funcLower,
	"print":    funcPrint,
	"println":  funcPrintln,
	"printf":   funcPrintf,
	"html":     funcHTML,
	"js":       funcJS,
	"urlquery": funcURLQuery,
	"len":      funcLen,
	"index":    funcIndex,
	"slice":    funcSlice,
	"call":     funcCall,
	"join":     funcJoin,
	"not":      funcNot,
	"and":      funcAnd,
	"or":       funcOr,
	"eq":       funcEq,
	"ne":       funcNe,
	"lt":       funcLt,
	"le":       funcLe,
	"gt":       funcGt,
	"ge":       funcGe,
}

var (
	registeredMu    sync.RWMutex
	registeredFuncs = make(map[string]value.Func)
)

// RegisterFunction makes fn available to the call built-in under name, for
// every template in the process.
func RegisterFunction(name string, fn any) error {
	adapted, err := value.AdaptFunc(fn)
	if err != nil {
		return fmt.Errorf("registering %q: %w", name, err)
	}
	registeredMu.Lock()
	registeredFuncs[name] = adapted
	registeredMu.Unlock()
	return nil
}

func registeredFunction(name string) (value.Func, bool) {
	registeredMu.RLock()
	defer registeredMu.RUnlock()
	fn, ok := registeredFuncs[name]
	return fn, ok
}

func adaptFuncMap(funcs FuncMap) (map[string]value.Func, error) {
	out := make(map[string]value.Func, len(funcs))
	for name, fn := range funcs {
		adapted, err := value.AdaptFunc(fn)
		if err != nil {
			return nil, fmt.Errorf("function %q: %w", name, err)
		}
		out[name] = adapted
	}
	return out, nil
}

func concat(args []value.Value) string {
	var b strings.Builder
	for _, arg := range args {
		b.WriteString(arg.String())
	}
	return b.String()
}

func funcLower(args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Undefined(), nil
	}
	return value.FromString(strings.ToLower(args[0].String())), nil
}

// funcPrint concatenates the string forms of its arguments.
func funcPrint(args []value.Value) (value.Value, error) {
	return value.FromString(concat(args)), nil
}

// funcPrintln joins its arguments with spaces and appends a newline.
func funcPrintln(args []value.Value) (value.Value, error) {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = arg.String()
	}
	return value.FromString(strings.Join(parts, " ") + "\n"), nil
}

func funcPrintf(args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.FromString(""), nil
	}
	format, ok := args[0].AsString()
	if !ok {
		return value.Undefined(), errorf(ErrBadArgument, "printf: format must be a string, got %s", args[0].Kind())
	}
	s, err := sprintf.Format(format, args[1:]...)
	if err != nil {
		return value.Undefined(), NewError(ErrFormat, err.Error()).WithCause(err)
	}
	return value.FromString(s), nil
}

func funcHTML(args []value.Value) (value.Value, error) {
	return value.FromString(HTMLEscapeString(concat(args))), nil
}

func funcJS(args []value.Value) (value.Value, error) {
	return value.FromString(JSEscapeString(concat(args))), nil
}

func funcURLQuery(args []value.Value) (value.Value, error) {
	return value.FromString(URLQueryEscaper(concat(args))), nil
}

// funcLen returns the rune count of a string or the size of a collection.
// Nil values and values without a length count as zero.
func funcLen(args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.FromInt(0), nil
	}
	n, _ := args[0].Len()
	return value.FromInt(int64(n)), nil
}

// funcIndex indexes its first argument by each following key in turn. A
// missing entry yields no value.
//
//	{{ index .Matrix 1 0 }}
func funcIndex(args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Undefined(), errorf(ErrBadArgument, "index: missing collection argument")
	}
	cur := args[0]
	for _, key := range args[1:] {
		if cur.IsNil() {
			return value.Undefined(), nil
		}
		cur = cur.GetItem(integralKey(key))
	}
	return cur, nil
}

// funcSlice returns item[start:end] for a string or sequence. Bounds are
// clamped; a missing or negative end means the length.
func funcSlice(args []value.Value) (value.Value, error) {
	if len(args) == 0 || args[0].IsNil() {
		return value.Undefined(), nil
	}
	if len(args) > 3 {
		return value.Undefined(), errorf(ErrBadArgument, "slice: want at most 3 arguments, got %d", len(args))
	}
	start, end := 0, -1
	var err error
	if len(args) > 1 {
		if start, err = intArg("slice", args[1]); err != nil {
			return value.Undefined(), err
		}
	}
	if len(args) > 2 {
		if end, err = intArg("slice", args[2]); err != nil {
			return value.Undefined(), err
		}
	}

	clamp := func(n int) (int, int) {
		e := end
		if e < 0 || e > n {
			e = n
		}
		return max(start, 0), e
	}

	if s, ok := args[0].AsString(); ok {
		runes := []rune(s)
		from, to := clamp(len(runes))
		if from >= to {
			return value.FromString(""), nil
		}
		return value.FromString(string(runes[from:to])), nil
	}
	if items, ok := args[0].AsSlice(); ok {
		from, to := clamp(len(items))
		if from >= to {
			return value.FromSlice(nil), nil
		}
		out := make([]value.Value, to-from)
		copy(out, items[from:to])
		return value.FromSlice(out), nil
	}
	return value.Undefined(), errorf(ErrBadArgument, "slice: cannot slice %s", args[0].Kind())
}

func intArg(name string, v value.Value) (int, error) {
	if i, ok := v.AsInt(); ok {
		return int(i), nil
	}
	if f, ok := v.AsFloat(); ok && f == math.Trunc(f) {
		return int(f), nil
	}
	return 0, errorf(ErrBadArgument, "%s: index must be an integer, got %s", name, v.Repr())
}

// funcCall invokes a function value, or a function registered with
// RegisterFunction when the first argument is its name.
//
//	{{ call "greet" .Name }}
func funcCall(args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Undefined(), errorf(ErrBadArgument, "call: missing function argument")
	}
	target := args[0]
	if name, ok := target.AsString(); ok {
		fn, ok := registeredFunction(name)
		if !ok {
			return value.Undefined(), errorf(ErrNotCallable, "call: no function registered as %q", name)
		}
		return fn(args[1:])
	}
	if fn, ok := target.AsFunc(); ok {
		return fn(args[1:])
	}
	return value.Undefined(), errorf(ErrNotCallable, "call: %s is not a function", target.Kind())
}

// funcJoin joins the string forms of a sequence's items.
//
//	{{ .Tags | join ", " }}
func funcJoin(args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return value.Undefined(), errorf(ErrBadArgument, "join: want 2 arguments, got %d", len(args))
	}
	if args[0].IsNil() {
		return value.FromString(""), nil
	}
	items, ok := args[0].AsSlice()
	if !ok {
		return value.Undefined(), errorf(ErrBadArgument, "join: cannot join %s", args[0].Kind())
	}
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.String()
	}
	return value.FromString(strings.Join(parts, args[1].String())), nil
}

// callError converts an error returned by a function into an *Error.
func callError(name string, err error) *Error {
	var tmplErr *Error
	if errors.As(err, &tmplErr) {
		return tmplErr
	}
	kind := ErrInvalidOperation
	if errors.Is(err, value.ErrArgCount) {
		kind = ErrBadArgument
	}
	return errorf(kind, "error calling %s: %v", name, err).WithCause(err)
}
