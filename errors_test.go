package texttemplate

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yetanotherchris/text-template/sprintf"
)

func renderErr(t *testing.T, tmpl *Template, data any) *Error {
	t.Helper()
	out, err := tmpl.Execute(data)
	require.Error(t, err, "expected an error, got output %q", out)
	var tmplErr *Error
	require.True(t, errors.As(err, &tmplErr), "error %v is not an *Error", err)
	return tmplErr
}

func TestExecutionErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		data   any
		kind   ErrorKind
		detail string
	}{
		{"unknown piped function", "{{ .A | nope }}", map[string]any{"A": 1}, ErrUnknownFunction, `function "nope" not defined`},
		{"undeclared assignment", "{{ $x = 1 }}", nil, ErrUndeclaredVar, "$x"},
		{"bad format", `{{ printf "%d" "x" }}`, nil, ErrFormat, ""},
		{"piped format", `{{ .A | printf "%d" }}`, map[string]any{"A": 1}, ErrBadArgument, "format must be a string"},
		{"unregistered call", `{{ call "missing" }}`, nil, ErrNotCallable, "missing"},
		{"call non-function", `{{ call 1 }}`, nil, ErrNotCallable, ""},
		{"incomparable", `{{ lt 1 "a" }}`, nil, ErrBadArgument, "incompatible types"},
		{"eq arity", `{{ eq 1 }}`, nil, ErrBadArgument, "eq"},
		{"not arity", `{{ not }}`, nil, ErrBadArgument, "not"},
		{"slice non-integer", `{{ slice "abc" "x" }}`, nil, ErrBadArgument, "integer"},
		{"join non-sequence", `{{ join 1 "," }}`, nil, ErrBadArgument, "join"},
		{"error inside template call", `{{define "t"}}{{ . | nope }}{{end}}{{template "t" 1}}`, nil, ErrUnknownFunction, "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := Must(New("test").Parse(tt.source))
			err := renderErr(t, tmpl, tt.data)
			assert.Equal(t, tt.kind, err.Kind, "error: %v", err)
			assert.Contains(t, err.Message, tt.detail)
		})
	}
}

func TestFormatErrorKeepsCause(t *testing.T) {
	tmpl := Must(New("test").Parse(`{{ printf "%d" "x" }}`))
	err := renderErr(t, tmpl, nil)

	var fmtErr *sprintf.Error
	assert.True(t, errors.As(err, &fmtErr))
}

func TestFunctionErrorKeepsCause(t *testing.T) {
	boom := errors.New("boom")
	tmpl := New("test").Funcs(FuncMap{
		"fail": func(s string) (string, error) { return "", boom },
	})
	Must(tmpl.Parse(`{{ fail "x" }}`))

	err := renderErr(t, tmpl, nil)
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, ErrInvalidOperation, err.Kind)
	assert.Contains(t, err.Message, "boom")
}

func TestErrorPosition(t *testing.T) {
	tmpl := Must(New("page").Parse("line one\n{{ .A | nope }}"))
	err := renderErr(t, tmpl, map[string]any{"A": 1})

	require.NotNil(t, err.Span)
	assert.Equal(t, 2, err.Span.StartLine)
	assert.Equal(t, "page", err.Name)
	assert.Contains(t, err.Error(), "(at page:2:")
}

func TestErrorNameInsideTemplateCall(t *testing.T) {
	tmpl := Must(New("outer").Parse(`{{define "inner"}}{{ nope | nope }}{{end}}{{template "inner"}}`))
	err := renderErr(t, tmpl, nil)

	assert.Equal(t, "inner", err.Name)
}

func TestErrorDebugOutput(t *testing.T) {
	tmpl := Must(New("page").Parse("line one\n{{ .A | nope }}"))
	err := renderErr(t, tmpl, map[string]any{"A": 1})

	out := fmt.Sprintf("%+v", err)
	assert.Contains(t, out, "2 > {{ .A | nope }}")
	assert.Contains(t, out, "1 | line one")
	assert.Contains(t, out, "unknown function")
	assert.Contains(t, out, "No variables in scope")

	assert.Equal(t, err.Error(), fmt.Sprintf("%v", err))
}

func TestErrorDebugOutputListsVariables(t *testing.T) {
	tmpl := Must(New("page").Parse(`{{ $name := "x" }}{{ $name | nope }}`))
	err := renderErr(t, tmpl, nil)

	out := fmt.Sprintf("%+v", err)
	assert.Contains(t, out, "Variables in scope:")
	assert.Contains(t, out, `$name: "x"`)
}

func TestRecursionLimit(t *testing.T) {
	tmpl := Must(New("test").Parse(`{{define "r"}}{{template "r" .}}{{end}}{{template "r" .}}`))
	tmpl.SetMaxDepth(10)

	err := renderErr(t, tmpl, nil)
	assert.Equal(t, ErrRecursionLimit, err.Kind)
	assert.Contains(t, err.Message, "(10)")
}

func TestFuel(t *testing.T) {
	items := map[string]any{"Items": []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}}

	tmpl := Must(New("test").Parse("{{range .Items}}{{.}}{{end}}"))
	tmpl.SetFuel(5)
	err := renderErr(t, tmpl, items)
	assert.Equal(t, ErrOutOfFuel, err.Kind)

	tmpl.SetFuel(1000)
	out, execErr := tmpl.Execute(items)
	require.NoError(t, execErr)
	assert.Equal(t, "12345678910", out)
}

func TestMissingKeyOption(t *testing.T) {
	tmpl := Must(New("test").Option("missingkey=error").Parse("{{.Missing}}"))
	err := renderErr(t, tmpl, map[string]any{})
	assert.Equal(t, ErrMissingKey, err.Kind)
	assert.Contains(t, err.Message, "{{.Missing}}")

	cond := Must(New("test").Option("missingkey=error").Parse("{{if .Missing}}x{{else}}y{{end}}{{.Present}}"))
	out, execErr := cond.Execute(map[string]any{"Present": "p"})
	require.NoError(t, execErr)
	assert.Equal(t, "yp", out)

	for _, mode := range []string{"default", "invalid", "zero"} {
		lenient := Must(New("test").Option("missingkey=" + mode).Parse("[{{.Missing}}]"))
		out, execErr := lenient.Execute(map[string]any{})
		require.NoError(t, execErr)
		assert.Equal(t, "[]", out, "missingkey=%s", mode)
	}
}

func TestOptionPanicsOnUnknownOption(t *testing.T) {
	assert.Panics(t, func() { New("test").Option("bogus=1") })
	assert.Panics(t, func() { New("test").Option("missingkey=sometimes") })
}

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "syntax error", ErrSyntax.String())
	assert.Equal(t, "unknown function", ErrUnknownFunction.String())
	assert.Equal(t, "out of fuel", ErrOutOfFuel.String())
}
