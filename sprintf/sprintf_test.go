package sprintf

import (
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yetanotherchris/text-template/internal/testutil"
	"github.com/yetanotherchris/text-template/value"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		format string
		args   []any
		want   string
	}{
		// integers
		{"%d", []any{123}, "123"},
		{"%i", []any{123}, "123"},
		{"%u", []any{uint(123)}, "123"},
		{"%d", []any{-123}, "-123"},
		{"%d", []any{0}, "0"},
		{"%.3d", []any{5}, "005"},
		{"%05.3d", []any{5}, "  005"},
		{"%d", []any{2.5}, "2"},
		{"%d", []any{3.5}, "4"},
		{"%d", []any{"42"}, "42"},
		{"%d", []any{true}, "1"},
		{"%d", []any{nil}, "0"},
		{"%ld", []any{7}, "7"},

		// hex and octal
		{"%x", []any{255}, "ff"},
		{"%X", []any{255}, "FF"},
		{"%#x", []any{255}, "0xff"},
		{"%#X", []any{255}, "0XFF"},
		{"%#x", []any{0}, "0"},
		{"%o", []any{255}, "377"},
		{"%#o", []any{255}, "0377"},
		{"%#08x", []any{255}, "0x0000ff"},
		{"%.4x", []any{255}, "00ff"},

		// floats
		{"%f", []any{3.14}, "3.140000"},
		{"%.2f", []any{3.14}, "3.14"},
		{"%.f", []any{2.5}, "2"},
		{"%.1e", []any{3.1}, "3.1e+00"},
		{"%.1E", []any{3.1}, "3.1E+00"},
		{"%e", []any{1234.5}, "1.234500e+03"},
		{"%g", []any{3.14}, "3.14"},
		{"%G", []any{3.14}, "3.14"},
		{"%g", []any{0.0001}, "0.0001"},
		{"%.3g", []any{3.14159}, "3.14"},
		{"%f", []any{0.0}, "0.000000"},
		{"%f", []any{2}, "2.000000"},
		{"%+.1f", []any{2.25}, "+2.2"},
		{"%08.3f", []any{-3.14159}, "-003.142"},

		// width and flags
		{"%6d", []any{123}, "   123"},
		{"%-6d", []any{123}, "123   "},
		{"%06d", []any{123}, "000123"},
		{"%06d", []any{-42}, "-00042"},
		{"%-06d", []any{7}, "7     "},
		{"%6.2f", []any{3.14}, "  3.14"},
		{"%-6.2f", []any{3.14}, "3.14  "},
		{"%+d", []any{123}, "+123"},
		{"%+d", []any{-123}, "-123"},
		{"% d", []any{123}, " 123"},
		{"% d", []any{-123}, "-123"},
		{"%+ d", []any{5}, "+5"},

		// characters and strings
		{"%c", []any{65}, "A"},
		{"%c", []any{"é"}, "é"},
		{"%s", []any{"Hello"}, "Hello"},
		{"%10s", []any{"Hello"}, "     Hello"},
		{"%-10s", []any{"Hello"}, "Hello     "},
		{"%.2s", []any{"héllo"}, "hé"},
		{"%5s", []any{"héllo"}, "héllo"},
		{"%s", []any{nil}, ""},
		{"%s", []any{[]any{1, 2}}, "[1 2]"},

		// pointers
		{"%p", []any{255}, "0xff"},

		// literals and mixed
		{"%%", nil, "%"},
		{"100%%", nil, "100%"},
		{"no directives", nil, "no directives"},
		{"%s %d %.2f", []any{"Hello", 123, 3.14159}, "Hello 123 3.14"},
		{"Value: %d, Hex: %x", []any{42, 42}, "Value: 42, Hex: 2a"},
		{"%s", []any{"a", "extra"}, "a"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got, err := FormatAny(tt.format, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatErrors(t *testing.T) {
	tests := []struct {
		name   string
		format string
		args   []any
		msg    string
	}{
		{"missing argument", "%d", nil, "missing argument"},
		{"second argument missing", "%d %d", []any{1}, "missing argument"},
		{"non-numeric integer", "%d", []any{"not a number"}, "invalid integer argument"},
		{"non-numeric float", "%f", []any{"x"}, "invalid floating point argument"},
		{"unknown verb", "%q", []any{123}, "unknown verb"},
		{"trailing percent", "abc %", nil, "incomplete directive"},
		{"negative unsigned", "%u", []any{-1}, "negative value"},
		{"negative hex", "%x", []any{-1}, "negative value"},
		{"long string for char", "%c", []any{"ab"}, "invalid character argument"},
		{"list as integer", "%d", []any{[]any{1}}, "invalid integer argument"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FormatAny(tt.format, tt.args...)
			require.Error(t, err)

			var fmtErr *Error
			require.ErrorAs(t, err, &fmtErr)
			assert.Contains(t, fmtErr.Msg, tt.msg)
		})
	}
}

func TestErrorNamesDirective(t *testing.T) {
	_, err := FormatAny("x=%-5d", "abc")
	require.Error(t, err)
	assert.Equal(t, `format %-5d: invalid integer argument "abc"`, err.Error())
}

func TestFormatFuzzedInputDoesNotPanic(t *testing.T) {
	pieces := []string{"%", "-", "+", " ", "#", "0", "5", ".", "3", "l", "h", "d", "x", "f", "e", "g", "c", "s", "p", "%%"}
	f := fuzz.New().RandSource(testutil.RandSource(t)).NilChance(0).Funcs(func(s *string, c fuzz.Continue) {
		n := c.Intn(12)
		for i := 0; i < n; i++ {
			*s += pieces[c.Intn(len(pieces))]
		}
	})
	argsFor := []value.Value{
		value.FromInt(42),
		value.FromFloat(-1.5),
		value.FromString("str"),
		value.None(),
	}

	for i := 0; i < 500; i++ {
		var format string
		f.Fuzz(&format)
		assert.NotPanics(t, func() {
			_, _ = Format(format, argsFor...)
		}, "format: %q", format)
	}
}
