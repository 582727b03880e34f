// Package sprintf renders C-style format strings against template values.
//
// A directive has the form
//
//	%[flags][width][.precision][l|h]verb
//
// with flags from "-+ #0". Supported verbs are d i u o x X f F e E g G c s p,
// and %% writes a literal percent sign. Width is measured in runes.
package sprintf

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/yetanotherchris/text-template/value"
)

const defaultFloatPrecision = 6

// Error is a formatting failure.
type Error struct {
	Directive string // the offending directive, if any
	Msg       string
}

func (e *Error) Error() string {
	if e.Directive != "" {
		return fmt.Sprintf("format %s: %s", e.Directive, e.Msg)
	}
	return "format: " + e.Msg
}

type directive struct {
	text      string
	left      bool
	plus      bool
	space     bool
	zero      bool
	alt       bool
	width     int
	hasWidth  bool
	precision int
	hasPrec   bool
	verb      byte
}

// Format renders format with args.
func Format(format string, args ...value.Value) (string, error) {
	var sb strings.Builder
	argIndex := 0

	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			sb.WriteByte(c)
			continue
		}
		if i+1 < len(format) && format[i+1] == '%' {
			sb.WriteByte('%')
			i++
			continue
		}

		d, next, err := parseDirective(format, i)
		if err != nil {
			return "", err
		}
		i = next
		if d.verb == '%' {
			sb.WriteByte('%')
			continue
		}

		if argIndex >= len(args) {
			return "", &Error{Directive: d.text, Msg: "missing argument"}
		}
		out, err := d.render(args[argIndex])
		if err != nil {
			return "", err
		}
		argIndex++
		sb.WriteString(out)
	}
	return sb.String(), nil
}

// FormatAny converts args with value.FromAny and calls Format.
func FormatAny(format string, args ...any) (string, error) {
	vals := make([]value.Value, len(args))
	for i, a := range args {
		vals[i] = value.FromAny(a)
	}
	return Format(format, vals...)
}

// parseDirective parses the directive starting at the '%' at index start
// and returns the index of its verb.
func parseDirective(format string, start int) (directive, int, error) {
	var d directive
	i := start + 1

	for ; i < len(format) && strings.IndexByte("-+ #0", format[i]) >= 0; i++ {
		switch format[i] {
		case '-':
			d.left = true
		case '+':
			d.plus = true
		case ' ':
			d.space = true
		case '#':
			d.alt = true
		case '0':
			d.zero = true
		}
	}
	if d.plus {
		d.space = false
	}
	if d.left {
		d.zero = false
	}

	if n, end := readDigits(format, i); end > i {
		d.width, d.hasWidth = n, true
		i = end
	}
	if i < len(format) && format[i] == '.' {
		n, end := readDigits(format, i+1)
		d.precision, d.hasPrec = n, true
		i = end
	}
	if i < len(format) && (format[i] == 'l' || format[i] == 'h') {
		i++
	}
	if i >= len(format) {
		return d, i, &Error{Directive: format[start:], Msg: "incomplete directive"}
	}

	d.verb = format[i]
	d.text = format[start : i+1]
	return d, i, nil
}

func readDigits(s string, i int) (int, int) {
	n := 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		if n < 1<<20 {
			n = n*10 + int(s[i]-'0')
		}
	}
	return n, i
}

func (d directive) render(arg value.Value) (string, error) {
	switch d.verb {
	case 'd', 'i':
		n, err := d.toInt(arg)
		if err != nil {
			return "", err
		}
		digits := strconv.FormatUint(absUint(n), 10)
		return d.pad(d.signPrefix(n < 0), d.minDigits(digits), !d.hasPrec), nil

	case 'u':
		n, err := d.toInt(arg)
		if err != nil {
			return "", err
		}
		if n < 0 {
			return "", d.errorf("negative value %d for unsigned conversion", n)
		}
		digits := strconv.FormatUint(uint64(n), 10)
		return d.pad(d.signPrefix(false), d.minDigits(digits), !d.hasPrec), nil

	case 'o', 'x', 'X':
		n, err := d.toInt(arg)
		if err != nil {
			return "", err
		}
		if n < 0 {
			return "", d.errorf("negative value %d for unsigned conversion", n)
		}
		var digits, prefix string
		switch d.verb {
		case 'o':
			digits = strconv.FormatUint(uint64(n), 8)
			if d.alt && n != 0 {
				prefix = "0"
			}
		case 'x':
			digits = strconv.FormatUint(uint64(n), 16)
			if d.alt && n != 0 {
				prefix = "0x"
			}
		case 'X':
			digits = strings.ToUpper(strconv.FormatUint(uint64(n), 16))
			if d.alt && n != 0 {
				prefix = "0X"
			}
		}
		return d.pad(d.signPrefix(false)+prefix, d.minDigits(digits), !d.hasPrec), nil

	case 'f', 'F', 'e', 'E', 'g', 'G':
		f, err := d.toFloat(arg)
		if err != nil {
			return "", err
		}
		digits := d.formatFloat(math.Abs(f))
		return d.pad(d.signPrefix(math.Signbit(f) && !math.IsNaN(f)), digits, true), nil

	case 'c':
		r, err := d.toRune(arg)
		if err != nil {
			return "", err
		}
		return d.pad("", string(r), true), nil

	case 's':
		s := arg.String()
		if d.hasPrec && utf8.RuneCountInString(s) > d.precision {
			s = string([]rune(s)[:d.precision])
		}
		return d.pad("", s, true), nil

	case 'p':
		n, err := d.toInt(arg)
		if err != nil {
			return "", err
		}
		return d.pad("0x", strconv.FormatUint(uint64(n), 16), true), nil
	}
	return "", d.errorf("unknown verb %q", d.verb)
}

func (d directive) formatFloat(f float64) string {
	prec := defaultFloatPrecision
	if d.hasPrec {
		prec = d.precision
	}

	var s string
	switch d.verb {
	case 'f', 'F':
		s = strconv.FormatFloat(f, 'f', prec, 64)
	case 'e', 'E':
		s = strconv.FormatFloat(f, 'e', prec, 64)
	case 'g', 'G':
		if d.hasPrec {
			if prec == 0 {
				prec = 1
			}
			s = strconv.FormatFloat(f, 'g', prec, 64)
		} else {
			s = strconv.FormatFloat(f, 'g', -1, 64)
		}
	}
	s = strings.TrimPrefix(s, "+") // +Inf
	if d.verb == 'E' || d.verb == 'G' || d.verb == 'F' {
		s = strings.ToUpper(s)
	}
	return s
}

// signPrefix returns the sign for a number under the + and space flags.
func (d directive) signPrefix(negative bool) string {
	switch {
	case negative:
		return "-"
	case d.plus:
		return "+"
	case d.space:
		return " "
	}
	return ""
}

// minDigits left-pads digits with zeros up to the precision.
func (d directive) minDigits(digits string) string {
	if d.hasPrec && len(digits) < d.precision {
		return strings.Repeat("0", d.precision-len(digits)) + digits
	}
	return digits
}

// pad applies the field width. Zero padding goes between prefix and body.
func (d directive) pad(prefix, body string, zeroAllowed bool) string {
	s := prefix + body
	n := utf8.RuneCountInString(s)
	if !d.hasWidth || n >= d.width {
		return s
	}
	fill := d.width - n
	switch {
	case d.left:
		return s + strings.Repeat(" ", fill)
	case d.zero && zeroAllowed:
		return prefix + strings.Repeat("0", fill) + body
	}
	return strings.Repeat(" ", fill) + s
}

// toInt coerces an argument for an integer verb. Floats are rounded half
// to even and numeric strings are parsed.
func (d directive) toInt(arg value.Value) (int64, error) {
	switch arg.Kind() {
	case value.KindUndefined, value.KindNone:
		return 0, nil
	case value.KindInt:
		n, _ := arg.AsInt()
		return n, nil
	case value.KindFloat:
		f, _ := arg.AsFloat()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, d.errorf("cannot convert %s to integer", arg.String())
		}
		return int64(math.RoundToEven(f)), nil
	case value.KindBool:
		if b, _ := arg.AsBool(); b {
			return 1, nil
		}
		return 0, nil
	case value.KindString:
		s := strings.TrimSpace(arg.String())
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return int64(math.RoundToEven(f)), nil
		}
	}
	return 0, d.errorf("invalid integer argument %s", arg.Repr())
}

func (d directive) toFloat(arg value.Value) (float64, error) {
	switch arg.Kind() {
	case value.KindUndefined, value.KindNone:
		return 0, nil
	case value.KindInt, value.KindFloat:
		f, _ := arg.AsFloat()
		return f, nil
	case value.KindBool:
		if b, _ := arg.AsBool(); b {
			return 1, nil
		}
		return 0, nil
	case value.KindString:
		if f, err := strconv.ParseFloat(strings.TrimSpace(arg.String()), 64); err == nil {
			return f, nil
		}
	}
	return 0, d.errorf("invalid floating point argument %s", arg.Repr())
}

func (d directive) toRune(arg value.Value) (rune, error) {
	if n, ok := arg.AsInt(); ok {
		if n < 0 || n > utf8.MaxRune {
			return 0, d.errorf("invalid character code %d", n)
		}
		return rune(n), nil
	}
	if s, ok := arg.AsString(); ok && utf8.RuneCountInString(s) == 1 {
		r, _ := utf8.DecodeRuneInString(s)
		return r, nil
	}
	return 0, d.errorf("invalid character argument %s", arg.Repr())
}

func (d directive) errorf(format string, args ...any) error {
	return &Error{Directive: d.text, Msg: fmt.Sprintf(format, args...)}
}

func absUint(n int64) uint64 {
	if n < 0 {
		return uint64(-(n + 1)) + 1
	}
	return uint64(n)
}
