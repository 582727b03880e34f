package errors

import (
	goerrors "errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/yetanotherchris/text-template/syntax"
	"github.com/yetanotherchris/text-template/value"
)

// DebugInfo is a snapshot of the variables in scope when an execution
// error was raised.
type DebugInfo struct {
	ReferencedLocals map[string]value.Value
}

// Render writes the message of err followed by an excerpt of its source
// with the failing span marked. Errors without position information are
// rendered as their message.
func Render(err error) string {
	var b strings.Builder
	var tmplErr *Error
	if goerrors.As(err, &tmplErr) {
		formatErrorWithDebug(&b, tmplErr, false)
		return b.String()
	}
	return err.Error()
}

func formatErrorWithDebug(w io.Writer, err *Error, includeChain bool) {
	_, _ = fmt.Fprint(w, err.Error())
	if err.Source != "" && err.Span != nil {
		renderExcerpt(w, err)
	}
	if err.DebugInfo != nil {
		renderReferencedLocals(w, err.DebugInfo.ReferencedLocals)
	}

	if includeChain {
		for cause := goerrors.Unwrap(err); cause != nil; cause = goerrors.Unwrap(cause) {
			_, _ = fmt.Fprint(w, "\n\ncaused by: ")
			if next, ok := cause.(*Error); ok {
				formatErrorWithDebug(w, next, false)
			} else {
				_, _ = fmt.Fprintf(w, "%v", cause)
			}
		}
	}
}

func renderExcerpt(w io.Writer, err *Error) {
	title := fmt.Sprintf(" %s ", templateTitle(err.Name))
	_, _ = fmt.Fprint(w, "\n")
	_, _ = fmt.Fprintln(w, centerLine(title, '-', 79))

	lines := strings.Split(err.Source, "\n")
	lineIdx := err.Span.StartLine - 1
	if lineIdx >= len(lines) {
		lineIdx = len(lines) - 1
	}
	if lineIdx < 0 {
		lineIdx = 0
	}

	for idx := max(lineIdx-3, 0); idx < lineIdx; idx++ {
		_, _ = fmt.Fprintf(w, "%4d | %s\n", idx+1, lines[idx])
	}
	_, _ = fmt.Fprintf(w, "%4d > %s\n", lineIdx+1, lines[lineIdx])
	_, _ = fmt.Fprintf(
		w,
		"     i %s%s %s\n",
		strings.Repeat(" ", err.Span.StartCol),
		strings.Repeat("^", caretWidth(err.Span)),
		err.Kind,
	)
	for idx := lineIdx + 1; idx <= lineIdx+3 && idx < len(lines); idx++ {
		_, _ = fmt.Fprintf(w, "%4d | %s\n", idx+1, lines[idx])
	}
	_, _ = fmt.Fprint(w, strings.Repeat("~", 79))
}

func renderReferencedLocals(w io.Writer, locals map[string]value.Value) {
	_, _ = fmt.Fprint(w, "\n")
	if len(locals) == 0 {
		_, _ = fmt.Fprint(w, "No variables in scope\n")
		return
	}

	_, _ = fmt.Fprint(w, "Variables in scope:\n")
	keys := make([]string, 0, len(locals))
	for key := range locals {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		_, _ = fmt.Fprintf(w, "    $%s: %s\n", key, locals[key].Repr())
	}
}

// caretWidth marks the whole span when it stays on one line, otherwise a
// single column.
func caretWidth(span *syntax.Span) int {
	if span.EndLine != span.StartLine || span.EndCol <= span.StartCol {
		return 1
	}
	return span.EndCol - span.StartCol
}

func templateTitle(name string) string {
	if name == "" {
		return "Template Source"
	}
	parts := strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' })
	if len(parts) == 0 {
		return "Template Source"
	}
	return parts[len(parts)-1]
}

func centerLine(title string, fill rune, width int) string {
	if len(title) >= width {
		return title
	}
	pad := width - len(title)
	left := pad / 2
	right := pad - left
	return strings.Repeat(string(fill), left) + title + strings.Repeat(string(fill), right)
}
