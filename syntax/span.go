// Package syntax holds source position types shared by the lexer, the
// parser and the error reporting of the template engine.
package syntax

import "fmt"

// Span represents a location range in source code.
//
// Lines are 1-indexed, columns are 0-indexed byte offsets from the start of
// the line.
type Span struct {
	StartLine   int
	StartCol    int
	StartOffset int
	EndLine     int
	EndCol      int
	EndOffset   int
}

// String renders the start of the span as "line:col".
func (s Span) String() string {
	return fmt.Sprintf("%d:%d", s.StartLine, s.StartCol)
}

// IsZero reports whether the span carries no position.
func (s Span) IsZero() bool {
	return s == Span{}
}

// Join returns a span covering both s and other.
func (s Span) Join(other Span) Span {
	if s.IsZero() {
		return other
	}
	if other.IsZero() {
		return s
	}
	out := s
	if other.EndOffset > s.EndOffset {
		out.EndLine = other.EndLine
		out.EndCol = other.EndCol
		out.EndOffset = other.EndOffset
	}
	return out
}
