package lexer

import (
	"fmt"

	"github.com/yetanotherchris/text-template/syntax"
)

// TokenType represents the type of a token.
type TokenType int

const (
	// Template data (raw text between actions)
	TokenText TokenType = iota

	// Delimiters
	TokenActionStart // {{ or {{-
	TokenActionEnd   // }} or -}}

	// Operands
	TokenIdent    // keyword or function name
	TokenField    // .Name
	TokenDot      // .
	TokenVariable // $ or $name
	TokenString   // "string" or `raw string`
	TokenChar     // 'c'
	TokenNumber   // 123, -4.5, 0x1F
	TokenBool     // true, false
	TokenNil      // nil

	// Punctuation
	TokenPipe         // |
	TokenDeclare      // :=
	TokenAssign       // =
	TokenComma        // ,
	TokenParenOpen    // (
	TokenParenClose   // )
	TokenBracketOpen  // [
	TokenBracketClose // ]
)

// Token represents a single token from the lexer.
type Token struct {
	Type  TokenType
	Value string // decoded value for strings and chars, source text otherwise
	Span  Span

	// Spaced is set when whitespace separates the token from the previous
	// token of the same action. Paths only chain across unspaced tokens.
	Spaced bool

	// Trim is set on an ActionStart carrying a left trim marker and on an
	// ActionEnd carrying a right trim marker.
	Trim bool
}

// Span represents a location range in source code.
type Span = syntax.Span

// String returns a debug representation of the token.
func (t Token) String() string {
	return fmt.Sprintf("%s(%q)", t.Type, t.Value)
}

var tokenTypeNames = map[TokenType]string{
	TokenText:         "Text",
	TokenActionStart:  "ActionStart",
	TokenActionEnd:    "ActionEnd",
	TokenIdent:        "Ident",
	TokenField:        "Field",
	TokenDot:          "Dot",
	TokenVariable:     "Variable",
	TokenString:       "String",
	TokenChar:         "Char",
	TokenNumber:       "Number",
	TokenBool:         "Bool",
	TokenNil:          "Nil",
	TokenPipe:         "Pipe",
	TokenDeclare:      "Declare",
	TokenAssign:       "Assign",
	TokenComma:        "Comma",
	TokenParenOpen:    "ParenOpen",
	TokenParenClose:   "ParenClose",
	TokenBracketOpen:  "BracketOpen",
	TokenBracketClose: "BracketClose",
}

func (t TokenType) String() string {
	if name, ok := tokenTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", t)
}
