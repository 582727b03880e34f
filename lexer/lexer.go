// Package lexer splits template source into text and action tokens.
//
// The lexer alternates between two states. In text state it scans for the
// left delimiter and emits everything before it as a Text token. In action
// state it emits operand and punctuation tokens until the right delimiter.
// Trim markers (`{{-` and `-}}`) remove whitespace next to the action, and
// `{{/* ... */}}` comments are consumed without producing tokens.
package lexer

import (
	"fmt"
	"strconv"
	"strings"
)

// Error is a tokenization failure with its source position.
type Error struct {
	Line int
	Col  int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("syntax error at line %d, col %d: %s", e.Line, e.Col, e.Msg)
}

// Lexer tokenizes template source code.
type Lexer struct {
	source    string
	pos       int // current position in source
	start     int // start position of current token
	line      int // current line (1-indexed)
	col       int // current column (0-indexed at line start)
	startLine int
	startCol  int
	syntax    SyntaxConfig

	state                 lexerState
	trimLeadingWhitespace bool
	pendingTrim           bool
	spaced                bool
	bracketDepth          int
	actionLine            int
	actionCol             int
}

type lexerState int

const (
	stateText lexerState = iota
	stateOpen
	stateAction
)

// New creates a new Lexer for the given input.
func New(input string, syntax SyntaxConfig) *Lexer {
	if syntax.LeftDelim == "" || syntax.RightDelim == "" {
		syntax = syntax.WithDelims(syntax.LeftDelim, syntax.RightDelim)
	}
	return &Lexer{
		source: input,
		line:   1,
		syntax: syntax,
	}
}

// Tokenize returns all tokens from the input.
func Tokenize(input string, syntax SyntaxConfig) ([]Token, error) {
	return New(input, syntax).All()
}

// All collects all tokens into a slice.
func (l *Lexer) All() ([]Token, error) {
	var tokens []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		if tok == nil {
			break
		}
		tokens = append(tokens, *tok)
	}
	return tokens, nil
}

// Next returns the next token, or nil at end of input.
func (l *Lexer) Next() (*Token, error) {
	for {
		var tok *Token
		var cont bool
		var err error

		switch l.state {
		case stateText:
			if l.atEnd() {
				return nil, nil
			}
			tok, cont, err = l.lexText()
		case stateOpen:
			tok, cont, err = l.lexActionStart()
		case stateAction:
			tok, cont, err = l.lexInsideAction()
		}

		if err != nil {
			return nil, err
		}
		if cont {
			continue
		}
		return tok, nil
	}
}

// lexText emits the literal text up to the next left delimiter.
func (l *Lexer) lexText() (*Token, bool, error) {
	if l.trimLeadingWhitespace {
		l.trimLeadingWhitespace = false
		l.skipWhitespace()
	}

	l.markStart()
	rest := l.rest()
	idx := strings.Index(rest, l.syntax.LeftDelim)
	if idx < 0 {
		if rest == "" {
			return nil, false, nil
		}
		text := l.advance(len(rest))
		tok := l.makeToken(TokenText, text)
		return &tok, false, nil
	}

	peeked := rest[:idx]
	lead := peeked
	l.pendingTrim = hasLeftTrim(rest[idx+len(l.syntax.LeftDelim):])
	if l.pendingTrim {
		lead = strings.TrimRight(peeked, " \t\n\r")
	}
	l.advance(len(lead))
	span := l.span() // span ends before the stripped whitespace
	l.advance(len(peeked) - len(lead))
	l.state = stateOpen

	if lead == "" {
		return nil, true, nil
	}
	return &Token{Type: TokenText, Value: lead, Span: span}, false, nil
}

// lexActionStart consumes the left delimiter and its trim marker, or a
// whole comment action.
func (l *Lexer) lexActionStart() (*Token, bool, error) {
	l.markStart()
	l.actionLine, l.actionCol = l.line, l.col

	skip := len(l.syntax.LeftDelim)
	trim := l.pendingTrim
	l.pendingTrim = false
	if trim {
		skip++
	}

	afterOpen := l.rest()[skip:]
	body := strings.TrimLeft(afterOpen, " \t\r\n")
	if strings.HasPrefix(body, commentOpen) {
		return l.lexComment(skip + len(afterOpen) - len(body))
	}

	l.advance(skip)
	l.state = stateAction
	l.spaced = false
	l.bracketDepth = 0
	tok := l.makeToken(TokenActionStart, l.syntax.LeftDelim)
	tok.Trim = trim
	return &tok, false, nil
}

// lexComment skips a comment action. skip is the offset of the opening
// `/*` from the current position.
func (l *Lexer) lexComment(skip int) (*Token, bool, error) {
	rest := l.rest()[skip:]
	end := strings.Index(rest[len(commentOpen):], commentClose)
	if end < 0 {
		l.advance(len(l.rest()))
		return nil, false, l.errorAt(l.actionLine, l.actionCol, "unclosed comment")
	}
	end += len(commentOpen) + len(commentClose)

	after := rest[end:]
	tail := strings.TrimLeft(after, " \t\r\n")
	consumed := skip + end + len(after) - len(tail)

	rightTrim := false
	if len(tail) > 0 && tail[0] == trimMarker && strings.HasPrefix(tail[1:], l.syntax.RightDelim) {
		rightTrim = true
		consumed++
		tail = tail[1:]
	}
	if !strings.HasPrefix(tail, l.syntax.RightDelim) {
		return nil, false, l.errorAt(l.actionLine, l.actionCol, "comment ends before closing delimiter")
	}

	l.advance(consumed + len(l.syntax.RightDelim))
	l.state = stateText
	l.trimLeadingWhitespace = rightTrim
	return nil, true, nil
}

// lexInsideAction emits one token of an action body.
func (l *Lexer) lexInsideAction() (*Token, bool, error) {
	if l.skipSpaces() {
		l.spaced = true
	}
	if l.atEnd() {
		return nil, false, l.errorAt(l.actionLine, l.actionCol, "unclosed action")
	}

	l.markStart()
	rest := l.rest()

	if l.bracketDepth == 0 {
		if rest[0] == trimMarker && strings.HasPrefix(rest[1:], l.syntax.RightDelim) {
			l.advance(1 + len(l.syntax.RightDelim))
			return l.closeAction(true)
		}
		if strings.HasPrefix(rest, l.syntax.RightDelim) {
			l.advance(len(l.syntax.RightDelim))
			return l.closeAction(false)
		}
	}
	if strings.HasPrefix(rest, l.syntax.LeftDelim) {
		return nil, false, l.syntaxError("unexpected left delimiter inside action")
	}

	var tok Token
	ch := rest[0]
	switch {
	case ch == '|':
		l.advance(1)
		tok = l.makeToken(TokenPipe, "|")
	case ch == ':':
		if len(rest) < 2 || rest[1] != '=' {
			return nil, false, l.syntaxError("expected :=")
		}
		l.advance(2)
		tok = l.makeToken(TokenDeclare, ":=")
	case ch == '=':
		l.advance(1)
		tok = l.makeToken(TokenAssign, "=")
	case ch == ',':
		l.advance(1)
		tok = l.makeToken(TokenComma, ",")
	case ch == '(':
		l.advance(1)
		tok = l.makeToken(TokenParenOpen, "(")
	case ch == ')':
		l.advance(1)
		tok = l.makeToken(TokenParenClose, ")")
	case ch == '[':
		l.bracketDepth++
		l.advance(1)
		tok = l.makeToken(TokenBracketOpen, "[")
	case ch == ']':
		if l.bracketDepth == 0 {
			return nil, false, l.syntaxError("unexpected ]")
		}
		l.bracketDepth--
		l.advance(1)
		tok = l.makeToken(TokenBracketClose, "]")
	case ch == '"':
		t, err := l.lexQuote()
		if err != nil {
			return nil, false, err
		}
		tok = t
	case ch == '`':
		t, err := l.lexRawQuote()
		if err != nil {
			return nil, false, err
		}
		tok = t
	case ch == '\'':
		t, err := l.lexChar()
		if err != nil {
			return nil, false, err
		}
		tok = t
	case ch == '$':
		n := 1
		for n < len(rest) && isIdentPart(rest[n]) {
			n++
		}
		tok = l.makeToken(TokenVariable, l.advance(n))
	case ch == '.':
		if len(rest) > 1 && isDigit(rest[1]) {
			tok = l.lexNumber()
			break
		}
		n := 1
		for n < len(rest) && isIdentPart(rest[n]) {
			n++
		}
		if n == 1 {
			l.advance(1)
			tok = l.makeToken(TokenDot, ".")
		} else {
			tok = l.makeToken(TokenField, l.advance(n))
		}
	case ch == '-' || ch == '+':
		if len(rest) > 1 && (isDigit(rest[1]) || (rest[1] == '.' && len(rest) > 2 && isDigit(rest[2]))) {
			tok = l.lexNumber()
			break
		}
		return nil, false, l.syntaxError(fmt.Sprintf("unexpected character %q in action", ch))
	case isDigit(ch):
		tok = l.lexNumber()
	case isIdentStart(ch):
		tok = l.lexIdent()
	default:
		return nil, false, l.syntaxError(fmt.Sprintf("unexpected character %q in action", ch))
	}

	tok.Spaced = l.spaced
	l.spaced = false
	return &tok, false, nil
}

func (l *Lexer) closeAction(trim bool) (*Token, bool, error) {
	value := l.syntax.RightDelim
	if trim {
		value = string(trimMarker) + value
	}
	tok := l.makeToken(TokenActionEnd, value)
	tok.Trim = trim
	tok.Spaced = l.spaced
	l.spaced = false
	l.state = stateText
	l.trimLeadingWhitespace = trim
	return &tok, false, nil
}

// lexQuote lexes an interpreted string literal. Escapes are decoded with
// Go string literal rules.
func (l *Lexer) lexQuote() (Token, error) {
	rest := l.rest()
	i := 1
	for {
		if i >= len(rest) || rest[i] == '\n' {
			return Token{}, l.syntaxError("unterminated quoted string")
		}
		if rest[i] == '\\' {
			i += 2
			continue
		}
		if rest[i] == '"' {
			break
		}
		i++
	}
	raw := rest[:i+1]
	decoded, err := strconv.Unquote(raw)
	if err != nil {
		return Token{}, l.syntaxError(fmt.Sprintf("invalid string literal %s", raw))
	}
	l.advance(len(raw))
	return l.makeToken(TokenString, decoded), nil
}

func (l *Lexer) lexRawQuote() (Token, error) {
	rest := l.rest()
	end := strings.IndexByte(rest[1:], '`')
	if end < 0 {
		return Token{}, l.syntaxError("unterminated raw quoted string")
	}
	raw := l.advance(end + 2)
	return l.makeToken(TokenString, raw[1:len(raw)-1]), nil
}

func (l *Lexer) lexChar() (Token, error) {
	rest := l.rest()
	i := 1
	for {
		if i >= len(rest) || rest[i] == '\n' {
			return Token{}, l.syntaxError("unterminated character constant")
		}
		if rest[i] == '\\' {
			i += 2
			continue
		}
		if rest[i] == '\'' {
			break
		}
		i++
	}
	raw := rest[:i+1]
	decoded, err := strconv.Unquote(raw)
	if err != nil {
		return Token{}, l.syntaxError(fmt.Sprintf("invalid character constant %s", raw))
	}
	l.advance(len(raw))
	return l.makeToken(TokenChar, decoded), nil
}

// lexNumber lexes an integer or float literal with an optional sign, a
// 0x/0o/0b prefix, underscores and an exponent. Conversion is left to the
// parser.
func (l *Lexer) lexNumber() Token {
	rest := l.rest()
	i := 0
	if rest[i] == '+' || rest[i] == '-' {
		i++
	}
	digits := "0123456789_"
	if strings.HasPrefix(rest[i:], "0x") || strings.HasPrefix(rest[i:], "0X") {
		i += 2
		digits = "0123456789abcdefABCDEF_"
	} else if strings.HasPrefix(rest[i:], "0o") || strings.HasPrefix(rest[i:], "0O") {
		i += 2
		digits = "01234567_"
	} else if strings.HasPrefix(rest[i:], "0b") || strings.HasPrefix(rest[i:], "0B") {
		i += 2
		digits = "01_"
	}
	for i < len(rest) && strings.IndexByte(digits, rest[i]) >= 0 {
		i++
	}
	if len(digits) == len("0123456789_") {
		if i < len(rest) && rest[i] == '.' {
			i++
			for i < len(rest) && strings.IndexByte(digits, rest[i]) >= 0 {
				i++
			}
		}
		if i < len(rest) && (rest[i] == 'e' || rest[i] == 'E') {
			j := i + 1
			if j < len(rest) && (rest[j] == '+' || rest[j] == '-') {
				j++
			}
			if j < len(rest) && isDigit(rest[j]) {
				i = j
				for i < len(rest) && isDigit(rest[i]) {
					i++
				}
			}
		}
	}
	return l.makeToken(TokenNumber, l.advance(i))
}

func (l *Lexer) lexIdent() Token {
	rest := l.rest()
	n := 0
	for n < len(rest) && isIdentPart(rest[n]) {
		n++
	}
	word := l.advance(n)
	switch word {
	case "true", "false":
		return l.makeToken(TokenBool, word)
	case "nil":
		return l.makeToken(TokenNil, word)
	}
	return l.makeToken(TokenIdent, word)
}

// Helper methods

func (l *Lexer) atEnd() bool {
	return l.pos >= len(l.source)
}

func (l *Lexer) rest() string {
	if l.pos >= len(l.source) {
		return ""
	}
	return l.source[l.pos:]
}

func (l *Lexer) advance(n int) string {
	if n <= 0 {
		return ""
	}
	start := l.pos
	end := l.pos + n
	if end > len(l.source) {
		end = len(l.source)
	}

	skipped := l.source[start:end]
	for i := 0; i < len(skipped); i++ {
		if skipped[i] == '\n' {
			l.line++
			l.col = 0
		} else {
			l.col++
		}
	}
	l.pos = end
	return skipped
}

func (l *Lexer) markStart() {
	l.start = l.pos
	l.startLine = l.line
	l.startCol = l.col
}

func (l *Lexer) span() Span {
	return Span{
		StartLine:   l.startLine,
		StartCol:    l.startCol,
		StartOffset: l.start,
		EndLine:     l.line,
		EndCol:      l.col,
		EndOffset:   l.pos,
	}
}

func (l *Lexer) makeToken(typ TokenType, value string) Token {
	return Token{
		Type:  typ,
		Value: value,
		Span:  l.span(),
	}
}

func (l *Lexer) skipWhitespace() {
	for !l.atEnd() && isSpace(l.rest()[0]) {
		l.advance(1)
	}
}

// skipSpaces reports whether any whitespace was skipped.
func (l *Lexer) skipSpaces() bool {
	start := l.pos
	l.skipWhitespace()
	return l.pos > start
}

func (l *Lexer) syntaxError(msg string) error {
	return l.errorAt(l.line, l.col, msg)
}

func (l *Lexer) errorAt(line, col int, msg string) error {
	return &Error{Line: line, Col: col, Msg: msg}
}

// hasLeftTrim reports whether the text following a left delimiter starts
// with a trim marker. A dash directly followed by a digit is a negative
// number instead.
func hasLeftTrim(after string) bool {
	if after == "" || after[0] != trimMarker {
		return false
	}
	return len(after) == 1 || !isDigit(after[1])
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
