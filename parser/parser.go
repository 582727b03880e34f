// Package parser builds a Tree from the token stream produced by the lexer.
//
// The parser is a single-pass recursive descent over a flat token slice. A
// control action (`if`, `range`, `for`, `with`, `define`, `block`) parses its
// body with a nested subparse call that stops at the first `{{end}}` or
// `{{else}}` of the same nesting level.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/yetanotherchris/text-template/lexer"
)

const maxRecursion = 150

// Error represents a parse error.
type Error struct {
	Kind   string
	Detail string
	Name   string
	Line   int
	Col    int
}

func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s: %s (in %s:%d:%d)", e.Kind, e.Detail, e.Name, e.Line, e.Col)
	}
	return fmt.Sprintf("%s: %s (line %d, col %d)", e.Kind, e.Detail, e.Line, e.Col)
}

// Parser parses template token streams.
type Parser struct {
	tokens   []lexer.Token
	pos      int
	name     string
	inLoop   bool
	depth    int
	lastSpan Span
	tree     *Tree
}

// Parse tokenizes and parses source, returning its tree.
func Parse(source, name string, syntax lexer.SyntaxConfig) (*Tree, error) {
	tokens, err := lexer.Tokenize(source, syntax)
	if err != nil {
		var lexErr *lexer.Error
		if errors.As(err, &lexErr) {
			return nil, &Error{
				Kind:   "SyntaxError",
				Detail: lexErr.Msg,
				Name:   name,
				Line:   lexErr.Line,
				Col:    lexErr.Col,
			}
		}
		return nil, &Error{Kind: "SyntaxError", Detail: err.Error(), Name: name, Line: 1}
	}

	p := &Parser{
		tokens: tokens,
		name:   name,
		tree: &Tree{
			Name:    name,
			Defines: make(map[string]*ListNode),
		},
	}
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.tree, nil
}

// ParseDefault parses source with the default delimiters.
func ParseDefault(source, name string) (*Tree, error) {
	return Parse(source, name, lexer.DefaultSyntax())
}

func (p *Parser) parse() error {
	list, term, err := p.subparse()
	if err != nil {
		return err
	}
	if term != "" {
		return p.errorAt(p.lastSpan, fmt.Sprintf("unexpected {{%s}}", term))
	}
	p.tree.Root = list
	return nil
}

// subparse parses content until a terminating `end` or `else` action or the
// end of input. The terminator's delimiter and keyword are consumed and its
// keyword is returned; the empty string means end of input.
func (p *Parser) subparse() (*ListNode, string, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxRecursion {
		return nil, "", p.syntaxError("template exceeds maximum nesting depth")
	}

	list := &ListNode{}
	for {
		tok := p.current()
		if tok == nil {
			return list, "", nil
		}
		switch tok.Type {
		case lexer.TokenText:
			p.advance()
			list.append(&TextNode{Text: tok.Value, span: tok.Span})
		case lexer.TokenActionStart:
			start := p.advance().Span
			if kw := p.keyword(); kw == "end" || kw == "else" {
				p.advance()
				return list, kw, nil
			}
			node, err := p.parseAction(start)
			if err != nil {
				return nil, "", err
			}
			list.append(node)
		default:
			return nil, "", p.unexpected(tok, "text or action")
		}
	}
}

func (p *Parser) parseAction(start Span) (Node, error) {
	switch p.keyword() {
	case "if":
		p.advance()
		return p.parseIf(start)
	case "range":
		p.advance()
		return p.parseRange(start)
	case "for":
		p.advance()
		return p.parseFor(start)
	case "with":
		p.advance()
		return p.parseWith(start)
	case "define":
		p.advance()
		return p.parseDefine(start)
	case "block":
		p.advance()
		return p.parseBlock(start)
	case "template":
		p.advance()
		return p.parseTemplate(start)
	case "break", "continue":
		kw := p.advance().Value
		if !p.inLoop {
			return nil, p.errorAt(start, fmt.Sprintf("{{%s}} outside {{range}}", kw))
		}
		if err := p.expectActionEnd(kw); err != nil {
			return nil, err
		}
		if kw == "break" {
			return &BreakNode{span: start.Join(p.lastSpan)}, nil
		}
		return &ContinueNode{span: start.Join(p.lastSpan)}, nil
	}

	pipe, err := p.parsePipeline("command")
	if err != nil {
		return nil, err
	}
	if err := p.expectActionEnd("command"); err != nil {
		return nil, err
	}
	return &ActionNode{Pipe: pipe, span: start.Join(p.lastSpan)}, nil
}

func (p *Parser) parseIf(start Span) (Node, error) {
	cond, err := p.parsePipeline("if")
	if err != nil {
		return nil, err
	}
	if err := p.expectActionEnd("if"); err != nil {
		return nil, err
	}
	then, term, err := p.subparse()
	if err != nil {
		return nil, err
	}

	node := &IfNode{Cond: cond, Then: then}
	for {
		switch term {
		case "":
			return nil, p.unclosed("if", start)
		case "end":
			if err := p.expectActionEnd("end"); err != nil {
				return nil, err
			}
			node.span = start.Join(p.lastSpan)
			return node, nil
		}

		// else
		if node.Else != nil {
			return nil, p.syntaxError("unexpected {{else}} after {{else}}")
		}
		if p.keyword() == "if" {
			p.advance()
			cond, err := p.parsePipeline("else if")
			if err != nil {
				return nil, err
			}
			if err := p.expectActionEnd("else if"); err != nil {
				return nil, err
			}
			body, t, err := p.subparse()
			if err != nil {
				return nil, err
			}
			node.ElseIfs = append(node.ElseIfs, &ElseIf{Cond: cond, Body: body})
			term = t
			continue
		}
		if err := p.expectActionEnd("else"); err != nil {
			return nil, err
		}
		body, t, err := p.subparse()
		if err != nil {
			return nil, err
		}
		node.Else = body
		term = t
	}
}

func (p *Parser) parseRange(start Span) (Node, error) {
	vars, err := p.parseLoopVars()
	if err != nil {
		return nil, err
	}
	pipe, err := p.parsePipeline("range")
	if err != nil {
		return nil, err
	}
	if err := p.expectActionEnd("range"); err != nil {
		return nil, err
	}
	body, elseBody, err := p.parseLoopBody("range", start)
	if err != nil {
		return nil, err
	}
	return &RangeNode{
		Vars: vars,
		Pipe: pipe,
		Body: body,
		Else: elseBody,
		span: start.Join(p.lastSpan),
	}, nil
}

// parseFor parses `for item in source`.
func (p *Parser) parseFor(start Span) (Node, error) {
	tok := p.current()
	if tok == nil || (tok.Type != lexer.TokenIdent && tok.Type != lexer.TokenVariable) || tok.Value == "$" {
		return nil, p.unexpectedCurrent("loop variable name")
	}
	p.advance()
	item := strings.TrimPrefix(tok.Value, "$")

	if p.keywordAt(p.pos) != "in" {
		return nil, p.unexpectedCurrent("in")
	}
	p.advance()

	source, err := p.parsePipeline("for")
	if err != nil {
		return nil, err
	}
	if err := p.expectActionEnd("for"); err != nil {
		return nil, err
	}
	body, elseBody, err := p.parseLoopBody("for", start)
	if err != nil {
		return nil, err
	}
	return &ForNode{
		Item:   item,
		Source: source,
		Body:   body,
		Else:   elseBody,
		span:   start.Join(p.lastSpan),
	}, nil
}

// parseLoopBody parses a loop body and its optional else branch, consuming
// the closing end action.
func (p *Parser) parseLoopBody(construct string, start Span) (*ListNode, *ListNode, error) {
	wasInLoop := p.inLoop
	p.inLoop = true
	body, term, err := p.subparse()
	p.inLoop = wasInLoop
	if err != nil {
		return nil, nil, err
	}

	var elseBody *ListNode
	if term == "else" {
		if err := p.expectActionEnd("else"); err != nil {
			return nil, nil, err
		}
		elseBody, term, err = p.subparse()
		if err != nil {
			return nil, nil, err
		}
		if term == "else" {
			return nil, nil, p.syntaxError("unexpected {{else}} after {{else}}")
		}
	}
	if term == "" {
		return nil, nil, p.unclosed(construct, start)
	}
	if err := p.expectActionEnd("end"); err != nil {
		return nil, nil, err
	}
	return body, elseBody, nil
}

// parseLoopVars consumes an optional `a, b :=` declaration. Names may be
// written with or without the `$` prefix.
func (p *Parser) parseLoopVars() ([]string, error) {
	i := p.pos
	var names []string
	for {
		t := p.peekAt(i)
		if t == nil || (t.Type != lexer.TokenVariable && t.Type != lexer.TokenIdent) || t.Value == "$" {
			return nil, nil
		}
		names = append(names, strings.TrimPrefix(t.Value, "$"))
		i++

		next := p.peekAt(i)
		if next == nil {
			return nil, nil
		}
		switch next.Type {
		case lexer.TokenDeclare:
			if len(names) > 2 {
				return nil, p.errorAt(t.Span, "too many declarations in range")
			}
			for p.pos <= i {
				p.advance()
			}
			return names, nil
		case lexer.TokenComma:
			i++
		default:
			return nil, nil
		}
	}
}

func (p *Parser) parseWith(start Span) (Node, error) {
	pipe, err := p.parsePipeline("with")
	if err != nil {
		return nil, err
	}
	if err := p.expectActionEnd("with"); err != nil {
		return nil, err
	}
	body, term, err := p.subparse()
	if err != nil {
		return nil, err
	}

	node := &WithNode{Pipe: pipe, Body: body}
	if term == "else" {
		if p.keyword() == "with" {
			elseStart := p.advance().Span
			chained, err := p.parseWith(elseStart)
			if err != nil {
				return nil, err
			}
			node.Else = &ListNode{Nodes: []Node{chained}, span: chained.Span()}
			node.span = start.Join(p.lastSpan)
			return node, nil
		}
		if err := p.expectActionEnd("else"); err != nil {
			return nil, err
		}
		node.Else, term, err = p.subparse()
		if err != nil {
			return nil, err
		}
		if term == "else" {
			return nil, p.syntaxError("unexpected {{else}} after {{else}}")
		}
	}
	if term == "" {
		return nil, p.unclosed("with", start)
	}
	if err := p.expectActionEnd("end"); err != nil {
		return nil, err
	}
	node.span = start.Join(p.lastSpan)
	return node, nil
}

func (p *Parser) parseDefine(start Span) (Node, error) {
	name, err := p.parseTemplateName("define")
	if err != nil {
		return nil, err
	}
	if err := p.expectActionEnd("define"); err != nil {
		return nil, err
	}
	body, err := p.parseNamedBody("define", start)
	if err != nil {
		return nil, err
	}
	p.tree.declare(name, body, true)
	return &DefineNode{Name: name, Body: body, span: start.Join(p.lastSpan)}, nil
}

func (p *Parser) parseBlock(start Span) (Node, error) {
	name, err := p.parseTemplateName("block")
	if err != nil {
		return nil, err
	}
	var pipe *PipeNode
	if !p.atActionEnd() {
		if pipe, err = p.parsePipeline("block"); err != nil {
			return nil, err
		}
	}
	if err := p.expectActionEnd("block"); err != nil {
		return nil, err
	}
	body, err := p.parseNamedBody("block", start)
	if err != nil {
		return nil, err
	}
	p.tree.declare(name, body, false)
	return &BlockNode{Name: name, Pipe: pipe, Body: body, span: start.Join(p.lastSpan)}, nil
}

// parseNamedBody parses a define or block body. Loop control does not
// cross a template boundary.
func (p *Parser) parseNamedBody(construct string, start Span) (*ListNode, error) {
	wasInLoop := p.inLoop
	p.inLoop = false
	body, term, err := p.subparse()
	p.inLoop = wasInLoop
	if err != nil {
		return nil, err
	}
	switch term {
	case "":
		return nil, p.unclosed(construct, start)
	case "else":
		return nil, p.errorAt(p.lastSpan, fmt.Sprintf("unexpected {{else}} in %s", construct))
	}
	if err := p.expectActionEnd("end"); err != nil {
		return nil, err
	}
	return body, nil
}

func (p *Parser) parseTemplate(start Span) (Node, error) {
	name, err := p.parseTemplateName("template")
	if err != nil {
		return nil, err
	}
	var pipe *PipeNode
	if !p.atActionEnd() {
		if pipe, err = p.parsePipeline("template"); err != nil {
			return nil, err
		}
	}
	if err := p.expectActionEnd("template"); err != nil {
		return nil, err
	}
	return &TemplateNode{Name: name, Pipe: pipe, span: start.Join(p.lastSpan)}, nil
}

func (p *Parser) parseTemplateName(construct string) (string, error) {
	tok := p.current()
	if tok == nil || tok.Type != lexer.TokenString {
		return "", p.unexpectedCurrent(fmt.Sprintf("quoted name in %s", construct))
	}
	p.advance()
	return tok.Value, nil
}

// --- Pipelines ---

// parsePipeline parses `[decl] command ('|' command)*` up to, but not
// including, the closing delimiter or parenthesis.
func (p *Parser) parsePipeline(context string) (*PipeNode, error) {
	pipe := &PipeNode{span: p.currentSpan()}

	if tok := p.current(); tok != nil && tok.Type == lexer.TokenVariable && tok.Value != "$" {
		if next := p.peekAt(p.pos + 1); next != nil && (next.Type == lexer.TokenDeclare || next.Type == lexer.TokenAssign) {
			p.advance()
			p.advance()
			pipe.Decl = []string{strings.TrimPrefix(tok.Value, "$")}
			pipe.IsAssign = next.Type == lexer.TokenAssign
		}
	}

	for {
		cmd, err := p.parseCommand(context)
		if err != nil {
			return nil, err
		}
		pipe.Cmds = append(pipe.Cmds, cmd)

		tok := p.current()
		if tok == nil || tok.Type != lexer.TokenPipe {
			break
		}
		p.advance()
	}
	pipe.span = pipe.span.Join(p.lastSpan)
	return pipe, nil
}

func (p *Parser) parseCommand(context string) (*CommandNode, error) {
	cmd := &CommandNode{span: p.currentSpan()}
	for {
		tok := p.current()
		if tok == nil {
			return nil, p.syntaxError("unclosed action")
		}
		if tok.Type == lexer.TokenPipe || tok.Type == lexer.TokenActionEnd || tok.Type == lexer.TokenParenClose {
			break
		}
		arg, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		cmd.Args = append(cmd.Args, arg)
	}
	if len(cmd.Args) == 0 {
		return nil, p.syntaxError(fmt.Sprintf("missing value for %s", context))
	}
	cmd.span = cmd.span.Join(p.lastSpan)
	return cmd, nil
}

func (p *Parser) parseOperand() (Node, error) {
	tok := p.current()
	switch tok.Type {
	case lexer.TokenDot:
		p.advance()
		return p.parseChain(&PathNode{Root: RootDot, span: tok.Span})
	case lexer.TokenField:
		p.advance()
		path := &PathNode{
			Root:     RootDot,
			Segments: []Segment{{Kind: SegField, Name: tok.Value[1:]}},
			span:     tok.Span,
		}
		return p.parseChain(path)
	case lexer.TokenVariable:
		p.advance()
		path := &PathNode{Root: RootData, span: tok.Span}
		if tok.Value != "$" {
			path.Root = RootVar
			path.Name = tok.Value[1:]
		}
		return p.parseChain(path)
	case lexer.TokenIdent:
		p.advance()
		if p.chainFollows() {
			return p.parseChain(&PathNode{Root: RootIdent, Name: tok.Value, span: tok.Span})
		}
		return &IdentifierNode{Name: tok.Value, span: tok.Span}, nil
	case lexer.TokenString:
		p.advance()
		return &StringNode{Text: tok.Value, span: tok.Span}, nil
	case lexer.TokenChar:
		p.advance()
		r, _ := utf8.DecodeRuneInString(tok.Value)
		return &NumberNode{IsInt: true, Int: int64(r), Text: tok.Value, span: tok.Span}, nil
	case lexer.TokenNumber:
		p.advance()
		return p.parseNumber(tok)
	case lexer.TokenBool:
		p.advance()
		return &BoolNode{True: tok.Value == "true", span: tok.Span}, nil
	case lexer.TokenNil:
		p.advance()
		return &NilNode{span: tok.Span}, nil
	case lexer.TokenParenOpen:
		p.depth++
		defer func() { p.depth-- }()
		if p.depth > maxRecursion {
			return nil, p.syntaxError("template exceeds maximum nesting depth")
		}
		p.advance()
		pipe, err := p.parsePipeline("parenthesized pipeline")
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.TokenParenClose, ")"); err != nil {
			return nil, err
		}
		pipe.span = tok.Span.Join(p.lastSpan)
		if p.chainFollows() {
			return p.parseChain(&PathNode{Root: RootPipe, Pipe: pipe, span: pipe.span})
		}
		return pipe, nil
	}
	return nil, p.unexpected(tok, "operand")
}

// chainFollows reports whether the current token continues a path, which
// requires it to be a field or bracket directly adjacent to the previous
// token.
func (p *Parser) chainFollows() bool {
	tok := p.current()
	if tok == nil || tok.Spaced {
		return false
	}
	return tok.Type == lexer.TokenField || tok.Type == lexer.TokenBracketOpen
}

func (p *Parser) parseChain(path *PathNode) (Node, error) {
	for p.chainFollows() {
		tok := p.advance()
		if tok.Type == lexer.TokenField {
			path.Segments = append(path.Segments, Segment{Kind: SegField, Name: tok.Value[1:]})
			continue
		}
		seg, err := p.parseBracket()
		if err != nil {
			return nil, err
		}
		path.Segments = append(path.Segments, seg)
	}
	path.span = path.span.Join(p.lastSpan)
	return path, nil
}

// parseBracket parses the inside of `[...]` after the opening bracket.
func (p *Parser) parseBracket() (Segment, error) {
	tok := p.current()
	if tok == nil {
		return Segment{}, p.syntaxError("unclosed action")
	}

	var seg Segment
	switch tok.Type {
	case lexer.TokenNumber:
		p.advance()
		n, err := strconv.ParseInt(tok.Value, 0, 64)
		if err != nil {
			return Segment{}, p.errorAt(tok.Span, fmt.Sprintf("invalid index %s", tok.Value))
		}
		seg = Segment{Kind: SegIndex, Index: n}
	case lexer.TokenString:
		p.advance()
		seg = Segment{Kind: SegKey, Name: tok.Value}
	case lexer.TokenDot, lexer.TokenField, lexer.TokenVariable, lexer.TokenIdent:
		node, err := p.parseOperand()
		if err != nil {
			return Segment{}, err
		}
		path, ok := node.(*PathNode)
		if !ok {
			ident := node.(*IdentifierNode)
			path = &PathNode{Root: RootIdent, Name: ident.Name, span: ident.span}
		}
		seg = Segment{Kind: SegPath, Path: path}
	default:
		return Segment{}, p.unexpected(tok, "index, key or path")
	}

	if err := p.expect(lexer.TokenBracketClose, "]"); err != nil {
		return Segment{}, err
	}
	return seg, nil
}

func (p *Parser) parseNumber(tok *lexer.Token) (Node, error) {
	text := tok.Value
	node := &NumberNode{Text: text, span: tok.Span}

	isHex := strings.Contains(strings.ToLower(text), "0x")
	if !isHex && strings.ContainsAny(text, ".eE") {
		f, err := strconv.ParseFloat(strings.ReplaceAll(text, "_", ""), 64)
		if err != nil {
			return nil, p.errorAt(tok.Span, fmt.Sprintf("invalid number %s", text))
		}
		node.IsFloat = true
		node.Float = f
		return node, nil
	}

	if n, err := strconv.ParseInt(text, 0, 64); err == nil {
		node.IsInt = true
		node.Int = n
		return node, nil
	}
	if f, err := strconv.ParseFloat(strings.ReplaceAll(text, "_", ""), 64); err == nil && !isHex {
		node.IsFloat = true
		node.Float = f
		return node, nil
	}
	return nil, p.errorAt(tok.Span, fmt.Sprintf("invalid number %s", text))
}

// --- Token helpers ---

func (p *Parser) current() *lexer.Token {
	return p.peekAt(p.pos)
}

func (p *Parser) peekAt(i int) *lexer.Token {
	if i >= len(p.tokens) {
		return nil
	}
	return &p.tokens[i]
}

func (p *Parser) advance() *lexer.Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	tok := &p.tokens[p.pos]
	p.lastSpan = tok.Span
	p.pos++
	return tok
}

func (p *Parser) currentSpan() Span {
	if tok := p.current(); tok != nil {
		return tok.Span
	}
	return p.lastSpan
}

// keyword returns the identifier at the cursor, or "".
func (p *Parser) keyword() string {
	return p.keywordAt(p.pos)
}

func (p *Parser) keywordAt(i int) string {
	if tok := p.peekAt(i); tok != nil && tok.Type == lexer.TokenIdent {
		return tok.Value
	}
	return ""
}

func (p *Parser) atActionEnd() bool {
	tok := p.current()
	return tok != nil && tok.Type == lexer.TokenActionEnd
}

func (p *Parser) expectActionEnd(context string) error {
	if !p.atActionEnd() {
		return p.unexpectedCurrent(fmt.Sprintf("closing delimiter after %s", context))
	}
	p.advance()
	return nil
}

func (p *Parser) expect(typ lexer.TokenType, what string) error {
	tok := p.current()
	if tok == nil || tok.Type != typ {
		return p.unexpectedCurrent(what)
	}
	p.advance()
	return nil
}

// --- Errors ---

func (p *Parser) errorAt(span Span, msg string) *Error {
	return &Error{
		Kind:   "SyntaxError",
		Detail: msg,
		Name:   p.name,
		Line:   span.StartLine,
		Col:    span.StartCol,
	}
}

func (p *Parser) syntaxError(msg string) *Error {
	return p.errorAt(p.currentSpan(), msg)
}

func (p *Parser) unexpected(tok *lexer.Token, expected string) *Error {
	return p.errorAt(tok.Span, fmt.Sprintf("unexpected %s, expected %s", describe(tok), expected))
}

func (p *Parser) unexpectedCurrent(expected string) *Error {
	tok := p.current()
	if tok == nil {
		return p.syntaxError(fmt.Sprintf("unexpected end of input, expected %s", expected))
	}
	return p.unexpected(tok, expected)
}

func (p *Parser) unclosed(construct string, start Span) *Error {
	return p.errorAt(start, fmt.Sprintf("unexpected end of input: missing {{end}} for {{%s}}", construct))
}

func describe(tok *lexer.Token) string {
	switch tok.Type {
	case lexer.TokenActionEnd:
		return "closing delimiter"
	case lexer.TokenActionStart:
		return "opening delimiter"
	case lexer.TokenText:
		return "text"
	}
	return fmt.Sprintf("%q", tok.Value)
}
