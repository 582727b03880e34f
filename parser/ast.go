package parser

import (
	"github.com/yetanotherchris/text-template/syntax"
)

// Span represents a location range in source code.
type Span = syntax.Span

// Node is the interface implemented by all tree nodes.
type Node interface {
	node()
	Span() Span
}

// --- Content nodes ---

// ListNode is an ordered sequence of nodes rendered one after another.
type ListNode struct {
	Nodes []Node
	span  Span
}

func (l *ListNode) node()      {}
func (l *ListNode) Span() Span { return l.span }

func (l *ListNode) append(n Node) {
	l.Nodes = append(l.Nodes, n)
	l.span = l.span.Join(n.Span())
}

// TextNode holds literal template text.
type TextNode struct {
	Text string
	span Span
}

func (t *TextNode) node()      {}
func (t *TextNode) Span() Span { return t.span }

// ActionNode renders the result of a pipeline.
type ActionNode struct {
	Pipe *PipeNode
	span Span
}

func (a *ActionNode) node()      {}
func (a *ActionNode) Span() Span { return a.span }

// IfNode is an if/else if/else chain.
type IfNode struct {
	Cond    *PipeNode
	Then    *ListNode
	ElseIfs []*ElseIf
	Else    *ListNode // optional
	span    Span
}

// ElseIf is one `else if` branch of an IfNode.
type ElseIf struct {
	Cond *PipeNode
	Body *ListNode
}

func (i *IfNode) node()      {}
func (i *IfNode) Span() Span { return i.span }

// RangeNode iterates a pipeline result.
type RangeNode struct {
	Vars []string // zero to two loop variables, stored without `$`
	Pipe *PipeNode
	Body *ListNode
	Else *ListNode // optional
	span Span
}

func (r *RangeNode) node()      {}
func (r *RangeNode) Span() Span { return r.span }

// ForNode is the `for item in source` loop. The item is bound as a variable
// and dot is left unchanged.
type ForNode struct {
	Item   string
	Source *PipeNode
	Body   *ListNode
	Else   *ListNode // optional
	span   Span
}

func (f *ForNode) node()      {}
func (f *ForNode) Span() Span { return f.span }

// WithNode rebinds dot to a truthy pipeline result.
type WithNode struct {
	Pipe *PipeNode
	Body *ListNode
	Else *ListNode // optional, may hold a single chained WithNode
	span Span
}

func (w *WithNode) node()      {}
func (w *WithNode) Span() Span { return w.span }

// DefineNode registers a named template when executed.
type DefineNode struct {
	Name string
	Body *ListNode
	span Span
}

func (d *DefineNode) node()      {}
func (d *DefineNode) Span() Span { return d.span }

// BlockNode registers a default body if the name is free, then renders the
// named template.
type BlockNode struct {
	Name string
	Pipe *PipeNode // optional context
	Body *ListNode
	span Span
}

func (b *BlockNode) node()      {}
func (b *BlockNode) Span() Span { return b.span }

// TemplateNode renders a named template.
type TemplateNode struct {
	Name string
	Pipe *PipeNode // optional context
	span Span
}

func (t *TemplateNode) node()      {}
func (t *TemplateNode) Span() Span { return t.span }

// BreakNode stops the innermost loop.
type BreakNode struct {
	span Span
}

func (b *BreakNode) node()      {}
func (b *BreakNode) Span() Span { return b.span }

// ContinueNode skips to the next iteration of the innermost loop.
type ContinueNode struct {
	span Span
}

func (c *ContinueNode) node()      {}
func (c *ContinueNode) Span() Span { return c.span }

// --- Pipelines ---

// PipeNode is a chain of commands with an optional variable declaration.
type PipeNode struct {
	Decl     []string // declared or assigned variables, without `$`
	IsAssign bool     // `=` rather than `:=`
	Cmds     []*CommandNode
	span     Span
}

func (p *PipeNode) node()      {}
func (p *PipeNode) Span() Span { return p.span }

// CommandNode is one stage of a pipeline. Args[0] is the head.
type CommandNode struct {
	Args []Node
	span Span
}

func (c *CommandNode) node()      {}
func (c *CommandNode) Span() Span { return c.span }

// IdentifierNode is a bare word: a function name, or a variable or field
// name when no function matches.
type IdentifierNode struct {
	Name string
	span Span
}

func (i *IdentifierNode) node()      {}
func (i *IdentifierNode) Span() Span { return i.span }

// PathRoot identifies where a path starts resolving.
type PathRoot int

const (
	RootDot   PathRoot = iota // . or .Field
	RootData                  // $ or $.Field
	RootVar                   // $name
	RootIdent                 // name.Field
	RootPipe                  // (pipeline).Field
)

// SegmentKind identifies an accessor in a path.
type SegmentKind int

const (
	SegField SegmentKind = iota // .Name
	SegIndex                    // [0]
	SegKey                      // ["key"]
	SegPath                     // [.Expr]
)

// Segment is one accessor of a path.
type Segment struct {
	Kind  SegmentKind
	Name  string    // field name or key
	Index int64     // list index
	Path  *PathNode // nested path for SegPath
}

// PathNode is an accessor chain starting at dot, root data, a variable, a
// bare identifier or a parenthesized pipeline.
type PathNode struct {
	Root     PathRoot
	Name     string    // variable or identifier name
	Pipe     *PipeNode // for RootPipe
	Segments []Segment
	span     Span
}

func (p *PathNode) node()      {}
func (p *PathNode) Span() Span { return p.span }

// --- Literals ---

// StringNode is a quoted string literal.
type StringNode struct {
	Text string
	span Span
}

func (s *StringNode) node()      {}
func (s *StringNode) Span() Span { return s.span }

// NumberNode is a numeric or character literal.
type NumberNode struct {
	IsInt   bool
	IsFloat bool
	Int     int64
	Float   float64
	Text    string
	span    Span
}

func (n *NumberNode) node()      {}
func (n *NumberNode) Span() Span { return n.span }

// BoolNode is true or false.
type BoolNode struct {
	True bool
	span Span
}

func (b *BoolNode) node()      {}
func (b *BoolNode) Span() Span { return b.span }

// NilNode is the nil literal.
type NilNode struct {
	span Span
}

func (n *NilNode) node()      {}
func (n *NilNode) Span() Span { return n.span }

// Tree is the result of parsing one source text.
type Tree struct {
	Name string
	Root *ListNode
	// Defines lists the named templates declared by define and block
	// actions, in source order. Later declarations of a name win.
	Defines map[string]*ListNode
	Order   []string
}

func (t *Tree) declare(name string, body *ListNode, overwrite bool) {
	if _, ok := t.Defines[name]; ok {
		if !overwrite {
			return
		}
	} else {
		t.Order = append(t.Order, name)
	}
	t.Defines[name] = body
}
