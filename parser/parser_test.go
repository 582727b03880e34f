package parser

import (
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yetanotherchris/text-template/internal/testutil"
	"github.com/yetanotherchris/text-template/lexer"
)

func mustParse(t *testing.T, src string) *Tree {
	t.Helper()
	tree, err := ParseDefault(src, "test")
	require.NoError(t, err)
	return tree
}

func onlyNode(t *testing.T, tree *Tree) Node {
	t.Helper()
	require.Len(t, tree.Root.Nodes, 1)
	return tree.Root.Nodes[0]
}

func TestParseTextAndAction(t *testing.T) {
	tree := mustParse(t, "Hello {{.Name}}!")
	require.Len(t, tree.Root.Nodes, 3)

	assert.Equal(t, "Hello ", tree.Root.Nodes[0].(*TextNode).Text)
	action := tree.Root.Nodes[1].(*ActionNode)
	require.Len(t, action.Pipe.Cmds, 1)
	path := action.Pipe.Cmds[0].Args[0].(*PathNode)
	assert.Equal(t, RootDot, path.Root)
	assert.Equal(t, []Segment{{Kind: SegField, Name: "Name"}}, path.Segments)
	assert.Equal(t, "!", tree.Root.Nodes[2].(*TextNode).Text)
}

func TestParsePaths(t *testing.T) {
	tests := []struct {
		src      string
		root     PathRoot
		name     string
		segments []Segment
	}{
		{"{{.}}", RootDot, "", nil},
		{"{{.A.B}}", RootDot, "", []Segment{{Kind: SegField, Name: "A"}, {Kind: SegField, Name: "B"}}},
		{"{{$}}", RootData, "", nil},
		{"{{$.Title}}", RootData, "", []Segment{{Kind: SegField, Name: "Title"}}},
		{"{{$x.Y}}", RootVar, "x", []Segment{{Kind: SegField, Name: "Y"}}},
		{"{{.Items[1]}}", RootDot, "", []Segment{{Kind: SegField, Name: "Items"}, {Kind: SegIndex, Index: 1}}},
		{`{{.M["a b"]}}`, RootDot, "", []Segment{{Kind: SegField, Name: "M"}, {Kind: SegKey, Name: "a b"}}},
		{"{{user.Name}}", RootIdent, "user", []Segment{{Kind: SegField, Name: "Name"}}},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			action := onlyNode(t, mustParse(t, tt.src)).(*ActionNode)
			path := action.Pipe.Cmds[0].Args[0].(*PathNode)
			assert.Equal(t, tt.root, path.Root)
			assert.Equal(t, tt.name, path.Name)
			assert.Equal(t, tt.segments, path.Segments)
		})
	}
}

func TestParseDynamicBracket(t *testing.T) {
	action := onlyNode(t, mustParse(t, "{{.Items[.Index]}}")).(*ActionNode)
	path := action.Pipe.Cmds[0].Args[0].(*PathNode)

	require.Len(t, path.Segments, 2)
	seg := path.Segments[1]
	assert.Equal(t, SegPath, seg.Kind)
	assert.Equal(t, RootDot, seg.Path.Root)
	assert.Equal(t, []Segment{{Kind: SegField, Name: "Index"}}, seg.Path.Segments)
}

func TestParseBareIdentifier(t *testing.T) {
	action := onlyNode(t, mustParse(t, "{{ Variable }}")).(*ActionNode)
	ident := action.Pipe.Cmds[0].Args[0].(*IdentifierNode)
	assert.Equal(t, "Variable", ident.Name)
}

func TestParsePipeline(t *testing.T) {
	action := onlyNode(t, mustParse(t, `{{ .Name | printf "%s-%d" 3 | lower }}`)).(*ActionNode)
	cmds := action.Pipe.Cmds
	require.Len(t, cmds, 3)

	assert.IsType(t, &PathNode{}, cmds[0].Args[0])
	require.Len(t, cmds[1].Args, 3)
	assert.Equal(t, "printf", cmds[1].Args[0].(*IdentifierNode).Name)
	assert.Equal(t, "%s-%d", cmds[1].Args[1].(*StringNode).Text)
	assert.Equal(t, int64(3), cmds[1].Args[2].(*NumberNode).Int)
	assert.Equal(t, "lower", cmds[2].Args[0].(*IdentifierNode).Name)
}

func TestParseLiterals(t *testing.T) {
	action := onlyNode(t, mustParse(t, "{{ print 1 -2 3.5 0x10 'a' true nil `raw` }}")).(*ActionNode)
	args := action.Pipe.Cmds[0].Args
	require.Len(t, args, 9)

	assert.Equal(t, int64(1), args[1].(*NumberNode).Int)
	assert.Equal(t, int64(-2), args[2].(*NumberNode).Int)
	assert.True(t, args[3].(*NumberNode).IsFloat)
	assert.Equal(t, 3.5, args[3].(*NumberNode).Float)
	assert.Equal(t, int64(16), args[4].(*NumberNode).Int)
	assert.Equal(t, int64('a'), args[5].(*NumberNode).Int)
	assert.True(t, args[6].(*BoolNode).True)
	assert.IsType(t, &NilNode{}, args[7])
	assert.Equal(t, "raw", args[8].(*StringNode).Text)
}

func TestParseParenthesized(t *testing.T) {
	action := onlyNode(t, mustParse(t, `{{ and (eq .Status "active") (gt .Count 0) }}`)).(*ActionNode)
	args := action.Pipe.Cmds[0].Args
	require.Len(t, args, 3)

	inner := args[1].(*PipeNode)
	assert.Equal(t, "eq", inner.Cmds[0].Args[0].(*IdentifierNode).Name)

	chained := onlyNode(t, mustParse(t, `{{ (index .M "k").Name }}`)).(*ActionNode)
	path := chained.Pipe.Cmds[0].Args[0].(*PathNode)
	assert.Equal(t, RootPipe, path.Root)
	require.NotNil(t, path.Pipe)
	assert.Equal(t, []Segment{{Kind: SegField, Name: "Name"}}, path.Segments)
}

func TestParseDeclarations(t *testing.T) {
	decl := onlyNode(t, mustParse(t, "{{ $x := .A }}")).(*ActionNode)
	assert.Equal(t, []string{"x"}, decl.Pipe.Decl)
	assert.False(t, decl.Pipe.IsAssign)

	assign := onlyNode(t, mustParse(t, "{{ $x = 2 }}")).(*ActionNode)
	assert.Equal(t, []string{"x"}, assign.Pipe.Decl)
	assert.True(t, assign.Pipe.IsAssign)
}

func TestParseIfChain(t *testing.T) {
	node := onlyNode(t, mustParse(t, "{{if .A}}A{{else if .B}}B{{else}}C{{end}}")).(*IfNode)

	assert.Equal(t, "A", node.Then.Nodes[0].(*TextNode).Text)
	require.Len(t, node.ElseIfs, 1)
	assert.Equal(t, "B", node.ElseIfs[0].Body.Nodes[0].(*TextNode).Text)
	require.NotNil(t, node.Else)
	assert.Equal(t, "C", node.Else.Nodes[0].(*TextNode).Text)
}

func TestParseNestedIfTerminators(t *testing.T) {
	node := onlyNode(t, mustParse(t, "{{if .A}}{{if .B}}x{{else}}y{{end}}{{else}}z{{end}}")).(*IfNode)

	inner := node.Then.Nodes[0].(*IfNode)
	assert.NotNil(t, inner.Else)
	assert.Equal(t, "z", node.Else.Nodes[0].(*TextNode).Text)
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		src  string
		vars []string
	}{
		{"{{range .Items}}x{{end}}", nil},
		{"{{range $v := .Items}}x{{end}}", []string{"v"}},
		{"{{range $i, $v := .Items}}x{{end}}", []string{"i", "v"}},
		{"{{range i, v := .Items}}x{{end}}", []string{"i", "v"}},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			node := onlyNode(t, mustParse(t, tt.src)).(*RangeNode)
			assert.Equal(t, tt.vars, node.Vars)
			assert.Nil(t, node.Else)
		})
	}

	withElse := onlyNode(t, mustParse(t, "{{range .Items}}x{{else}}empty{{end}}")).(*RangeNode)
	require.NotNil(t, withElse.Else)
	assert.Equal(t, "empty", withElse.Else.Nodes[0].(*TextNode).Text)
}

func TestParseFor(t *testing.T) {
	node := onlyNode(t, mustParse(t, "{{for item in .Items}}{{item}}{{end}}")).(*ForNode)
	assert.Equal(t, "item", node.Item)
	assert.IsType(t, &PathNode{}, node.Source.Cmds[0].Args[0])

	dollar := onlyNode(t, mustParse(t, "{{for $x in .Items}}{{$x}}{{else}}none{{end}}")).(*ForNode)
	assert.Equal(t, "x", dollar.Item)
	assert.NotNil(t, dollar.Else)
}

func TestParseWithChain(t *testing.T) {
	node := onlyNode(t, mustParse(t, "{{with .A}}a{{else with .B}}b{{else}}c{{end}}")).(*WithNode)

	require.NotNil(t, node.Else)
	chained := node.Else.Nodes[0].(*WithNode)
	assert.Equal(t, "b", chained.Body.Nodes[0].(*TextNode).Text)
	assert.Equal(t, "c", chained.Else.Nodes[0].(*TextNode).Text)
}

func TestParseDefineBlockTemplate(t *testing.T) {
	tree := mustParse(t, `{{define "greet"}}Hi {{.}}{{end}}{{block "main" .User}}default{{end}}{{template "greet" "Bob"}}{{template "x"}}`)
	require.Len(t, tree.Root.Nodes, 4)

	def := tree.Root.Nodes[0].(*DefineNode)
	assert.Equal(t, "greet", def.Name)

	block := tree.Root.Nodes[1].(*BlockNode)
	assert.Equal(t, "main", block.Name)
	assert.NotNil(t, block.Pipe)

	call := tree.Root.Nodes[2].(*TemplateNode)
	assert.Equal(t, "greet", call.Name)
	assert.NotNil(t, call.Pipe)
	assert.Nil(t, tree.Root.Nodes[3].(*TemplateNode).Pipe)

	assert.Equal(t, []string{"greet", "main"}, tree.Order)
	assert.Contains(t, tree.Defines, "greet")
	assert.Contains(t, tree.Defines, "main")
}

func TestParseBlockDoesNotOverrideDefine(t *testing.T) {
	tree := mustParse(t, `{{define "a"}}first{{end}}{{block "a" .}}second{{end}}`)
	assert.Equal(t, "first", tree.Defines["a"].Nodes[0].(*TextNode).Text)

	tree = mustParse(t, `{{define "a"}}first{{end}}{{define "a"}}second{{end}}`)
	assert.Equal(t, "second", tree.Defines["a"].Nodes[0].(*TextNode).Text)
}

func TestParseBreakContinue(t *testing.T) {
	tree := mustParse(t, "{{range .}}{{if .}}{{break}}{{end}}{{continue}}{{end}}")
	node := onlyNode(t, tree).(*RangeNode)

	assert.IsType(t, &BreakNode{}, node.Body.Nodes[0].(*IfNode).Then.Nodes[0])
	assert.IsType(t, &ContinueNode{}, node.Body.Nodes[1])
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"unclosed action", "Hello {{ .Name", "unclosed action"},
		{"unterminated if", "{{if .A}}x", "missing {{end}} for {{if}}"},
		{"unterminated range", "{{range .A}}x{{else}}y", "missing {{end}} for {{range}}"},
		{"unterminated with", "{{with .A}}x", "missing {{end}} for {{with}}"},
		{"unterminated define", `{{define "x"}}y`, "missing {{end}} for {{define}}"},
		{"stray end", "x{{end}}", "unexpected {{end}}"},
		{"stray else", "x{{else}}", "unexpected {{else}}"},
		{"double else", "{{if .}}a{{else}}b{{else}}c{{end}}", "after {{else}}"},
		{"empty action", "{{ }}", "missing value"},
		{"empty pipe stage", "{{ .A | }}", "missing value"},
		{"break outside loop", "{{break}}", "{{break}} outside {{range}}"},
		{"continue in define inside loop", `{{range .}}{{define "x"}}{{continue}}{{end}}{{end}}`, "{{continue}} outside {{range}}"},
		{"define without name", "{{define x}}{{end}}", "quoted name"},
		{"unclosed paren", "{{ (len . }}", `expected )`},
		{"bad index", "{{ .A[1.5] }}", "invalid index"},
		{"for without in", "{{for x .Items}}{{end}}", "expected in"},
		{"else in define", `{{define "x"}}a{{else}}b{{end}}`, "unexpected {{else}} in define"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDefault(tt.src, "test")
			require.Error(t, err)

			var parseErr *Error
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, "SyntaxError", parseErr.Kind)
			assert.Contains(t, parseErr.Detail, tt.msg)
		})
	}
}

func TestParseErrorPosition(t *testing.T) {
	_, err := ParseDefault("line1\n  {{if .A}}\nbody", "page.tmpl")
	var parseErr *Error
	require.ErrorAs(t, err, &parseErr)

	assert.Equal(t, 2, parseErr.Line)
	assert.Equal(t, 2, parseErr.Col)
	assert.Equal(t, "page.tmpl", parseErr.Name)
	assert.Contains(t, err.Error(), "page.tmpl:2:2")
}

func TestParseCustomDelims(t *testing.T) {
	tree, err := Parse("[[ .X ]] {{ .Y }}", "t", lexer.DefaultSyntax().WithDelims("[[", "]]"))
	require.NoError(t, err)
	require.Len(t, tree.Root.Nodes, 2)
	assert.Equal(t, " {{ .Y }}", tree.Root.Nodes[1].(*TextNode).Text)
}

func TestParseNestingLimit(t *testing.T) {
	src := ""
	for i := 0; i < maxRecursion+5; i++ {
		src += "{{if .}}"
	}
	_, err := ParseDefault(src, "deep")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum nesting depth")
}

func TestParseFuzzedInputDoesNotPanic(t *testing.T) {
	pieces := []string{
		"{{", "}}", "{{-", "-}}", "if ", "else ", "end", "range ", "with ", "for ", " in ",
		"define ", "block ", "template ", "break", "continue", `"n"`, ".A", ".", "$", "$x",
		":=", "=", "|", "(", ")", "[", "]", "1", ",", " ", "x",
	}
	f := fuzz.New().RandSource(testutil.RandSource(t)).NilChance(0).Funcs(func(s *string, c fuzz.Continue) {
		n := c.Intn(25)
		for i := 0; i < n; i++ {
			*s += pieces[c.Intn(len(pieces))]
		}
	})

	for i := 0; i < 1000; i++ {
		var src string
		f.Fuzz(&src)
		assert.NotPanics(t, func() {
			_, _ = ParseDefault(src, "fuzz")
		}, "source: %q", src)
	}
}
