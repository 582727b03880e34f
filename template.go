package texttemplate

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/yetanotherchris/text-template/lexer"
	"github.com/yetanotherchris/text-template/parser"
	"github.com/yetanotherchris/text-template/value"
)

// DefaultMaxDepth is the default limit on nested template calls.
const DefaultMaxDepth = 1000

// Template is a compiled template together with its functions, delimiters
// and the named templates it can call.
//
// A Template may be executed concurrently. Each execution starts from a copy
// of the named-template registry, so define and block actions run during one
// execution are not seen by another.
type Template struct {
	name      string
	mu        sync.RWMutex
	tree      *parser.Tree
	source    string
	syntax    lexer.SyntaxConfig
	funcs     map[string]value.Func
	inherited map[string]*definition
	missing   value.MissingKey
	maxDepth  int
	fuel      uint64
	logger    *slog.Logger
}

// New allocates a new, empty template with the given name.
func New(name string) *Template {
	return &Template{
		name:      name,
		syntax:    lexer.DefaultSyntax(),
		funcs:     make(map[string]value.Func),
		inherited: make(map[string]*definition),
		maxDepth:  DefaultMaxDepth,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Must panics if err is non-nil and otherwise returns t.
//
//	var page = texttemplate.Must(texttemplate.New("page").Parse(src))
func Must(t *Template, err error) *Template {
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the name of the template.
func (t *Template) Name() string {
	return t.name
}

// Delims sets the action delimiters used by subsequent calls to Parse.
// Empty strings select the defaults `{{` and `}}`.
func (t *Template) Delims(left, right string) *Template {
	t.mu.Lock()
	t.syntax = t.syntax.WithDelims(left, right)
	t.mu.Unlock()
	return t
}

// Funcs adds the functions in funcs to the template's function table. A
// function with the name of a built-in replaces it. Funcs panics if a
// value is not a function with a supported signature.
func (t *Template) Funcs(funcs FuncMap) *Template {
	adapted, err := adaptFuncMap(funcs)
	if err != nil {
		panic(err)
	}
	t.mu.Lock()
	next := make(map[string]value.Func, len(t.funcs)+len(adapted))
	maps.Copy(next, t.funcs)
	maps.Copy(next, adapted)
	t.funcs = next
	t.mu.Unlock()
	return t
}

// Option sets execution options written as "key=value". The only key is
// missingkey, which accepts default, invalid, zero and error. Option panics
// on an unknown option.
func (t *Template) Option(opts ...string) *Template {
	for _, opt := range opts {
		key, val, ok := strings.Cut(opt, "=")
		if !ok || key != "missingkey" {
			panic(fmt.Sprintf("unrecognized option %q", opt))
		}
		missing, err := value.ParseMissingKey(val)
		if err != nil {
			panic(err)
		}
		t.mu.Lock()
		t.missing = missing
		t.mu.Unlock()
	}
	return t
}

// SetMaxDepth limits how deeply template calls may nest. Values below one
// restore the default.
func (t *Template) SetMaxDepth(depth int) *Template {
	if depth < 1 {
		depth = DefaultMaxDepth
	}
	t.mu.Lock()
	t.maxDepth = depth
	t.mu.Unlock()
	return t
}

// SetFuel limits the number of nodes and loop iterations one execution may
// evaluate. Zero means no limit.
func (t *Template) SetFuel(fuel uint64) *Template {
	t.mu.Lock()
	t.fuel = fuel
	t.mu.Unlock()
	return t
}

// SetLogger sets the logger receiving debug records about template
// registration and execution. A nil logger discards them.
func (t *Template) SetLogger(logger *slog.Logger) *Template {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	t.mu.Lock()
	t.logger = logger
	t.mu.Unlock()
	return t
}

// Parse parses text as the template body. Calling Parse again replaces the
// body; templates defined by the previous body stay callable.
func (t *Template) Parse(text string) (*Template, error) {
	t.mu.RLock()
	syntax := t.syntax
	t.mu.RUnlock()

	tree, err := parser.Parse(text, t.name, syntax)
	if err != nil {
		return nil, syntaxError(err, t.name, text)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tree != nil {
		next := make(map[string]*definition, len(t.inherited)+len(t.tree.Order))
		maps.Copy(next, t.inherited)
		for _, name := range t.tree.Order {
			next[name] = &definition{name: name, source: t.source, body: t.tree.Defines[name]}
		}
		t.inherited = next
	}
	t.tree = tree
	t.source = text
	t.logger.Debug("parsed template", "name", t.name, "defines", tree.Order)
	return t, nil
}

func syntaxError(err error, name, source string) *Error {
	perr, ok := err.(*parser.Error)
	if !ok {
		return NewError(ErrSyntax, err.Error()).WithName(name).WithSource(source).WithCause(err)
	}
	span := parser.Span{StartLine: perr.Line, StartCol: perr.Col, EndLine: perr.Line, EndCol: perr.Col + 1}
	return NewError(ErrSyntax, perr.Detail).
		WithSpan(span).
		WithName(name).
		WithSource(source).
		WithCause(err)
}

// ParseFiles reads the named files, concatenates their contents in order
// and parses the result.
func (t *Template) ParseFiles(paths ...string) (*Template, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("texttemplate: no files named in call to ParseFiles")
	}
	var b strings.Builder
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		b.Write(data)
	}
	return t.Parse(b.String())
}

// Execute renders the template against data and returns the output. Data
// is converted with value.FromAny.
func (t *Template) Execute(data any) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.tree == nil {
		return "", errorf(ErrInvalidOperation, "template %q is incomplete or empty", t.name)
	}
	root := &definition{name: t.name, source: t.source, body: t.tree.Root}
	return t.execute(root, data, false)
}

// ExecuteTo renders the template and writes the output to w. Nothing is
// written when execution fails.
func (t *Template) ExecuteTo(w io.Writer, data any) error {
	out, err := t.Execute(data)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// ExecuteTemplate renders the named template associated with t. Since the
// body of t does not run first, every template it defines is registered
// up front.
func (t *Template) ExecuteTemplate(name string, data any) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	def, ok := t.lookup(name)
	if !ok {
		return "", errorf(ErrTemplateNotFound, "no template %q associated with template %q", name, t.name)
	}
	return t.execute(def, data, true)
}

// execute runs def. With withDefines, the templates defined in the current
// tree are registered before def runs. Callers hold t.mu for reading.
func (t *Template) execute(def *definition, data any, withDefines bool) (string, error) {
	registry := make(map[string]*definition, len(t.inherited)+1)
	maps.Copy(registry, t.inherited)
	if t.tree != nil {
		if _, ok := registry[t.name]; !ok {
			registry[t.name] = &definition{name: t.name, source: t.source, body: t.tree.Root}
		}
		if withDefines {
			for _, name := range t.tree.Order {
				registry[name] = &definition{name: name, source: t.source, body: t.tree.Defines[name]}
			}
		}
	}

	root := value.FromAny(data)
	s := &state{
		name:     def.name,
		source:   def.source,
		root:     root,
		scopes:   []map[string]value.Value{{}},
		registry: registry,
		funcs:    t.funcs,
		missing:  t.missing,
		out:      &strings.Builder{},
		maxDepth: t.maxDepth,
		fuel:     newFuelTracker(t.fuel),
		logger:   t.logger,
	}

	if err := s.walk(root, def.body); err != nil {
		return "", err
	}
	t.logger.Debug("executed template", "name", def.name, "bytes", s.out.Len(), "fuel", s.fuel.consumedFuel())
	return s.out.String(), nil
}

// lookup finds a named template known before execution. Callers hold t.mu
// for reading.
func (t *Template) lookup(name string) (*definition, bool) {
	if t.tree != nil {
		if name == t.name {
			return &definition{name: t.name, source: t.source, body: t.tree.Root}, true
		}
		if body, ok := t.tree.Defines[name]; ok {
			return &definition{name: name, source: t.source, body: body}, true
		}
	}
	def, ok := t.inherited[name]
	return def, ok
}

// Lookup reports whether a template with the given name is associated
// with t.
func (t *Template) Lookup(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.lookup(name)
	return ok
}

// Templates returns the sorted names of all templates associated with t,
// including t itself once parsed.
func (t *Template) Templates() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := slices.Collect(maps.Keys(t.inherited))
	if t.tree != nil {
		names = append(names, t.name)
		names = append(names, t.tree.Order...)
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// DefinedTemplates returns a string listing the defined templates, prefixed
// by "; defined templates are: ". It returns the empty string if there are
// none. It is meant for error messages.
func (t *Template) DefinedTemplates() string {
	names := t.Templates()
	if len(names) == 0 {
		return ""
	}
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = fmt.Sprintf("%q", name)
	}
	return "; defined templates are: " + strings.Join(quoted, ", ")
}

// Clone returns a copy of the template sharing its parsed tree. Functions,
// options and named templates are copied, so the clone can be extended with
// Funcs and Parse without affecting t.
func (t *Template) Clone() *Template {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return &Template{
		name:      t.name,
		tree:      t.tree,
		source:    t.source,
		syntax:    t.syntax,
		funcs:     maps.Clone(t.funcs),
		inherited: maps.Clone(t.inherited),
		missing:   t.missing,
		maxDepth:  t.maxDepth,
		fuel:      t.fuel,
		logger:    t.logger,
	}
}
