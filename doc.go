// Package texttemplate implements a pipeline-oriented text template
// language with `{{ ... }}` actions.
//
// # Quick Start
//
//	tmpl, err := texttemplate.New("hello").Parse("Hello {{ .Name }}!")
//	if err != nil {
//	    return err
//	}
//	out, err := tmpl.Execute(map[string]any{"Name": "World"})
//	// out == "Hello World!"
//
// # Template Syntax
//
// Text outside actions is copied to the output unchanged. An action holds a
// pipeline or a control keyword:
//
//	{{ .Field.Sub }}                      field of the current value
//	{{ $.Title }}                         field of the root data
//	{{ $name }}                           variable
//	{{ .Items[0] }} {{ .Map["key"] }}     index and key access
//	{{ .Name | lower | html }}            pipeline
//	{{ $x := .Count }} {{ $x = 2 }}       declaration and assignment
//	{{ if .A }}..{{ else if .B }}..{{ else }}..{{ end }}
//	{{ range $i, $v := .Items }}..{{ else }}..{{ end }}
//	{{ for item in .Items }}..{{ end }}
//	{{ with .User }}..{{ else with .Guest }}..{{ end }}
//	{{ define "name" }}..{{ end }}
//	{{ block "name" . }}default{{ end }}
//	{{ template "name" .User }}
//	{{ break }} {{ continue }}
//	{{/* comment */}}
//
// A `-` directly inside a delimiter, followed or preceded by a space, trims
// the adjacent whitespace of the surrounding text: `A  {{- .X -}}  B`.
//
// A path that cannot be resolved renders as the empty string and is false
// in conditions. Unknown pipeline functions, bad arguments to built-ins and
// malformed format strings are errors.
//
// # Functions
//
// Built-in functions: and, call, eq, ge, gt, html, index, join, js, le,
// len, lower, lt, ne, not, or, print, printf, println, slice, urlquery.
// Templates add their own with Funcs; RegisterFunction adds process-wide
// functions reachable through call:
//
//	texttemplate.RegisterFunction("double", func(n int) int { return n * 2 })
//	tmpl := texttemplate.New("t").Funcs(texttemplate.FuncMap{
//	    "upper": strings.ToUpper,
//	})
//
// # Errors
//
// Parse and Execute return *Error values carrying an ErrorKind, the
// template name and the position of the failing action. Formatting an
// *Error with %+v adds an excerpt of the template source.
package texttemplate

// Version is the version of the module.
const Version = "0.3.0"
