package cli

import (
	"strings"

	texttemplate "github.com/yetanotherchris/text-template"
	"github.com/yetanotherchris/text-template/internal/datafile"
	"github.com/yetanotherchris/text-template/value"
)

// dataFuncs let templates re-serialize parts of their data.
//
//	{{ toYAML .config }}
var dataFuncs = texttemplate.FuncMap{
	"toYAML": func(v value.Value) (string, error) {
		out, err := datafile.EncodeYAML(v)
		return strings.TrimSuffix(out, "\n"), err
	},
	"toTOML": func(v value.Value) (string, error) {
		out, err := datafile.EncodeTOML(v)
		return strings.TrimSuffix(out, "\n"), err
	},
	"fromYAML": func(s string) (value.Value, error) {
		return datafile.DecodeYAML([]byte(s))
	},
}
