// Package cli implements the tmpl command line tool: it renders template
// files against YAML, JSON or TOML data and can re-render on change.
package cli

import (
	"github.com/cppforlife/cobrautil"
	"github.com/spf13/cobra"

	texttemplate "github.com/yetanotherchris/text-template"
)

func NewDefaultTmplCmd() *cobra.Command {
	return NewTmplCmd(NewRenderOptions())
}

func NewTmplCmd(o *RenderOptions) *cobra.Command {
	cmd := NewRenderCmd(o)

	cmd.Use = "tmpl"
	cmd.Aliases = nil
	cmd.Version = texttemplate.Version
	cmd.Short = "tmpl renders text templates"
	cmd.Long = `tmpl renders text templates against YAML, JSON or TOML data.

Template files are concatenated in the order given, so a file holding
{{define}} blocks can precede the page that calls them.`

	// Affects children as well
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	cmd.DisableAutoGenTag = true

	cmd.AddCommand(NewVersionCmd(NewVersionOptions()))
	cmd.AddCommand(NewRenderCmd(NewRenderOptions()))

	cobrautil.VisitCommands(cmd, cobrautil.ReconfigureCmdWithSubcmd,
		cobrautil.DisallowExtraArgs, cobrautil.WrapRunEForCmd(cobrautil.ResolveFlagsForCmd))

	return cmd
}
