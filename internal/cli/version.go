package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	texttemplate "github.com/yetanotherchris/text-template"
)

type VersionOptions struct{}

func NewVersionOptions() *VersionOptions {
	return &VersionOptions{}
}

func NewVersionCmd(o *VersionOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		RunE:  func(cmd *cobra.Command, _ []string) error { return o.Run(cmd) },
	}
	return cmd
}

func (o *VersionOptions) Run(cmd *cobra.Command) error {
	fmt.Fprintf(cmd.OutOrStdout(), "tmpl version %s\n", texttemplate.Version)

	return nil
}
