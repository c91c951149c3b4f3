package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/idg10/rxrewrite/version"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			return newOutput(cmd, rootOpts).Success(info, func(w io.Writer) {
				fmt.Fprintln(w, info.String())
			})
		},
	}
}
