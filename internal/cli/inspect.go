package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/idg10/rxrewrite/engine"
	"github.com/idg10/rxrewrite/expr"
)

// Inspection is the result of the inspect command.
type Inspection struct {
	Name string `json:"name"`
	engine.Description
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "inspect <file|name>",
		Short: "Show a pipeline before and after rewriting",
		Long: `Load a pipeline definition, prepare it and print the expression as written
and as executed, with the shape of every node.

The argument is a definition file, or the name of a definition in the
configured pipeline directories.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, rootOpts, args[0], mode)
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "", "execution mode: rewrite or direct (default from config)")
	return cmd
}

func runInspect(cmd *cobra.Command, opts *RootOptions, arg, mode string) error {
	out := newOutput(cmd, opts)
	ctx := cmd.Context()

	a, err := setup(ctx, cmd, opts)
	if err != nil {
		return out.Fail(ExitCommandError, err)
	}
	defer a.close(ctx)

	def, plan, err := a.prepare(ctx, arg, mode)
	if err != nil {
		return out.Fail(exitCodeFor(err), err)
	}
	out.VerboseLog("Prepared %s in %s mode", def.Name, plan.Mode())

	result := Inspection{Name: def.Name, Description: plan.Describe()}
	return out.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "pipeline: %s\n", result.Name)
		fmt.Fprintf(w, "mode:     %s\n", result.Mode)
		fmt.Fprintf(w, "type:     %s -> %s\n", result.Input, result.Output)
		fmt.Fprintf(w, "source:   %s\n", result.Source)
		fmt.Fprintf(w, "prepared: %s\n", result.Prepared)
		fmt.Fprintln(w)
		writeTree(w, result.PreparedTree, 0)
	})
}

// writeTree prints t one node per line, children indented.
func writeTree(w io.Writer, t expr.Tree, depth int) {
	indent := strings.Repeat("  ", depth)
	switch t.Kind {
	case "value":
		fmt.Fprintf(w, "%s%s : %s\n", indent, t.Value, t.Shape)
	default:
		fmt.Fprintf(w, "%s%s : %s\n", indent, t.Name, t.Shape)
	}
	for _, child := range t.Args {
		writeTree(w, child, depth+1)
	}
}
