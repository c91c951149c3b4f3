package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/idg10/rxrewrite/logger"
)

// RunResult is the result of the run command.
type RunResult struct {
	Name   string `json:"name"`
	Mode   string `json:"mode"`
	Values []any  `json:"values"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		mode    string
		values  []string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run <file|name>",
		Short: "Run a pipeline over a list of values",
		Long: `Prepare a pipeline and run it over the given input values, printing every
value it produces. Values are parsed as the pipeline's input type.`,
		Example: `  rxrewrite run pipelines/average-evens.yaml --values 1,2,3,4
  rxrewrite run average-evens --values 1,2,3,4 --mode direct --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, rootOpts, args[0], mode, values, timeout)
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "", "execution mode: rewrite or direct (default from config)")
	cmd.Flags().StringSliceVar(&values, "values", nil, "comma-separated input values")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "bound on the run (default from config server.run_timeout)")
	return cmd
}

func runRun(cmd *cobra.Command, opts *RootOptions, arg, mode string, values []string, timeout time.Duration) error {
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

	if timeout <= 0 {
		timeout = a.cfg.Server.RunTimeout
	}
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	out.VerboseLog("Running %s in %s mode over %d value(s)", def.Name, plan.Mode(), len(values))
	a.log.Debug("Running pipeline", logger.Fields(
		logger.FieldPipeline, def.Name,
		"mode", plan.Mode().String(),
		"values", len(values),
	))
	got, err := plan.Run(runCtx, values)
	if err != nil {
		return out.Fail(exitCodeFor(err), err)
	}
	if got == nil {
		got = []any{}
	}

	result := RunResult{Name: def.Name, Mode: plan.Mode().String(), Values: got}
	return out.Success(result, func(w io.Writer) {
		for _, v := range got {
			fmt.Fprintln(w, v)
		}
	})
}
