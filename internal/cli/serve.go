package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/idg10/rxrewrite/catalog"
	"github.com/idg10/rxrewrite/engine"
	"github.com/idg10/rxrewrite/httpapi"
	"github.com/idg10/rxrewrite/loader"
	"github.com/idg10/rxrewrite/logger"
	"github.com/idg10/rxrewrite/resilience"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve pipeline inspection and execution over HTTP until interrupted.
Named pipelines are loaded from the configured pipeline directories.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, rootOpts, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config server.addr)")
	return cmd
}

func runServe(cmd *cobra.Command, opts *RootOptions, addr string) error {
	out := newOutput(cmd, opts)
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, cmd, opts)
	if err != nil {
		return out.Fail(ExitCommandError, err)
	}
	defer a.close(context.WithoutCancel(ctx))

	if addr != "" {
		a.cfg.Server.Addr = addr
	}
	mode, err := engine.ParseMode(a.cfg.Engine.Mode)
	if err != nil {
		return out.Fail(ExitCommandError, err)
	}

	runs := resilience.NewBulkhead(resilience.BulkheadConfig{
		Name:          "pipeline runner",
		MaxConcurrent: a.cfg.Server.MaxConcurrentRuns,
		MaxWait:       a.cfg.Server.RunQueueWait,
		OnReject: func(name string, err error) {
			a.log.Warn("Run rejected", logger.MergeWithError(logger.Fields("bulkhead", name), err))
		},
	})

	h := httpapi.NewHandler(a.engine,
		httpapi.WithDefinitions(loader.NewFileLoader(a.cfg.Pipelines.Dirs...)),
		httpapi.WithFuncs(catalog.DefaultFuncs()),
		httpapi.WithMode(mode),
		httpapi.WithRunTimeout(a.cfg.Server.RunTimeout),
		httpapi.WithBulkhead(runs),
		httpapi.WithLogger(a.base),
	)
	srv := httpapi.New(a.cfg.Server, h, a.base)
	if err := srv.Start(ctx); err != nil {
		return out.Fail(ExitFailure, err)
	}

	<-ctx.Done()
	a.log.Info("Shutdown signal received")
	if err := srv.Stop(context.WithoutCancel(ctx)); err != nil {
		return out.Fail(ExitFailure, err)
	}
	return nil
}
