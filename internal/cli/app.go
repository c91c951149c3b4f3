package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/idg10/rxrewrite/adapter"
	"github.com/idg10/rxrewrite/catalog"
	"github.com/idg10/rxrewrite/config"
	"github.com/idg10/rxrewrite/engine"
	apperrors "github.com/idg10/rxrewrite/errors"
	"github.com/idg10/rxrewrite/loader"
	"github.com/idg10/rxrewrite/logger"
	"github.com/idg10/rxrewrite/observability"
	"github.com/idg10/rxrewrite/version"
)

// Loggers the CLI registers for its own output. Library components tag the
// base logger themselves.
const (
	componentCLI       = "cli"
	componentTelemetry = "telemetry"
)

// app is what a command needs after configuration is loaded.
type app struct {
	cfg      *config.Config
	base     *logger.Logger
	log      *logger.Logger
	engine   *engine.Engine
	shutdown []func(context.Context) error
}

func newOutput(cmd *cobra.Command, opts *RootOptions) *Output {
	return &Output{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// setup loads configuration, builds the logger, starts telemetry when
// enabled and creates the engine. Logs go to the command's error stream.
func setup(ctx context.Context, cmd *cobra.Command, opts *RootOptions) (*app, error) {
	var loadOpts []config.LoaderOption
	if opts.ConfigFile != "" {
		if _, err := os.Stat(opts.ConfigFile); err != nil {
			return nil, apperrors.NotFound("config file", opts.ConfigFile).WithCause(err)
		}
		loadOpts = append(loadOpts, config.WithConfigFile(opts.ConfigFile))
	}
	if opts.EnvFile != "" {
		if _, err := os.Stat(opts.EnvFile); err != nil {
			return nil, apperrors.NotFound("env file", opts.EnvFile).WithCause(err)
		}
		loadOpts = append(loadOpts, config.WithEnvFile(opts.EnvFile))
	}
	cfg, err := config.Load(loadOpts...)
	if err != nil {
		return nil, err
	}
	if cfg.Version == "" {
		cfg.Version = version.Short()
	}
	if opts.Verbose {
		cfg.Logging.Level = "debug"
	}

	log := logger.NewWithWriter(&cfg.Logging, cfg.Name, cmd.ErrOrStderr())
	logger.SetGlobalLogger(log)
	logger.RegisterComponents(log, componentCLI, componentTelemetry)
	a := &app{cfg: cfg, base: log, log: logger.Get(componentCLI)}

	var metrics *observability.Metrics
	if cfg.Observability.Tracing {
		tp, err := observability.InitTracer(ctx, cfg.TracerConfig())
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		a.shutdown = append(a.shutdown, tp.Shutdown)
	}
	if cfg.Observability.Metrics {
		mp, err := observability.InitMeter(ctx, cfg.MeterConfig())
		if err != nil {
			a.close(ctx)
			return nil, apperrors.Internal(err)
		}
		a.shutdown = append(a.shutdown, mp.Shutdown)
		if metrics, err = observability.NewMetrics(mp.Meter(version.Name)); err != nil {
			a.close(ctx)
			return nil, apperrors.Internal(err)
		}
	}

	a.engine = engine.NewDefault(
		engine.WithLogger(log),
		engine.WithMetrics(metrics),
		engine.WithTracing(cfg.Engine.TraceOperators),
		engine.WithPlanCache(cfg.Engine.CachePlans),
		engine.WithAdapterOptions(
			adapter.WithSubscribeTimeout(cfg.Adapter.SubscribeTimeout),
			adapter.WithDisposeTimeout(cfg.Adapter.DisposeTimeout),
		),
	)
	return a, nil
}

// close flushes and stops the telemetry providers.
func (a *app) close(ctx context.Context) {
	var errs []error
	for i := len(a.shutdown) - 1; i >= 0; i-- {
		errs = append(errs, a.shutdown[i](ctx))
	}
	a.shutdown = nil
	if err := errors.Join(errs...); err != nil {
		logger.Get(componentTelemetry).Warn("Telemetry shutdown failed", logger.MergeWithError(nil, err))
	}
}

// mode returns the mode named by flag, or the configured default.
func (a *app) mode(flag string) (engine.Mode, error) {
	if flag == "" {
		flag = a.cfg.Engine.Mode
	}
	return engine.ParseMode(flag)
}

// definition loads arg as a file path, or else as a pipeline name from the
// configured directories.
func (a *app) definition(arg string) (*loader.Definition, error) {
	if _, err := os.Stat(arg); err == nil {
		return loader.LoadFile(arg)
	}
	return loader.NewFileLoader(a.cfg.Pipelines.Dirs...).Load(arg)
}

// prepare loads, builds and prepares the pipeline named by arg.
func (a *app) prepare(ctx context.Context, arg, modeFlag string) (*loader.Definition, *engine.Plan, error) {
	mode, err := a.mode(modeFlag)
	if err != nil {
		return nil, nil, err
	}
	def, err := a.definition(arg)
	if err != nil {
		return nil, nil, err
	}
	l, err := loader.Build(def, a.engine.Source(), catalog.DefaultFuncs())
	if err != nil {
		return nil, nil, err
	}
	plan, err := a.engine.Prepare(logger.ContextWithPipeline(ctx, def.Name), l, mode)
	if err != nil {
		return nil, nil, err
	}
	return def, plan, nil
}

// exitCodeFor picks the exit code of a failed prepare or run.
func exitCodeFor(err error) int {
	for _, code := range []apperrors.ErrorCode{apperrors.ErrCodeNotFound, apperrors.ErrCodeInvalidInput} {
		if apperrors.IsCode(err, code) {
			return ExitCommandError
		}
	}
	return ExitFailure
}
