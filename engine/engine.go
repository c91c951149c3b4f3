package engine

import (
	"context"
	"sync"
	"time"

	"github.com/idg10/rxrewrite/adapter"
	"github.com/idg10/rxrewrite/catalog"
	"github.com/idg10/rxrewrite/compile"
	apperrors "github.com/idg10/rxrewrite/errors"
	"github.com/idg10/rxrewrite/expr"
	"github.com/idg10/rxrewrite/logger"
	"github.com/idg10/rxrewrite/observability"
	"github.com/idg10/rxrewrite/registry"
	"github.com/idg10/rxrewrite/rewrite"
)

// Engine prepares pipelines written against the push model for execution.
// It is safe for concurrent use.
type Engine struct {
	source   expr.Resolver
	target   expr.Resolver
	rewriter *rewrite.Rewriter

	log         *logger.Logger
	metrics     *observability.Metrics
	tracing     bool
	cachePlans  bool
	adapterOpts []adapter.Option

	plans sync.Map // planKey -> *Plan
}

type planKey struct {
	lambda *expr.Lambda
	mode   Mode
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMetrics records rewrite, operator and adapter metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTracing enables spans around operator applications of the default
// registries. Rewrite and compile spans are always started; they are no-ops
// without a tracer provider.
func WithTracing(enabled bool) Option {
	return func(e *Engine) { e.tracing = enabled }
}

// WithPlanCache controls whether prepared plans are reused. Enabled by default.
func WithPlanCache(enabled bool) Option {
	return func(e *Engine) { e.cachePlans = enabled }
}

// WithAdapterOptions configures the adapters wrapped around rewritten
// pipelines.
func WithAdapterOptions(opts ...adapter.Option) Option {
	return func(e *Engine) { e.adapterOpts = append(e.adapterOpts, opts...) }
}

// New creates an engine over a push resolver, used to check pipelines, and an
// async-push resolver pipelines are rewritten against.
func New(source, target expr.Resolver, opts ...Option) (*Engine, error) {
	if source == nil || source.Model() != expr.Push {
		return nil, apperrors.InvalidInput("source", "must resolve push operators")
	}
	if target == nil || target.Model() != expr.AsyncPush {
		return nil, apperrors.InvalidInput("target", "must resolve async-push operators")
	}
	e := newEngine(opts)
	e.source = source
	e.target = target
	e.rewriter = rewrite.New(target, rewrite.WithLogger(e.log))
	return e, nil
}

// NewDefault creates an engine over the catalog registries, instrumented
// according to opts.
func NewDefault(opts ...Option) *Engine {
	e := newEngine(opts)

	regs := []*registry.Registry{catalog.Push(), catalog.AsyncPush()}
	for _, r := range regs {
		r.Use(registry.WithLogging(e.log.WithComponent("registry")))
		if e.metrics != nil {
			r.Use(registry.WithMetrics(e.metrics))
		}
		if e.tracing {
			r.Use(registry.WithTracing(observability.SpanOperator))
		}
	}

	e.source = regs[0]
	e.target = regs[1]
	e.rewriter = rewrite.New(e.target, rewrite.WithLogger(e.log))
	return e
}

func newEngine(opts []Option) *Engine {
	e := &Engine{log: logger.Nop(), cachePlans: true}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics != nil {
		e.adapterOpts = append([]adapter.Option{adapter.WithMetrics(e.metrics)}, e.adapterOpts...)
	}
	e.adapterOpts = append([]adapter.Option{adapter.WithLogger(e.log)}, e.adapterOpts...)
	e.log = e.log.WithComponent("engine")
	return e
}

// Source returns the resolver pipelines are written against.
func (e *Engine) Source() expr.Resolver { return e.source }

// Target returns the resolver pipelines are rewritten against.
func (e *Engine) Target() expr.Resolver { return e.target }

// Prepare rewrites (ModeRewrite) or only compiles (ModeDirect) l. Prepared
// plans are cached per expression and mode.
func (e *Engine) Prepare(ctx context.Context, l *expr.Lambda, mode Mode) (*Plan, error) {
	if l == nil {
		return nil, apperrors.MalformedExpression("nothing to prepare")
	}
	if !e.cachePlans {
		return e.PrepareUncached(ctx, l, mode)
	}
	key := planKey{lambda: l, mode: mode}
	if p, ok := e.plans.Load(key); ok {
		return p.(*Plan), nil
	}
	p, err := e.PrepareUncached(ctx, l, mode)
	if err != nil {
		return nil, err
	}
	actual, _ := e.plans.LoadOrStore(key, p)
	return actual.(*Plan), nil
}

// PrepareUncached is Prepare without the plan cache, for expressions that
// are built once and then dropped, such as inline request definitions.
func (e *Engine) PrepareUncached(ctx context.Context, l *expr.Lambda, mode Mode) (*Plan, error) {
	if l == nil {
		return nil, apperrors.MalformedExpression("nothing to prepare")
	}
	start := time.Now()
	p, err := e.prepare(ctx, l, mode)
	status := "ok"
	if err != nil {
		status = "error"
		code := string(apperrors.ErrCodeInternal)
		if appErr, ok := apperrors.AsAppError(err); ok {
			code = string(appErr.Code)
		}
		e.metrics.RecordError(ctx, code, "engine")
	}
	e.metrics.RecordRewrite(ctx, mode.Model().String(), status, time.Since(start))
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (e *Engine) prepare(ctx context.Context, l *expr.Lambda, mode Mode) (*Plan, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanRewrite)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrPipeline, l.String())
	observability.SetSpanAttribute(ctx, observability.AttrModel, mode.Model().String())
	observability.SetSpanAttribute(ctx, observability.AttrCalls, expr.CountCalls(l.Body()))

	p, err := e.build(ctx, l, mode)
	if err != nil {
		observability.SetSpanError(ctx, err)
		observability.SetSpanAttribute(ctx, observability.AttrStatus, "error")
		e.log.Warn("pipeline not prepared", logger.MergeWithError(logger.Fields(
			logger.FieldPipeline, l.String(),
			"mode", mode.String(),
		), err))
		return nil, err
	}
	observability.SetSpanAttribute(ctx, observability.AttrStatus, "ok")
	e.log.Debug("pipeline prepared", logger.Fields(
		logger.FieldPipeline, p.Lambda().String(),
		logger.FieldModel, p.Lambda().Input().Model.String(),
		"mode", mode.String(),
	))
	return p, nil
}

func (e *Engine) build(ctx context.Context, l *expr.Lambda, mode Mode) (*Plan, error) {
	if in := l.Input(); !in.IsStream() || in.Model != expr.Push {
		return nil, apperrors.MalformedExpression("pipeline input must be a push stream, got %s", in)
	}
	if out := l.Output(); !out.IsStream() || out.Model != expr.Push {
		return nil, apperrors.MalformedExpression("pipeline output must be a push stream, got %s", out)
	}

	executed := l
	switch mode {
	case ModeRewrite:
		p, err := e.rewriter.Rewrite(l)
		if err != nil {
			return nil, err
		}
		executed = p.Lambda()
	case ModeDirect:
	default:
		return nil, apperrors.InvalidInput("mode", "unknown mode "+mode.String())
	}

	cctx, span := observability.StartSpan(ctx, observability.SpanCompile)
	fn, err := compile.Lambda(executed)
	if err != nil {
		observability.SetSpanError(cctx, err)
	}
	span.End()
	if err != nil {
		return nil, err
	}

	return &Plan{
		mode:        mode,
		source:      l,
		lambda:      executed,
		fn:          fn,
		adapterOpts: e.adapterOpts,
	}, nil
}

// CachedPlans reports the number of cached plans.
func (e *Engine) CachedPlans() int {
	n := 0
	e.plans.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}
