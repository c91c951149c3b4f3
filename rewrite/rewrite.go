package rewrite

import (
	apperrors "github.com/idg10/rxrewrite/errors"
	"github.com/idg10/rxrewrite/expr"
	"github.com/idg10/rxrewrite/logger"
)

// Pipeline is a pipeline expression rewritten into a target execution model.
// It is immutable.
type Pipeline struct {
	source *expr.Lambda
	lambda *expr.Lambda
	model  expr.Model
}

// Lambda returns the rewritten expression.
func (p *Pipeline) Lambda() *expr.Lambda { return p.lambda }

// Source returns the expression the pipeline was rewritten from.
func (p *Pipeline) Source() *expr.Lambda { return p.source }

// Model returns the execution model of the rewritten expression.
func (p *Pipeline) Model() expr.Model { return p.model }

func (p *Pipeline) String() string { return p.lambda.String() }

// Rewriter rewrites pipelines into the model of its target resolver.
// It holds no per-rewrite state and is safe for concurrent use.
type Rewriter struct {
	target expr.Resolver
	log    *logger.Logger
}

// Option configures a Rewriter.
type Option func(*Rewriter)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logger.Logger) Option {
	return func(r *Rewriter) { r.log = l.WithComponent("rewrite") }
}

// New creates a Rewriter that resolves operators through target.
func New(target expr.Resolver, opts ...Option) *Rewriter {
	r := &Rewriter{target: target, log: logger.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Target returns the model pipelines are rewritten into.
func (r *Rewriter) Target() expr.Model { return r.target.Model() }

// Rewrite produces the equivalent of l in the target model.
func (r *Rewriter) Rewrite(l *expr.Lambda) (*Pipeline, error) {
	if l == nil {
		return nil, apperrors.MalformedExpression("nothing to rewrite")
	}

	model := r.target.Model()
	w := &walker{
		target: r.target,
		model:  model,
		from:   l.Param(),
		to:     expr.NewParameter(l.Param().Name(), l.Input().In(model)),
		memo:   make(map[expr.Node]expr.Node),
	}

	body, err := w.rewrite(l.Body())
	if err != nil {
		r.log.Warn("rewrite failed", logger.MergeWithError(logger.Fields(
			logger.FieldPipeline, l.String(),
			logger.FieldModel, model.String(),
		), err))
		return nil, err
	}

	lambda, err := expr.NewLambda(w.to, body)
	if err != nil {
		return nil, apperrors.MalformedExpression("%v", err)
	}

	r.log.Debug("pipeline rewritten", logger.Fields(
		logger.FieldPipeline, lambda.String(),
		logger.FieldModel, model.String(),
		"calls", expr.CountCalls(body),
	))
	return &Pipeline{source: l, lambda: lambda, model: model}, nil
}

// walker carries the state of one rewrite.
type walker struct {
	target expr.Resolver
	model  expr.Model
	from   *expr.Parameter
	to     *expr.Parameter
	memo   map[expr.Node]expr.Node
}

func (w *walker) rewrite(n expr.Node) (expr.Node, error) {
	if done, ok := w.memo[n]; ok {
		return done, nil
	}

	var out expr.Node
	switch n := n.(type) {
	case *expr.Parameter:
		if n != w.from {
			return nil, apperrors.MalformedExpression("expression references unbound parameter %q", n.Name())
		}
		out = w.to
	case *expr.Value:
		out = n
	case *expr.Call:
		call, err := w.rewriteCall(n)
		if err != nil {
			return nil, err
		}
		out = call
	default:
		return nil, apperrors.MalformedExpression("unsupported node %T", n)
	}

	w.memo[n] = out
	return out, nil
}

func (w *walker) rewriteCall(c *expr.Call) (*expr.Call, error) {
	args := make([]expr.Node, c.NumArgs())
	shapes := make([]expr.Shape, c.NumArgs())
	for i := range args {
		a := c.Arg(i)
		n, err := w.rewrite(a.Node)
		if err != nil {
			return nil, err
		}
		args[i] = n
		shapes[i] = a.Shape.In(w.model)
	}

	op, err := w.target.Resolve(c.Name(), shapes)
	if err != nil {
		return nil, err
	}

	if want := c.Shape().In(w.model); op.Result != want {
		return nil, apperrors.NoMatchingOperator(w.model.String(), c.Name(), expr.ShapeStrings(shapes)).
			WithDetail("result", op.Result.String()).
			WithDetail("expected_result", want.String())
	}
	return expr.CallOf(op, args), nil
}
