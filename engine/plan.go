package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/idg10/rxrewrite/adapter"
	"github.com/idg10/rxrewrite/compile"
	apperrors "github.com/idg10/rxrewrite/errors"
	"github.com/idg10/rxrewrite/expr"
	"github.com/idg10/rxrewrite/push"
)

// Mode selects how a pipeline is executed.
type Mode int

const (
	// ModeRewrite rewrites the pipeline into the async-push model and adapts
	// it back to push at both ends.
	ModeRewrite Mode = iota
	// ModeDirect runs the pipeline in the push model as written.
	ModeDirect
)

func (m Mode) String() string {
	switch m {
	case ModeRewrite:
		return "rewrite"
	case ModeDirect:
		return "direct"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Model is the execution model the pipeline's operators run in.
func (m Mode) Model() expr.Model {
	if m == ModeDirect {
		return expr.Push
	}
	return expr.AsyncPush
}

// ParseMode parses "rewrite" or "direct". The empty string means rewrite.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rewrite":
		return ModeRewrite, nil
	case "direct":
		return ModeDirect, nil
	default:
		return 0, apperrors.InvalidInput("mode", fmt.Sprintf("%q is not one of rewrite, direct", s))
	}
}

// Plan is a prepared pipeline. It is immutable and may be applied any number
// of times; each application builds an independent stream.
type Plan struct {
	mode        Mode
	source      *expr.Lambda
	lambda      *expr.Lambda
	fn          compile.Func
	adapterOpts []adapter.Option
}

// Mode returns the mode the plan was prepared in.
func (p *Plan) Mode() Mode { return p.mode }

// Source returns the pipeline as written.
func (p *Plan) Source() *expr.Lambda { return p.source }

// Lambda returns the pipeline as executed: the rewritten expression in
// ModeRewrite, the source expression in ModeDirect.
func (p *Plan) Lambda() *expr.Lambda { return p.lambda }

// Input returns the element type of the input stream.
func (p *Plan) Input() string { return p.source.Input().Type }

// Output returns the element type of the output stream.
func (p *Plan) Output() string { return p.source.Output().Type }

// Description summarizes a plan for display.
type Description struct {
	Mode         string    `json:"mode"`
	Input        string    `json:"input"`
	Output       string    `json:"output"`
	Source       string    `json:"source"`
	Prepared     string    `json:"prepared"`
	SourceTree   expr.Tree `json:"source_tree"`
	PreparedTree expr.Tree `json:"prepared_tree"`
}

// Describe returns both forms of the pipeline with their shapes.
func (p *Plan) Describe() Description {
	return Description{
		Mode:         p.mode.String(),
		Input:        p.Input(),
		Output:       p.Output(),
		Source:       p.source.String(),
		Prepared:     p.lambda.String(),
		SourceTree:   expr.Describe(p.source.Body()),
		PreparedTree: expr.Describe(p.lambda.Body()),
	}
}

// Apply runs the plan over src, a push.Observable of the input element type,
// and returns a push.Observable of the output element type. Streams of
// element types without an adapter bridge can only be applied through a
// typed Query.
func (p *Plan) Apply(src any) (any, error) {
	if p.mode == ModeDirect {
		return p.fn(src)
	}

	in, err := adapter.LookupBridge(p.Input())
	if err != nil {
		return nil, err
	}
	out, err := adapter.LookupBridge(p.Output())
	if err != nil {
		return nil, err
	}

	async, err := in.ToAsync(src, p.inputOptions()...)
	if err != nil {
		return nil, err
	}
	result, err := p.fn(async)
	if err != nil {
		return nil, err
	}
	return out.ToPush(result, p.outputOptions()...)
}

// Stream parses raw input values and returns the plan's output as a stream
// of untyped values. Nothing is subscribed until the caller subscribes.
func (p *Plan) Stream(raw []string) (push.Observable[any], error) {
	in, err := adapter.LookupBridge(p.Input())
	if err != nil {
		return nil, err
	}
	out, err := adapter.LookupBridge(p.Output())
	if err != nil {
		return nil, err
	}

	src, err := in.FromValues(raw)
	if err != nil {
		return nil, err
	}
	result, err := p.Apply(src)
	if err != nil {
		return nil, err
	}
	return out.Erase(result)
}

// Run parses raw input values, runs the plan over them and collects the
// output. An error notification from the pipeline is reported as a
// NotificationFailure.
func (p *Plan) Run(ctx context.Context, raw []string) ([]any, error) {
	erased, err := p.Stream(raw)
	if err != nil {
		return nil, err
	}
	values, err := push.Collect(ctx, erased)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.Timeout("run").WithCause(err)
		}
		return nil, Failure(err)
	}
	return values, nil
}

// Failure converts an error that ended a stream into an error reportable
// outside it. Subscription failures keep their code; any other error
// notification becomes a NotificationFailure.
func Failure(err error) error {
	if apperrors.IsCode(err, apperrors.ErrCodeSubscriptionFailure) {
		return err
	}
	return apperrors.NotificationFailure(err)
}

func (p *Plan) inputOptions() []adapter.Option {
	return append([]adapter.Option{adapter.WithName(p.source.Param().Name())}, p.adapterOpts...)
}

func (p *Plan) outputOptions() []adapter.Option {
	return append([]adapter.Option{adapter.WithName(expr.Format(p.source.Body()))}, p.adapterOpts...)
}
