// Package compile turns pipeline expressions into callables.
//
// Compilation walks the tree once and composes one closure per node. The
// resulting Func holds no state between invocations and may be called
// concurrently; each invocation evaluates call arguments innermost first and
// hands them to the resolved implementation handle.
package compile

import (
	"fmt"

	apperrors "github.com/idg10/rxrewrite/errors"
	"github.com/idg10/rxrewrite/expr"
	"github.com/idg10/rxrewrite/rewrite"
)

// Func is a compiled pipeline. It maps an input stream to the output stream
// of the pipeline's execution model.
type Func func(input any) (any, error)

type eval func(input any) (any, error)

// Compile compiles a rewritten pipeline.
func Compile(p *rewrite.Pipeline) (Func, error) {
	if p == nil {
		return nil, apperrors.MalformedExpression("nothing to compile")
	}
	return Lambda(p.Lambda())
}

// Lambda compiles an expression in its own execution model.
func Lambda(l *expr.Lambda) (Func, error) {
	if l == nil {
		return nil, apperrors.MalformedExpression("nothing to compile")
	}
	c := &compiler{param: l.Param(), memo: make(map[expr.Node]eval)}
	body, err := c.compile(l.Body())
	if err != nil {
		return nil, err
	}
	return Func(body), nil
}

type compiler struct {
	param *expr.Parameter
	memo  map[expr.Node]eval
}

func (c *compiler) compile(n expr.Node) (eval, error) {
	if fn, ok := c.memo[n]; ok {
		return fn, nil
	}

	var fn eval
	switch n := n.(type) {
	case *expr.Parameter:
		if n != c.param {
			return nil, apperrors.MalformedExpression("expression references foreign parameter %q", n.Name())
		}
		fn = func(input any) (any, error) { return input, nil }
	case *expr.Value:
		v := n.Get()
		fn = func(any) (any, error) { return v, nil }
	case *expr.Call:
		call, err := c.compileCall(n)
		if err != nil {
			return nil, err
		}
		fn = call
	default:
		return nil, apperrors.MalformedExpression("unsupported node %T", n)
	}

	c.memo[n] = fn
	return fn, nil
}

func (c *compiler) compileCall(n *expr.Call) (eval, error) {
	impl := n.Impl()
	if impl == nil {
		return nil, apperrors.MalformedExpression("call %s has no implementation", n.Name())
	}

	args := make([]eval, n.NumArgs())
	for i := range args {
		fn, err := c.compile(n.Arg(i).Node)
		if err != nil {
			return nil, err
		}
		args[i] = fn
	}

	name := n.Name()
	return func(input any) (any, error) {
		values := make([]any, len(args))
		for i, arg := range args {
			v, err := arg(input)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		out, err := impl(values)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return out, nil
	}, nil
}

// Typed wraps f with static input and output types.
func Typed[In, Out any](f Func) func(In) (Out, error) {
	return func(in In) (Out, error) {
		var zero Out
		v, err := f(in)
		if err != nil {
			return zero, err
		}
		out, ok := v.(Out)
		if !ok {
			return zero, apperrors.Internal(fmt.Errorf("pipeline produced %T, want %s", v, expr.TypeName[Out]()))
		}
		return out, nil
	}
}
