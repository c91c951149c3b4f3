package engine

import (
	"context"
	"fmt"

	"github.com/idg10/rxrewrite/adapter"
	"github.com/idg10/rxrewrite/asyncpush"
	apperrors "github.com/idg10/rxrewrite/errors"
	"github.com/idg10/rxrewrite/expr"
	"github.com/idg10/rxrewrite/push"
)

// Query is a compiled pipeline usable by push callers.
type Query[TIn, TOut any] func(push.Observable[TIn]) push.Observable[TOut]

// RewriteAndCompile rewrites l into the async-push model, compiles it and
// wraps it with adapters, so the returned query takes and returns push
// streams. Rewrite failures are returned here, before any subscription.
func RewriteAndCompile[TIn, TOut any](e *Engine, l *expr.Lambda) (Query[TIn, TOut], error) {
	plan, err := prepareTyped[TIn, TOut](e, l, ModeRewrite)
	if err != nil {
		return nil, err
	}

	in, out := plan.inputOptions(), plan.outputOptions()
	return func(src push.Observable[TIn]) push.Observable[TOut] {
		result, err := plan.fn(adapter.ToAsync(src, in...))
		if err != nil {
			return push.Throw[TOut](err)
		}
		async, ok := result.(asyncpush.Observable[TOut])
		if !ok {
			return push.Throw[TOut](resultMismatch[TOut](result))
		}
		return adapter.ToPush(async, out...)
	}, nil
}

// CompileDirect compiles l in the push model without rewriting it.
func CompileDirect[TIn, TOut any](e *Engine, l *expr.Lambda) (Query[TIn, TOut], error) {
	plan, err := prepareTyped[TIn, TOut](e, l, ModeDirect)
	if err != nil {
		return nil, err
	}

	return func(src push.Observable[TIn]) push.Observable[TOut] {
		result, err := plan.fn(src)
		if err != nil {
			return push.Throw[TOut](err)
		}
		obs, ok := result.(push.Observable[TOut])
		if !ok {
			return push.Throw[TOut](resultMismatch[TOut](result))
		}
		return obs
	}, nil
}

func prepareTyped[TIn, TOut any](e *Engine, l *expr.Lambda, mode Mode) (*Plan, error) {
	if l == nil {
		return nil, apperrors.MalformedExpression("nothing to compile")
	}
	if want := expr.TypeName[TIn](); l.Input().Type != want {
		return nil, apperrors.MalformedExpression("pipeline takes a stream of %s, not %s", l.Input().Type, want)
	}
	if want := expr.TypeName[TOut](); l.Output().Type != want {
		return nil, apperrors.MalformedExpression("pipeline produces a stream of %s, not %s", l.Output().Type, want)
	}
	return e.Prepare(context.Background(), l, mode)
}

func resultMismatch[T any](v any) error {
	return apperrors.Internal(fmt.Errorf("pipeline produced %T, want a stream of %s", v, expr.TypeName[T]()))
}
