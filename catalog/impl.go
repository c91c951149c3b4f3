package catalog

import (
	"fmt"

	apperrors "github.com/idg10/rxrewrite/errors"
	"github.com/idg10/rxrewrite/expr"
)

// Elements are the stream element types every operator is registered for.
var Elements = []string{"int", "int64", "float64", "string"}

func arg[T any](args []any, i int) (T, error) {
	v, ok := args[i].(T)
	if !ok {
		var zero T
		return zero, apperrors.Internal(fmt.Errorf("argument %d: want %s, got %T", i, expr.TypeName[T](), args[i]))
	}
	return v, nil
}

func arity(args []any, n int) error {
	if len(args) != n {
		return apperrors.Internal(fmt.Errorf("want %d arguments, got %d", n, len(args)))
	}
	return nil
}

// unary adapts a one-argument operator constructor to an expr.Impl.
func unary[S, R any](fn func(S) R) expr.Impl {
	return func(args []any) (any, error) {
		if err := arity(args, 1); err != nil {
			return nil, err
		}
		s, err := arg[S](args, 0)
		if err != nil {
			return nil, err
		}
		return fn(s), nil
	}
}

// binary adapts a two-argument operator constructor to an expr.Impl.
func binary[S, A, R any](fn func(S, A) R) expr.Impl {
	return func(args []any) (any, error) {
		if err := arity(args, 2); err != nil {
			return nil, err
		}
		s, err := arg[S](args, 0)
		if err != nil {
			return nil, err
		}
		a, err := arg[A](args, 1)
		if err != nil {
			return nil, err
		}
		return fn(s, a), nil
	}
}

func op(name string, result expr.Shape, impl expr.Impl, params ...expr.Shape) expr.Operator {
	return expr.Operator{Name: name, Params: params, Result: result, Impl: impl}
}
