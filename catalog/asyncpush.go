package catalog

import (
	"cmp"

	"github.com/idg10/rxrewrite/asyncpush"
	"github.com/idg10/rxrewrite/expr"
	"github.com/idg10/rxrewrite/registry"
)

// AsyncPush returns a registry holding the async operator surface.
func AsyncPush() *registry.Registry {
	r := registry.New(expr.AsyncPush)

	asyncOrdered[int](r)
	asyncOrdered[int64](r)
	asyncOrdered[float64](r)
	asyncOrdered[string](r)

	asyncNumeric[int](r)
	asyncNumeric[int64](r)
	asyncNumeric[float64](r)

	asyncSelectFrom[int](r)
	asyncSelectFrom[int64](r)
	asyncSelectFrom[float64](r)
	asyncSelectFrom[string](r)

	return r
}

func asyncOrdered[T cmp.Ordered](r *registry.Registry) {
	s := expr.StreamOf[T](expr.AsyncPush)
	count := expr.ScalarOf[int]()

	r.MustRegister(
		op("Where", s, binary(asyncpush.Where[T]), s, expr.ScalarOf[func(T) bool]()),
		op("Take", s, binary(asyncpush.Take[T]), s, count),
		op("Skip", s, binary(asyncpush.Skip[T]), s, count),
		op("Concat", s, binary(asyncpush.Concat[T]), s, s),
		op("DefaultIfEmpty", s, binary(asyncpush.DefaultIfEmpty[T]), s, expr.ScalarOf[T]()),
		op("Count", expr.StreamOf[int](expr.AsyncPush), unary(asyncpush.Count[T]), s),
		op("Min", s, unary(asyncpush.Min[T]), s),
		op("Max", s, unary(asyncpush.Max[T]), s),
	)
}

func asyncNumeric[T asyncpush.Number](r *registry.Registry) {
	s := expr.StreamOf[T](expr.AsyncPush)
	r.MustRegister(
		op("Sum", s, unary(asyncpush.Sum[T]), s),
		op("Average", expr.StreamOf[float64](expr.AsyncPush), unary(asyncpush.Average[T]), s),
	)
}

func asyncSelectFrom[I any](r *registry.Registry) {
	asyncSelect[I, int](r)
	asyncSelect[I, int64](r)
	asyncSelect[I, float64](r)
	asyncSelect[I, string](r)
}

func asyncSelect[I, O any](r *registry.Registry) {
	r.MustRegister(op("Select",
		expr.StreamOf[O](expr.AsyncPush),
		binary(asyncpush.Select[I, O]),
		expr.StreamOf[I](expr.AsyncPush), expr.ScalarOf[func(I) O](),
	))
}
