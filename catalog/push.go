package catalog

import (
	"cmp"

	"github.com/idg10/rxrewrite/expr"
	"github.com/idg10/rxrewrite/push"
	"github.com/idg10/rxrewrite/registry"
)

// Push returns a registry holding the push operator surface.
func Push() *registry.Registry {
	r := registry.New(expr.Push)

	pushOrdered[int](r)
	pushOrdered[int64](r)
	pushOrdered[float64](r)
	pushOrdered[string](r)

	pushNumeric[int](r)
	pushNumeric[int64](r)
	pushNumeric[float64](r)

	pushSelectFrom[int](r)
	pushSelectFrom[int64](r)
	pushSelectFrom[float64](r)
	pushSelectFrom[string](r)

	return r
}

func pushOrdered[T cmp.Ordered](r *registry.Registry) {
	s := expr.StreamOf[T](expr.Push)
	count := expr.ScalarOf[int]()

	r.MustRegister(
		op("Where", s, binary(push.Where[T]), s, expr.ScalarOf[func(T) bool]()),
		op("Take", s, binary(push.Take[T]), s, count),
		op("Skip", s, binary(push.Skip[T]), s, count),
		op("Concat", s, binary(push.Concat[T]), s, s),
		op("DefaultIfEmpty", s, binary(push.DefaultIfEmpty[T]), s, expr.ScalarOf[T]()),
		op("Count", expr.StreamOf[int](expr.Push), unary(push.Count[T]), s),
		op("Min", s, unary(push.Min[T]), s),
		op("Max", s, unary(push.Max[T]), s),
	)
}

func pushNumeric[T push.Number](r *registry.Registry) {
	s := expr.StreamOf[T](expr.Push)
	r.MustRegister(
		op("Sum", s, unary(push.Sum[T]), s),
		op("Average", expr.StreamOf[float64](expr.Push), unary(push.Average[T]), s),
	)
}

func pushSelectFrom[I any](r *registry.Registry) {
	pushSelect[I, int](r)
	pushSelect[I, int64](r)
	pushSelect[I, float64](r)
	pushSelect[I, string](r)
}

func pushSelect[I, O any](r *registry.Registry) {
	r.MustRegister(op("Select",
		expr.StreamOf[O](expr.Push),
		binary(push.Select[I, O]),
		expr.StreamOf[I](expr.Push), expr.ScalarOf[func(I) O](),
	))
}
