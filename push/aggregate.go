package push

import (
	"cmp"

	apperrors "github.com/idg10/rxrewrite/errors"
)

// Number is the element constraint of the arithmetic aggregates.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Average emits the arithmetic mean of src when it completes. An empty
// sequence fails with errors.ErrNoElements.
func Average[T Number](src Observable[T]) Observable[float64] {
	return ObservableFunc[float64](func(o Observer[float64]) (Disposable, error) {
		return lift(src, o, func(s *sink[float64]) Observer[T] {
			return &averageObserver[T]{sink: s}
		})
	})
}

// Sum emits the total of src when it completes. An empty sequence sums to 0.
func Sum[T Number](src Observable[T]) Observable[T] {
	return ObservableFunc[T](func(o Observer[T]) (Disposable, error) {
		return lift(src, o, func(s *sink[T]) Observer[T] {
			return &sumObserver[T]{sink: s}
		})
	})
}

// Count emits the number of values of src when it completes.
func Count[T any](src Observable[T]) Observable[int] {
	return ObservableFunc[int](func(o Observer[int]) (Disposable, error) {
		return lift(src, o, func(s *sink[int]) Observer[T] {
			return &countObserver[T]{sink: s}
		})
	})
}

// Min emits the smallest value of src when it completes. An empty sequence
// fails with errors.ErrNoElements.
func Min[T cmp.Ordered](src Observable[T]) Observable[T] {
	return extreme(src, func(a, b T) bool { return a < b })
}

// Max emits the largest value of src when it completes. An empty sequence
// fails with errors.ErrNoElements.
func Max[T cmp.Ordered](src Observable[T]) Observable[T] {
	return extreme(src, func(a, b T) bool { return a > b })
}

func extreme[T any](src Observable[T], better func(a, b T) bool) Observable[T] {
	return ObservableFunc[T](func(o Observer[T]) (Disposable, error) {
		return lift(src, o, func(s *sink[T]) Observer[T] {
			return &extremeObserver[T]{sink: s, better: better}
		})
	})
}

type averageObserver[T Number] struct {
	*sink[float64]
	sum   float64
	count int
}

func (x *averageObserver[T]) OnNext(v T) {
	x.sum += float64(v)
	x.count++
}
func (x *averageObserver[T]) OnError(err error) { x.fail(err) }
func (x *averageObserver[T]) OnCompleted() {
	if x.count == 0 {
		x.fail(apperrors.ErrNoElements)
		return
	}
	x.emit(x.sum / float64(x.count))
	x.complete()
}

type sumObserver[T Number] struct {
	*sink[T]
	sum T
}

func (x *sumObserver[T]) OnNext(v T)        { x.sum += v }
func (x *sumObserver[T]) OnError(err error) { x.fail(err) }
func (x *sumObserver[T]) OnCompleted() {
	x.emit(x.sum)
	x.complete()
}

type countObserver[T any] struct {
	*sink[int]
	count int
}

func (x *countObserver[T]) OnNext(T)          { x.count++ }
func (x *countObserver[T]) OnError(err error) { x.fail(err) }
func (x *countObserver[T]) OnCompleted() {
	x.emit(x.count)
	x.complete()
}

type extremeObserver[T any] struct {
	*sink[T]
	better func(a, b T) bool
	best   T
	seen   bool
}

func (x *extremeObserver[T]) OnNext(v T) {
	if !x.seen || x.better(v, x.best) {
		x.best = v
		x.seen = true
	}
}
func (x *extremeObserver[T]) OnError(err error) { x.fail(err) }
func (x *extremeObserver[T]) OnCompleted() {
	if !x.seen {
		x.fail(apperrors.ErrNoElements)
		return
	}
	x.emit(x.best)
	x.complete()
}
