package asyncpush

import (
	"cmp"
	"context"

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
	return ObservableFunc[float64](func(ctx context.Context, o Observer[float64]) (Disposable, error) {
		return lift(ctx, src, o, func(s *sink[float64]) Observer[T] {
			return &averageObserver[T]{sink: s}
		})
	})
}

// Sum emits the total of src when it completes. An empty sequence sums to 0.
func Sum[T Number](src Observable[T]) Observable[T] {
	return ObservableFunc[T](func(ctx context.Context, o Observer[T]) (Disposable, error) {
		return lift(ctx, src, o, func(s *sink[T]) Observer[T] {
			return &sumObserver[T]{sink: s}
		})
	})
}

// Count emits the number of values of src when it completes.
func Count[T any](src Observable[T]) Observable[int] {
	return ObservableFunc[int](func(ctx context.Context, o Observer[int]) (Disposable, error) {
		return lift(ctx, src, o, func(s *sink[int]) Observer[T] {
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
	return ObservableFunc[T](func(ctx context.Context, o Observer[T]) (Disposable, error) {
		return lift(ctx, src, o, func(s *sink[T]) Observer[T] {
			return &extremeObserver[T]{sink: s, better: better}
		})
	})
}

// emitLast forwards v followed by completion.
func emitLast[T any](ctx context.Context, s *sink[T], v T) error {
	if err := s.emit(ctx, v); err != nil {
		return err
	}
	return s.complete(ctx)
}

type averageObserver[T Number] struct {
	*sink[float64]
	sum   float64
	count int
}

func (x *averageObserver[T]) OnNext(_ context.Context, v T) error {
	x.sum += float64(v)
	x.count++
	return nil
}
func (x *averageObserver[T]) OnError(ctx context.Context, err error) error { return x.fail(ctx, err) }
func (x *averageObserver[T]) OnCompleted(ctx context.Context) error {
	if x.count == 0 {
		return x.fail(ctx, apperrors.ErrNoElements)
	}
	return emitLast(ctx, x.sink, x.sum/float64(x.count))
}

type sumObserver[T Number] struct {
	*sink[T]
	sum T
}

func (x *sumObserver[T]) OnNext(_ context.Context, v T) error {
	x.sum += v
	return nil
}
func (x *sumObserver[T]) OnError(ctx context.Context, err error) error { return x.fail(ctx, err) }
func (x *sumObserver[T]) OnCompleted(ctx context.Context) error {
	return emitLast(ctx, x.sink, x.sum)
}

type countObserver[T any] struct {
	*sink[int]
	count int
}

func (x *countObserver[T]) OnNext(context.Context, T) error {
	x.count++
	return nil
}
func (x *countObserver[T]) OnError(ctx context.Context, err error) error { return x.fail(ctx, err) }
func (x *countObserver[T]) OnCompleted(ctx context.Context) error {
	return emitLast(ctx, x.sink, x.count)
}

type extremeObserver[T any] struct {
	*sink[T]
	better func(a, b T) bool
	best   T
	seen   bool
}

func (x *extremeObserver[T]) OnNext(_ context.Context, v T) error {
	if !x.seen || x.better(v, x.best) {
		x.best = v
		x.seen = true
	}
	return nil
}
func (x *extremeObserver[T]) OnError(ctx context.Context, err error) error { return x.fail(ctx, err) }
func (x *extremeObserver[T]) OnCompleted(ctx context.Context) error {
	if !x.seen {
		return x.fail(ctx, apperrors.ErrNoElements)
	}
	return emitLast(ctx, x.sink, x.best)
}
