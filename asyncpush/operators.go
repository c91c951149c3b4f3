package asyncpush

import (
	"context"
	"errors"
	"sync/atomic"
)

// Select transforms each value using fn.
func Select[I, O any](src Observable[I], fn func(I) O) Observable[O] {
	return ObservableFunc[O](func(ctx context.Context, o Observer[O]) (Disposable, error) {
		return lift(ctx, src, o, func(s *sink[O]) Observer[I] {
			return &selectObserver[I, O]{sink: s, fn: fn}
		})
	})
}

// Where keeps only values that satisfy pred.
func Where[T any](src Observable[T], pred func(T) bool) Observable[T] {
	return ObservableFunc[T](func(ctx context.Context, o Observer[T]) (Disposable, error) {
		return lift(ctx, src, o, func(s *sink[T]) Observer[T] {
			return &whereObserver[T]{sink: s, pred: pred}
		})
	})
}

// Take emits the first n values and completes. Take with n <= 0 completes
// without subscribing to src.
func Take[T any](src Observable[T], n int) Observable[T] {
	if n <= 0 {
		return Empty[T]()
	}
	return ObservableFunc[T](func(ctx context.Context, o Observer[T]) (Disposable, error) {
		return lift(ctx, src, o, func(s *sink[T]) Observer[T] {
			return &takeObserver[T]{sink: s, remaining: n}
		})
	})
}

// Skip drops the first n values.
func Skip[T any](src Observable[T], n int) Observable[T] {
	return ObservableFunc[T](func(ctx context.Context, o Observer[T]) (Disposable, error) {
		return lift(ctx, src, o, func(s *sink[T]) Observer[T] {
			return &skipObserver[T]{sink: s, remaining: n}
		})
	})
}

// DefaultIfEmpty emits def if src completes without a value.
func DefaultIfEmpty[T any](src Observable[T], def T) Observable[T] {
	return ObservableFunc[T](func(ctx context.Context, o Observer[T]) (Disposable, error) {
		return lift(ctx, src, o, func(s *sink[T]) Observer[T] {
			return &defaultObserver[T]{sink: s, def: def}
		})
	})
}

// Concat emits every value of first, then subscribes to second and emits its
// values. The completion of first is acknowledged once second is subscribed.
func Concat[T any](first, second Observable[T]) Observable[T] {
	return ObservableFunc[T](func(ctx context.Context, o Observer[T]) (Disposable, error) {
		c := &concatSink[T]{down: o, second: second}
		firstSub := &SingleAssignment{}
		_ = c.serial.Set(ctx, firstSub)
		d, err := first.Subscribe(ctx, ObserverFuncs[T]{
			Next:      c.emit,
			Error:     c.fail,
			Completed: c.next,
		})
		if err != nil {
			c.done.Store(true)
			return nil, err
		}
		_ = firstSub.Set(ctx, d)
		return c, nil
	})
}

// --- Observer implementations ---

type selectObserver[I, O any] struct {
	*sink[O]
	fn func(I) O
}

func (x *selectObserver[I, O]) OnNext(ctx context.Context, v I) error {
	return x.emit(ctx, x.fn(v))
}
func (x *selectObserver[I, O]) OnError(ctx context.Context, err error) error { return x.fail(ctx, err) }
func (x *selectObserver[I, O]) OnCompleted(ctx context.Context) error         { return x.complete(ctx) }

type whereObserver[T any] struct {
	*sink[T]
	pred func(T) bool
}

func (x *whereObserver[T]) OnNext(ctx context.Context, v T) error {
	if !x.pred(v) {
		return nil
	}
	return x.emit(ctx, v)
}
func (x *whereObserver[T]) OnError(ctx context.Context, err error) error { return x.fail(ctx, err) }
func (x *whereObserver[T]) OnCompleted(ctx context.Context) error         { return x.complete(ctx) }

type takeObserver[T any] struct {
	*sink[T]
	remaining int
}

func (x *takeObserver[T]) OnNext(ctx context.Context, v T) error {
	if x.remaining <= 0 {
		return nil
	}
	x.remaining--
	if err := x.emit(ctx, v); err != nil {
		return err
	}
	if x.remaining == 0 {
		return x.complete(ctx)
	}
	return nil
}
func (x *takeObserver[T]) OnError(ctx context.Context, err error) error { return x.fail(ctx, err) }
func (x *takeObserver[T]) OnCompleted(ctx context.Context) error         { return x.complete(ctx) }

type skipObserver[T any] struct {
	*sink[T]
	remaining int
}

func (x *skipObserver[T]) OnNext(ctx context.Context, v T) error {
	if x.remaining > 0 {
		x.remaining--
		return nil
	}
	return x.emit(ctx, v)
}
func (x *skipObserver[T]) OnError(ctx context.Context, err error) error { return x.fail(ctx, err) }
func (x *skipObserver[T]) OnCompleted(ctx context.Context) error         { return x.complete(ctx) }

type defaultObserver[T any] struct {
	*sink[T]
	def  T
	seen bool
}

func (x *defaultObserver[T]) OnNext(ctx context.Context, v T) error {
	x.seen = true
	return x.emit(ctx, v)
}
func (x *defaultObserver[T]) OnError(ctx context.Context, err error) error { return x.fail(ctx, err) }
func (x *defaultObserver[T]) OnCompleted(ctx context.Context) error {
	if !x.seen {
		if err := x.emit(ctx, x.def); err != nil {
			return err
		}
	}
	return x.complete(ctx)
}

type concatSink[T any] struct {
	down   Observer[T]
	second Observable[T]
	serial Serial
	done   atomic.Bool
}

func (c *concatSink[T]) emit(ctx context.Context, v T) error {
	if c.done.Load() {
		return nil
	}
	return c.down.OnNext(ctx, v)
}

func (c *concatSink[T]) fail(ctx context.Context, err error) error {
	if !c.done.CompareAndSwap(false, true) {
		return nil
	}
	ack := c.down.OnError(ctx, err)
	return errors.Join(ack, c.serial.Dispose(context.WithoutCancel(ctx)))
}

func (c *concatSink[T]) complete(ctx context.Context) error {
	if !c.done.CompareAndSwap(false, true) {
		return nil
	}
	ack := c.down.OnCompleted(ctx)
	return errors.Join(ack, c.serial.Dispose(context.WithoutCancel(ctx)))
}

// next switches from the first source to the second.
func (c *concatSink[T]) next(ctx context.Context) error {
	if c.done.Load() {
		return nil
	}
	secondSub := &SingleAssignment{}
	if err := c.serial.Set(context.WithoutCancel(ctx), secondSub); err != nil {
		return c.fail(ctx, err)
	}
	d, err := c.second.Subscribe(ctx, ObserverFuncs[T]{
		Next:      c.emit,
		Error:     c.fail,
		Completed: c.complete,
	})
	if err != nil {
		return c.fail(ctx, err)
	}
	_ = secondSub.Set(ctx, d)
	return nil
}

func (c *concatSink[T]) Dispose(ctx context.Context) error {
	c.done.Store(true)
	return c.serial.Dispose(ctx)
}
