package push

import "sync/atomic"

// Select transforms each value using fn.
func Select[I, O any](src Observable[I], fn func(I) O) Observable[O] {
	return ObservableFunc[O](func(o Observer[O]) (Disposable, error) {
		return lift(src, o, func(s *sink[O]) Observer[I] {
			return &selectObserver[I, O]{sink: s, fn: fn}
		})
	})
}

// Where keeps only values that satisfy pred.
func Where[T any](src Observable[T], pred func(T) bool) Observable[T] {
	return ObservableFunc[T](func(o Observer[T]) (Disposable, error) {
		return lift(src, o, func(s *sink[T]) Observer[T] {
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
	return ObservableFunc[T](func(o Observer[T]) (Disposable, error) {
		return lift(src, o, func(s *sink[T]) Observer[T] {
			return &takeObserver[T]{sink: s, remaining: n}
		})
	})
}

// Skip drops the first n values.
func Skip[T any](src Observable[T], n int) Observable[T] {
	return ObservableFunc[T](func(o Observer[T]) (Disposable, error) {
		return lift(src, o, func(s *sink[T]) Observer[T] {
			return &skipObserver[T]{sink: s, remaining: n}
		})
	})
}

// DefaultIfEmpty emits def if src completes without a value.
func DefaultIfEmpty[T any](src Observable[T], def T) Observable[T] {
	return ObservableFunc[T](func(o Observer[T]) (Disposable, error) {
		return lift(src, o, func(s *sink[T]) Observer[T] {
			return &defaultObserver[T]{sink: s, def: def}
		})
	})
}

// Concat emits every value of first, then subscribes to second and emits its
// values. An error from either ends the sequence.
func Concat[T any](first, second Observable[T]) Observable[T] {
	return ObservableFunc[T](func(o Observer[T]) (Disposable, error) {
		c := &concatSink[T]{down: o, second: second}
		firstSub := &SingleAssignment{}
		c.serial.Set(firstSub)
		d, err := first.Subscribe(ObserverFuncs[T]{
			Next:      c.emit,
			Error:     c.fail,
			Completed: c.next,
		})
		if err != nil {
			c.done.Store(true)
			return nil, err
		}
		firstSub.Set(d)
		return c, nil
	})
}

// --- Observer implementations ---

type selectObserver[I, O any] struct {
	*sink[O]
	fn func(I) O
}

func (x *selectObserver[I, O]) OnNext(v I)        { x.emit(x.fn(v)) }
func (x *selectObserver[I, O]) OnError(err error) { x.fail(err) }
func (x *selectObserver[I, O]) OnCompleted()      { x.complete() }

type whereObserver[T any] struct {
	*sink[T]
	pred func(T) bool
}

func (x *whereObserver[T]) OnNext(v T) {
	if x.pred(v) {
		x.emit(v)
	}
}
func (x *whereObserver[T]) OnError(err error) { x.fail(err) }
func (x *whereObserver[T]) OnCompleted()      { x.complete() }

type takeObserver[T any] struct {
	*sink[T]
	remaining int
}

func (x *takeObserver[T]) OnNext(v T) {
	if x.remaining <= 0 {
		return
	}
	x.remaining--
	x.emit(v)
	if x.remaining == 0 {
		x.complete()
	}
}
func (x *takeObserver[T]) OnError(err error) { x.fail(err) }
func (x *takeObserver[T]) OnCompleted()      { x.complete() }

type skipObserver[T any] struct {
	*sink[T]
	remaining int
}

func (x *skipObserver[T]) OnNext(v T) {
	if x.remaining > 0 {
		x.remaining--
		return
	}
	x.emit(v)
}
func (x *skipObserver[T]) OnError(err error) { x.fail(err) }
func (x *skipObserver[T]) OnCompleted()      { x.complete() }

type defaultObserver[T any] struct {
	*sink[T]
	def  T
	seen bool
}

func (x *defaultObserver[T]) OnNext(v T) {
	x.seen = true
	x.emit(v)
}
func (x *defaultObserver[T]) OnError(err error) { x.fail(err) }
func (x *defaultObserver[T]) OnCompleted() {
	if !x.seen {
		x.emit(x.def)
	}
	x.complete()
}

type concatSink[T any] struct {
	down   Observer[T]
	second Observable[T]
	serial Serial
	done   atomic.Bool
}

func (c *concatSink[T]) emit(v T) {
	if !c.done.Load() {
		c.down.OnNext(v)
	}
}

func (c *concatSink[T]) fail(err error) {
	if c.done.CompareAndSwap(false, true) {
		c.down.OnError(err)
		c.serial.Dispose()
	}
}

func (c *concatSink[T]) complete() {
	if c.done.CompareAndSwap(false, true) {
		c.down.OnCompleted()
		c.serial.Dispose()
	}
}

// next switches from the first source to the second.
func (c *concatSink[T]) next() {
	if c.done.Load() {
		return
	}
	secondSub := &SingleAssignment{}
	c.serial.Set(secondSub)
	d, err := c.second.Subscribe(ObserverFuncs[T]{
		Next:      c.emit,
		Error:     c.fail,
		Completed: c.complete,
	})
	if err != nil {
		c.fail(err)
		return
	}
	secondSub.Set(d)
}

func (c *concatSink[T]) Dispose() {
	c.done.Store(true)
	c.serial.Dispose()
}
