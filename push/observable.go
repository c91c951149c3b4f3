package push

// Observer receives the notifications of a stream.
type Observer[T any] interface {
	OnNext(value T)
	OnError(err error)
	OnCompleted()
}

// Observable is a stream that can be subscribed to.
type Observable[T any] interface {
	// Subscribe starts delivery to o. The returned Disposable cancels it.
	Subscribe(o Observer[T]) (Disposable, error)
}

// ObservableFunc adapts a function to an Observable.
type ObservableFunc[T any] func(o Observer[T]) (Disposable, error)

// Subscribe calls f(o).
func (f ObservableFunc[T]) Subscribe(o Observer[T]) (Disposable, error) { return f(o) }

// ObserverFuncs builds an Observer from optional callbacks.
type ObserverFuncs[T any] struct {
	Next      func(T)
	Error     func(error)
	Completed func()
}

func (f ObserverFuncs[T]) OnNext(v T) {
	if f.Next != nil {
		f.Next(v)
	}
}

func (f ObserverFuncs[T]) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}

func (f ObserverFuncs[T]) OnCompleted() {
	if f.Completed != nil {
		f.Completed()
	}
}

// --- Sources ---

// Empty completes immediately.
func Empty[T any]() Observable[T] {
	return ObservableFunc[T](func(o Observer[T]) (Disposable, error) {
		o.OnCompleted()
		return Nop, nil
	})
}

// Never emits nothing and never terminates.
func Never[T any]() Observable[T] {
	return ObservableFunc[T](func(Observer[T]) (Disposable, error) {
		return Nop, nil
	})
}

// Return emits v and completes.
func Return[T any](v T) Observable[T] {
	return FromSlice([]T{v})
}

// Throw fails immediately with err.
func Throw[T any](err error) Observable[T] {
	return ObservableFunc[T](func(o Observer[T]) (Disposable, error) {
		o.OnError(err)
		return Nop, nil
	})
}

// FromSlice emits items in order during Subscribe, then completes.
func FromSlice[T any](items []T) Observable[T] {
	return ObservableFunc[T](func(o Observer[T]) (Disposable, error) {
		for _, v := range items {
			o.OnNext(v)
		}
		o.OnCompleted()
		return Nop, nil
	})
}
