package asyncpush

import "context"

// Observer receives the notifications of a stream. The returned error is the
// acknowledgement of the notification.
type Observer[T any] interface {
	OnNext(ctx context.Context, value T) error
	OnError(ctx context.Context, err error) error
	OnCompleted(ctx context.Context) error
}

// Observable is a stream that can be subscribed to.
type Observable[T any] interface {
	// Subscribe starts delivery to o and returns once the subscription is
	// established.
	Subscribe(ctx context.Context, o Observer[T]) (Disposable, error)
}

// ObservableFunc adapts a function to an Observable.
type ObservableFunc[T any] func(ctx context.Context, o Observer[T]) (Disposable, error)

// Subscribe calls f(ctx, o).
func (f ObservableFunc[T]) Subscribe(ctx context.Context, o Observer[T]) (Disposable, error) {
	return f(ctx, o)
}

// ObserverFuncs builds an Observer from optional callbacks. Missing callbacks
// acknowledge immediately.
type ObserverFuncs[T any] struct {
	Next      func(context.Context, T) error
	Error     func(context.Context, error) error
	Completed func(context.Context) error
}

func (f ObserverFuncs[T]) OnNext(ctx context.Context, v T) error {
	if f.Next == nil {
		return nil
	}
	return f.Next(ctx, v)
}

func (f ObserverFuncs[T]) OnError(ctx context.Context, err error) error {
	if f.Error == nil {
		return nil
	}
	return f.Error(ctx, err)
}

func (f ObserverFuncs[T]) OnCompleted(ctx context.Context) error {
	if f.Completed == nil {
		return nil
	}
	return f.Completed(ctx)
}

// --- Sources ---

// Empty completes immediately.
func Empty[T any]() Observable[T] {
	return ObservableFunc[T](func(ctx context.Context, o Observer[T]) (Disposable, error) {
		if err := o.OnCompleted(ctx); err != nil {
			return nil, err
		}
		return Nop, nil
	})
}

// Never emits nothing and never terminates.
func Never[T any]() Observable[T] {
	return ObservableFunc[T](func(context.Context, Observer[T]) (Disposable, error) {
		return Nop, nil
	})
}

// Return emits v and completes.
func Return[T any](v T) Observable[T] {
	return FromSlice([]T{v})
}

// Throw fails immediately with err.
func Throw[T any](err error) Observable[T] {
	return ObservableFunc[T](func(ctx context.Context, o Observer[T]) (Disposable, error) {
		if ackErr := o.OnError(ctx, err); ackErr != nil {
			return nil, ackErr
		}
		return Nop, nil
	})
}

// FromSlice emits items in order during Subscribe, waiting for each
// acknowledgement, then completes. A failed acknowledgement or a cancelled ctx
// stops the sequence and is returned from Subscribe.
func FromSlice[T any](items []T) Observable[T] {
	return ObservableFunc[T](func(ctx context.Context, o Observer[T]) (Disposable, error) {
		for _, v := range items {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := o.OnNext(ctx, v); err != nil {
				return nil, err
			}
		}
		if err := o.OnCompleted(ctx); err != nil {
			return nil, err
		}
		return Nop, nil
	})
}
