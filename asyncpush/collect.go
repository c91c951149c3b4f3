package asyncpush

import (
	"context"
	"sync"
)

// Collect subscribes to src and returns its values once it terminates. It
// returns the stream's error if it failed, or ctx's error if ctx ends first;
// in both cases the subscription is disposed.
func Collect[T any](ctx context.Context, src Observable[T]) ([]T, error) {
	var (
		mu     sync.Mutex
		values []T
		failed error
		once   sync.Once
	)
	done := make(chan struct{})
	finish := func() { once.Do(func() { close(done) }) }

	d, err := src.Subscribe(ctx, ObserverFuncs[T]{
		Next: func(_ context.Context, v T) error {
			mu.Lock()
			values = append(values, v)
			mu.Unlock()
			return nil
		},
		Error: func(_ context.Context, err error) error {
			mu.Lock()
			failed = err
			mu.Unlock()
			finish()
			return nil
		},
		Completed: func(context.Context) error {
			finish()
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	defer d.Dispose(context.WithoutCancel(ctx))

	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	mu.Lock()
	defer mu.Unlock()
	return values, failed
}
