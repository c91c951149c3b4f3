package push

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

	d, err := src.Subscribe(ObserverFuncs[T]{
		Next: func(v T) {
			mu.Lock()
			values = append(values, v)
			mu.Unlock()
		},
		Error: func(err error) {
			mu.Lock()
			failed = err
			mu.Unlock()
			finish()
		},
		Completed: finish,
	})
	if err != nil {
		return nil, err
	}
	defer d.Dispose()

	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	mu.Lock()
	defer mu.Unlock()
	return values, failed
}
