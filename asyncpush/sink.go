package asyncpush

import (
	"context"
	"errors"
	"sync/atomic"
)

// sink is the downstream end of an operator. It forwards at most one terminal
// notification, nothing after it, and detaches from the upstream once the
// terminal notification has been acknowledged or the subscriber disposes.
type sink[O any] struct {
	down Observer[O]
	up   SingleAssignment
	done atomic.Bool
}

func (s *sink[O]) emit(ctx context.Context, v O) error {
	if s.done.Load() {
		return nil
	}
	return s.down.OnNext(ctx, v)
}

func (s *sink[O]) fail(ctx context.Context, err error) error {
	if !s.done.CompareAndSwap(false, true) {
		return nil
	}
	ack := s.down.OnError(ctx, err)
	return errors.Join(ack, s.up.Dispose(context.WithoutCancel(ctx)))
}

func (s *sink[O]) complete(ctx context.Context) error {
	if !s.done.CompareAndSwap(false, true) {
		return nil
	}
	ack := s.down.OnCompleted(ctx)
	return errors.Join(ack, s.up.Dispose(context.WithoutCancel(ctx)))
}

func (s *sink[O]) Dispose(ctx context.Context) error {
	s.done.Store(true)
	return s.up.Dispose(ctx)
}

// lift subscribes the observer built by wrap to src and returns the sink as
// the subscription handle.
func lift[I, O any](ctx context.Context, src Observable[I], down Observer[O], wrap func(*sink[O]) Observer[I]) (Disposable, error) {
	s := &sink[O]{down: down}
	d, err := src.Subscribe(ctx, wrap(s))
	if err != nil {
		s.done.Store(true)
		return nil, err
	}
	// A failed late detach has no receiver once the stream has terminated.
	_ = s.up.Set(ctx, d)
	return s, nil
}
