package push

import "sync/atomic"

// sink is the downstream end of an operator. It forwards at most one terminal
// notification, nothing after it, and detaches from the upstream once the
// terminal notification has been forwarded or the subscriber disposes.
type sink[O any] struct {
	down Observer[O]
	up   SingleAssignment
	done atomic.Bool
}

func (s *sink[O]) emit(v O) {
	if !s.done.Load() {
		s.down.OnNext(v)
	}
}

func (s *sink[O]) fail(err error) {
	if s.done.CompareAndSwap(false, true) {
		s.down.OnError(err)
		s.up.Dispose()
	}
}

func (s *sink[O]) complete() {
	if s.done.CompareAndSwap(false, true) {
		s.down.OnCompleted()
		s.up.Dispose()
	}
}

func (s *sink[O]) Dispose() {
	s.done.Store(true)
	s.up.Dispose()
}

// lift subscribes the observer built by wrap to src and returns the sink as
// the subscription handle.
func lift[I, O any](src Observable[I], down Observer[O], wrap func(*sink[O]) Observer[I]) (Disposable, error) {
	s := &sink[O]{down: down}
	d, err := src.Subscribe(wrap(s))
	if err != nil {
		s.done.Store(true)
		return nil, err
	}
	s.up.Set(d)
	return s, nil
}
