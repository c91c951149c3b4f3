package asyncpush

import (
	"context"
	"sync"
)

// Disposable cancels a subscription. Dispose blocks until the cancellation
// has taken effect or ctx ends. It is idempotent.
type Disposable interface {
	Dispose(ctx context.Context) error
}

type nopDisposable struct{}

func (nopDisposable) Dispose(context.Context) error { return nil }

// Nop is a Disposable that does nothing.
var Nop Disposable = nopDisposable{}

// NewDisposable returns a Disposable that runs fn once. Later calls return
// the first call's result.
func NewDisposable(fn func(ctx context.Context) error) Disposable {
	return &funcDisposable{fn: fn}
}

type funcDisposable struct {
	once sync.Once
	fn   func(context.Context) error
	err  error
}

func (d *funcDisposable) Dispose(ctx context.Context) error {
	d.once.Do(func() { d.err = d.fn(ctx) })
	return d.err
}

// SingleAssignment holds a Disposable that is only known after Subscribe
// returns. If it is disposed before the assignment, the assigned Disposable is
// disposed as soon as it arrives.
type SingleAssignment struct {
	mu       sync.Mutex
	current  Disposable
	assigned bool
	disposed bool
}

// Set assigns d. It panics if called twice.
func (s *SingleAssignment) Set(ctx context.Context, d Disposable) error {
	s.mu.Lock()
	if s.assigned {
		s.mu.Unlock()
		panic("asyncpush: disposable already assigned")
	}
	s.assigned = true
	if !s.disposed {
		s.current = d
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	if d == nil {
		return nil
	}
	return d.Dispose(ctx)
}

// Dispose disposes the assigned Disposable, now or on assignment.
func (s *SingleAssignment) Dispose(ctx context.Context) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil
	}
	s.disposed = true
	d := s.current
	s.current = nil
	s.mu.Unlock()
	if d == nil {
		return nil
	}
	return d.Dispose(ctx)
}

// IsDisposed reports whether Dispose was called.
func (s *SingleAssignment) IsDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// Serial holds a replaceable Disposable. Setting a new one disposes the
// previous; after Dispose every assignment is disposed immediately.
type Serial struct {
	mu       sync.Mutex
	current  Disposable
	disposed bool
}

// Set replaces the current Disposable.
func (s *Serial) Set(ctx context.Context, d Disposable) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		if d == nil {
			return nil
		}
		return d.Dispose(ctx)
	}
	prev := s.current
	s.current = d
	s.mu.Unlock()
	if prev == nil {
		return nil
	}
	return prev.Dispose(ctx)
}

// Dispose disposes the current Disposable and every later one.
func (s *Serial) Dispose(ctx context.Context) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil
	}
	s.disposed = true
	d := s.current
	s.current = nil
	s.mu.Unlock()
	if d == nil {
		return nil
	}
	return d.Dispose(ctx)
}
