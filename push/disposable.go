package push

import "sync"

// Disposable cancels a subscription. Dispose is idempotent.
type Disposable interface {
	Dispose()
}

type nopDisposable struct{}

func (nopDisposable) Dispose() {}

// Nop is a Disposable that does nothing.
var Nop Disposable = nopDisposable{}

// NewDisposable returns a Disposable that runs fn once.
func NewDisposable(fn func()) Disposable {
	return &funcDisposable{fn: fn}
}

type funcDisposable struct {
	once sync.Once
	fn   func()
}

func (d *funcDisposable) Dispose() { d.once.Do(d.fn) }

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
func (s *SingleAssignment) Set(d Disposable) {
	s.mu.Lock()
	if s.assigned {
		s.mu.Unlock()
		panic("push: disposable already assigned")
	}
	s.assigned = true
	if !s.disposed {
		s.current = d
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	if d != nil {
		d.Dispose()
	}
}

// Dispose disposes the assigned Disposable, now or on assignment.
func (s *SingleAssignment) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	d := s.current
	s.current = nil
	s.mu.Unlock()
	if d != nil {
		d.Dispose()
	}
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
func (s *Serial) Set(d Disposable) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		if d != nil {
			d.Dispose()
		}
		return
	}
	prev := s.current
	s.current = d
	s.mu.Unlock()
	if prev != nil {
		prev.Dispose()
	}
}

// Dispose disposes the current Disposable and every later one.
func (s *Serial) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	d := s.current
	s.current = nil
	s.mu.Unlock()
	if d != nil {
		d.Dispose()
	}
}
