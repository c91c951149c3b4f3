package vtime

import (
	"sync"

	"github.com/idg10/rxrewrite/push"
)

// Observer records every notification it receives with the tick it arrived
// at.
type Observer[T any] struct {
	sched    *Scheduler
	mu       sync.Mutex
	messages []Recorded[T]
}

// NewObserver returns a recording observer on s.
func NewObserver[T any](s *Scheduler) *Observer[T] {
	return &Observer[T]{sched: s}
}

func (o *Observer[T]) record(n Notification[T]) {
	now := o.sched.Now()
	o.mu.Lock()
	o.messages = append(o.messages, Recorded[T]{Time: now, Notification: n})
	o.mu.Unlock()
}

func (o *Observer[T]) OnNext(v T)        { o.record(Notification[T]{Kind: KindNext, Value: v}) }
func (o *Observer[T]) OnError(err error) { o.record(Notification[T]{Kind: KindError, Err: err}) }
func (o *Observer[T]) OnCompleted()      { o.record(Notification[T]{Kind: KindCompleted}) }

// Messages returns the recorded notifications.
func (o *Observer[T]) Messages() []Recorded[T] {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Recorded[T](nil), o.messages...)
}

// Start creates the observable at Created, subscribes at Subscribed,
// disposes at Disposed and runs the scheduler to completion.
func Start[T any](s *Scheduler, create func() push.Observable[T]) *Observer[T] {
	return StartAt(s, Created, Subscribed, Disposed, create)
}

// StartAt is Start with explicit ticks. A subscription failure is recorded
// as an OnError at the subscription tick.
func StartAt[T any](s *Scheduler, created, subscribed, disposed int64, create func() push.Observable[T]) *Observer[T] {
	obs := NewObserver[T](s)
	var (
		source push.Observable[T]
		sub    push.Disposable
	)

	s.ScheduleAbsolute(created, func() { source = create() })
	s.ScheduleAbsolute(subscribed, func() {
		d, err := source.Subscribe(obs)
		if err != nil {
			obs.OnError(err)
			return
		}
		sub = d
	})
	s.ScheduleAbsolute(disposed, func() {
		if sub != nil {
			sub.Dispose()
		}
	})

	s.Run()
	return obs
}
