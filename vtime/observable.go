package vtime

import (
	"slices"
	"sync"

	"github.com/idg10/rxrewrite/push"
)

// recorder tracks the subscriptions of a test source.
type recorder struct {
	mu   sync.Mutex
	subs []Subscription
}

func (r *recorder) subscribed(now int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, Subscription{Subscribe: now, Unsubscribe: Infinite})
	return len(r.subs) - 1
}

func (r *recorder) unsubscribed(i int, now int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[i].Unsubscribe = now
}

// Subscriptions returns the recorded subscription intervals.
func (r *recorder) Subscriptions() []Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Subscription(nil), r.subs...)
}

// HotObservable emits its messages at their absolute ticks to whoever is
// subscribed at the time.
type HotObservable[T any] struct {
	recorder
	sched     *Scheduler
	messages  []Recorded[T]
	mu        sync.Mutex
	observers map[int]push.Observer[T]
	nextID    int
}

// CreateHot schedules messages on s and returns the source.
func CreateHot[T any](s *Scheduler, messages ...Recorded[T]) *HotObservable[T] {
	h := &HotObservable[T]{
		sched:     s,
		messages:  messages,
		observers: make(map[int]push.Observer[T]),
	}
	for _, m := range messages {
		s.ScheduleAbsolute(m.Time, func() { h.broadcast(m.Notification) })
	}
	return h
}

func (h *HotObservable[T]) broadcast(n Notification[T]) {
	h.mu.Lock()
	ids := make([]int, 0, len(h.observers))
	for id := range h.observers {
		ids = append(ids, id)
	}
	h.mu.Unlock()

	// Subscription order.
	slices.Sort(ids)
	for _, id := range ids {
		h.mu.Lock()
		o, ok := h.observers[id]
		h.mu.Unlock()
		if ok {
			deliver(o, n)
		}
	}
}

// Subscribe implements push.Observable.
func (h *HotObservable[T]) Subscribe(o push.Observer[T]) (push.Disposable, error) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.observers[id] = o
	h.mu.Unlock()

	idx := h.subscribed(h.sched.Now())
	return push.NewDisposable(func() {
		h.mu.Lock()
		delete(h.observers, id)
		h.mu.Unlock()
		h.unsubscribed(idx, h.sched.Now())
	}), nil
}

// ColdObservable replays its messages to each subscriber, at ticks relative
// to the moment of subscription.
type ColdObservable[T any] struct {
	recorder
	sched    *Scheduler
	messages []Recorded[T]
}

// CreateCold returns a cold source on s.
func CreateCold[T any](s *Scheduler, messages ...Recorded[T]) *ColdObservable[T] {
	return &ColdObservable[T]{sched: s, messages: messages}
}

// Subscribe implements push.Observable.
func (c *ColdObservable[T]) Subscribe(o push.Observer[T]) (push.Disposable, error) {
	idx := c.subscribed(c.sched.Now())

	var mu sync.Mutex
	active := true
	for _, m := range c.messages {
		c.sched.ScheduleRelative(m.Time, func() {
			mu.Lock()
			ok := active
			mu.Unlock()
			if ok {
				deliver(o, m.Notification)
			}
		})
	}
	return push.NewDisposable(func() {
		mu.Lock()
		active = false
		mu.Unlock()
		c.unsubscribed(idx, c.sched.Now())
	}), nil
}

func deliver[T any](o push.Observer[T], n Notification[T]) {
	switch n.Kind {
	case KindNext:
		o.OnNext(n.Value)
	case KindError:
		o.OnError(n.Err)
	case KindCompleted:
		o.OnCompleted()
	}
}
