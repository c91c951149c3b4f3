package vtime

import (
	"container/heap"
	"sync"
)

// Default ticks used by Start.
const (
	Created    int64 = 100
	Subscribed int64 = 200
	Disposed   int64 = 1000
)

// Scheduler runs actions in virtual-time order. Actions scheduled for the
// same tick run in the order they were scheduled.
type Scheduler struct {
	mu    sync.Mutex
	now   int64
	seq   int
	queue actionQueue
}

// NewScheduler returns a scheduler at tick 0.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Now returns the current tick.
func (s *Scheduler) Now() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// ScheduleAbsolute queues fn to run at tick at. Ticks in the past run at the
// current tick.
func (s *Scheduler) ScheduleAbsolute(at int64, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if at < s.now {
		at = s.now
	}
	s.seq++
	heap.Push(&s.queue, &action{at: at, seq: s.seq, fn: fn})
}

// ScheduleRelative queues fn to run delay ticks from now.
func (s *Scheduler) ScheduleRelative(delay int64, fn func()) {
	s.ScheduleAbsolute(s.Now()+delay, fn)
}

// Run executes queued actions until the queue is empty.
func (s *Scheduler) Run() {
	for s.step(-1) {
	}
}

// AdvanceTo executes every action due at or before tick and leaves the clock
// at tick.
func (s *Scheduler) AdvanceTo(tick int64) {
	for s.step(tick) {
	}
	s.mu.Lock()
	if s.now < tick {
		s.now = tick
	}
	s.mu.Unlock()
}

// step runs the next action due at or before limit; a negative limit means
// no limit.
func (s *Scheduler) step(limit int64) bool {
	s.mu.Lock()
	if s.queue.Len() == 0 || (limit >= 0 && s.queue[0].at > limit) {
		s.mu.Unlock()
		return false
	}
	next := heap.Pop(&s.queue).(*action)
	if next.at > s.now {
		s.now = next.at
	}
	s.mu.Unlock()

	next.fn()
	return true
}

type action struct {
	at  int64
	seq int
	fn  func()
}

type actionQueue []*action

func (q actionQueue) Len() int { return len(q) }
func (q actionQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}
func (q actionQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *actionQueue) Push(x any)   { *q = append(*q, x.(*action)) }
func (q *actionQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
