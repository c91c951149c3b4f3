package vtime

import (
	"fmt"
	"math"
)

// Kind is the kind of a notification.
type Kind int

const (
	KindNext Kind = iota + 1
	KindError
	KindCompleted
)

func (k Kind) String() string {
	switch k {
	case KindNext:
		return "OnNext"
	case KindError:
		return "OnError"
	case KindCompleted:
		return "OnCompleted"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Notification is one stream notification.
type Notification[T any] struct {
	Kind  Kind
	Value T
	Err   error
}

// Recorded is a notification at a tick.
type Recorded[T any] struct {
	Time int64
	Notification[T]
}

func (r Recorded[T]) String() string {
	switch r.Kind {
	case KindNext:
		return fmt.Sprintf("OnNext(%d, %v)", r.Time, r.Value)
	case KindError:
		return fmt.Sprintf("OnError(%d, %v)", r.Time, r.Err)
	default:
		return fmt.Sprintf("%s(%d)", r.Kind, r.Time)
	}
}

// OnNext records value v at tick t.
func OnNext[T any](t int64, v T) Recorded[T] {
	return Recorded[T]{Time: t, Notification: Notification[T]{Kind: KindNext, Value: v}}
}

// OnError records err at tick t.
func OnError[T any](t int64, err error) Recorded[T] {
	return Recorded[T]{Time: t, Notification: Notification[T]{Kind: KindError, Err: err}}
}

// OnCompleted records completion at tick t.
func OnCompleted[T any](t int64) Recorded[T] {
	return Recorded[T]{Time: t, Notification: Notification[T]{Kind: KindCompleted}}
}

// Infinite is the Unsubscribe tick of a subscription that was never disposed.
const Infinite int64 = math.MaxInt64

// Subscription is the interval during which an observer was subscribed.
type Subscription struct {
	Subscribe   int64
	Unsubscribe int64
}

// NewSubscription returns the interval [sub, unsub].
func NewSubscription(sub, unsub int64) Subscription {
	return Subscription{Subscribe: sub, Unsubscribe: unsub}
}

func (s Subscription) String() string {
	if s.Unsubscribe == Infinite {
		return fmt.Sprintf("(%d, Infinite)", s.Subscribe)
	}
	return fmt.Sprintf("(%d, %d)", s.Subscribe, s.Unsubscribe)
}
