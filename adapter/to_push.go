package adapter

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/idg10/rxrewrite/asyncpush"
	apperrors "github.com/idg10/rxrewrite/errors"
	"github.com/idg10/rxrewrite/logger"
	"github.com/idg10/rxrewrite/push"
)

// State is the lifecycle state of a push subscription to an async stream.
type State int32

const (
	StateUnsubscribed State = iota
	StateSubscribing
	StateActive
	StateCompleted
	StateErrored
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUnsubscribed:
		return "unsubscribed"
	case StateSubscribing:
		return "subscribing"
	case StateActive:
		return "active"
	case StateCompleted:
		return "completed"
	case StateErrored:
		return "errored"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Final reports whether no notification can follow s.
func (s State) Final() bool {
	return s == StateCompleted || s == StateErrored || s == StateDisposed
}

// Observable is an async-push stream presented as a push stream.
type Observable[T any] struct {
	src  asyncpush.Observable[T]
	opts options
}

// ToPush adapts an async-push stream to the push model.
func ToPush[T any](src asyncpush.Observable[T], opts ...Option) *Observable[T] {
	return &Observable[T]{src: src, opts: newOptions(opts)}
}

// Subscribe implements push.Observable. It waits for the async subscription
// for at most the configured subscribe timeout.
func (o *Observable[T]) Subscribe(obs push.Observer[T]) (push.Disposable, error) {
	ctx, cancel := withTimeout(o.opts.subscribeTimeout)
	defer cancel()
	s, err := o.SubscribeContext(ctx, obs)
	if err != nil {
		return nil, err
	}
	return s, nil
}

type subscribeResult struct {
	d   asyncpush.Disposable
	err error
}

// SubscribeContext establishes the async subscription, waiting until it
// exists or ctx ends. Notifications sent while subscribing are forwarded.
func (o *Observable[T]) SubscribeContext(ctx context.Context, obs push.Observer[T]) (*Subscription[T], error) {
	s := o.newSubscription(obs)
	s.state.Store(int32(StateSubscribing))
	o.opts.metrics.SubscriptionOpened(s.ctx, DirectionToPush)

	if err := ctx.Err(); err != nil {
		s.abandon()
		return nil, apperrors.SubscriptionFailure(o.opts.name, err)
	}

	if ctx.Done() == nil {
		d, err := o.src.Subscribe(s.ctx, s)
		return s.established(d, err)
	}

	ch := make(chan subscribeResult, 1)
	go func() {
		d, err := o.src.Subscribe(s.ctx, s)
		ch <- subscribeResult{d: d, err: err}
	}()

	select {
	case r := <-ch:
		return s.established(r.d, r.err)
	case <-ctx.Done():
		s.abandon()
		go func() {
			if r := <-ch; r.err == nil {
				_ = s.upstream.Set(context.Background(), r.d)
			}
		}()
		s.log.Warn("async subscription abandoned", logger.MergeWithError(nil, ctx.Err()))
		return nil, apperrors.SubscriptionFailure(o.opts.name, ctx.Err())
	}
}

func (o *Observable[T]) newSubscription(obs push.Observer[T]) *Subscription[T] {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	return &Subscription[T]{
		id:       id,
		ctx:      ctx,
		cancel:   cancel,
		down:     obs,
		opts:     o.opts,
		disposed: make(chan struct{}),
		log: o.opts.log.WithFields(logger.Fields(
			logger.FieldSubscriptionID, id,
			"direction", DirectionToPush,
		)),
	}
}

// Subscription is a push subscription to an async stream. It receives the
// async notifications and forwards them synchronously.
type Subscription[T any] struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	down   push.Observer[T]
	opts   options
	log    *logger.Logger

	state    atomic.Int32
	fwd      sync.Mutex
	upstream asyncpush.SingleAssignment

	// delivering is set while a downstream callback runs, under fwd.
	delivering atomic.Bool

	closeOnce   sync.Once
	disposeOnce sync.Once
	disposed    chan struct{}
	disposeErr  error
}

// ID returns the subscription's identifier as it appears in logs.
func (s *Subscription[T]) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Subscription[T]) State() State { return State(s.state.Load()) }

func (s *Subscription[T]) established(d asyncpush.Disposable, err error) (*Subscription[T], error) {
	if err != nil {
		s.state.Store(int32(StateDisposed))
		s.close()
		s.log.Warn("async subscription failed", logger.MergeWithError(nil, err))
		s.opts.metrics.RecordError(context.Background(), string(apperrors.ErrCodeSubscriptionFailure), "adapter")
		return nil, apperrors.SubscriptionFailure(s.opts.name, err)
	}
	_ = s.upstream.Set(context.Background(), d)
	s.state.CompareAndSwap(int32(StateSubscribing), int32(StateActive))
	s.log.Debug("async subscription established", logger.Fields(logger.FieldState, s.State().String()))
	return s, nil
}

// abandon gives up on a subscription whose establishment did not finish.
func (s *Subscription[T]) abandon() {
	s.state.Store(int32(StateDisposed))
	_ = s.upstream.Dispose(context.Background())
	s.close()
}

// OnNext forwards a value. Values after a terminal notification or disposal
// are dropped.
func (s *Subscription[T]) OnNext(_ context.Context, v T) error {
	s.fwd.Lock()
	defer s.fwd.Unlock()
	if s.State().Final() {
		return nil
	}
	s.opts.metrics.RecordNotification(s.ctx, DirectionToPush, "next")
	s.deliver(func() { s.down.OnNext(v) })
	return nil
}

// deliver runs a downstream callback. The caller holds fwd.
func (s *Subscription[T]) deliver(send func()) {
	s.delivering.Store(true)
	defer s.delivering.Store(false)
	send()
}

func (s *Subscription[T]) OnError(ctx context.Context, err error) error {
	return s.terminate(ctx, StateErrored, func() { s.down.OnError(err) })
}

func (s *Subscription[T]) OnCompleted(ctx context.Context) error {
	return s.terminate(ctx, StateCompleted, s.down.OnCompleted)
}

func (s *Subscription[T]) terminate(ctx context.Context, to State, send func()) error {
	s.fwd.Lock()
	if !s.transition(to) {
		s.fwd.Unlock()
		return nil
	}
	kind := "completed"
	if to == StateErrored {
		kind = "error"
	}
	s.opts.metrics.RecordNotification(s.ctx, DirectionToPush, kind)
	s.deliver(send)
	s.fwd.Unlock()

	err := s.upstream.Dispose(context.WithoutCancel(ctx))
	s.close()
	s.log.Debug("async subscription ended", logger.Fields(logger.FieldState, to.String()))
	return err
}

// transition moves a live subscription to a final state.
func (s *Subscription[T]) transition(to State) bool {
	for {
		cur := State(s.state.Load())
		if cur.Final() {
			return false
		}
		if s.state.CompareAndSwap(int32(cur), int32(to)) {
			return true
		}
	}
}

func (s *Subscription[T]) close() {
	s.closeOnce.Do(func() {
		s.opts.metrics.SubscriptionClosed(context.Background(), DirectionToPush)
		s.cancel()
	})
}

// Dispose implements push.Disposable. It waits for the async disposal for at
// most the configured dispose timeout; failures are logged.
func (s *Subscription[T]) Dispose() {
	ctx, cancel := withTimeout(s.opts.disposeTimeout)
	defer cancel()
	if err := s.DisposeContext(ctx); err != nil {
		s.log.Warn("dispose failed", logger.MergeWithError(nil, err))
	}
}

// DisposeContext stops forwarding at once and waits until the async
// subscription has been disposed or ctx ends. No notification starts to be
// delivered after it returns; a callback already running, including the one
// disposing from inside, finishes normally. The underlying disposal runs at
// most once; every call reports its outcome.
func (s *Subscription[T]) DisposeContext(ctx context.Context) error {
	s.transition(StateDisposed)
	if !s.delivering.Load() {
		// Wait out a forward that passed its state check before the
		// transition but has not reached the downstream observer yet.
		s.fwd.Lock()
		s.fwd.Unlock() //nolint:staticcheck // empty critical section
	}

	s.disposeOnce.Do(func() {
		run := func() {
			s.disposeErr = s.upstream.Dispose(context.WithoutCancel(ctx))
			s.close()
			close(s.disposed)
		}
		if ctx.Done() == nil {
			run()
			return
		}
		go run()
	})

	select {
	case <-s.disposed:
		if s.disposeErr != nil {
			return apperrors.Internal(s.disposeErr)
		}
		return nil
	case <-ctx.Done():
		return apperrors.Timeout("dispose").WithCause(ctx.Err())
	}
}
