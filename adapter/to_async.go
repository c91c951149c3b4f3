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

// ToAsync adapts a push stream to the async-push model.
func ToAsync[T any](src push.Observable[T], opts ...Option) asyncpush.Observable[T] {
	return &asyncObservable[T]{src: src, opts: newOptions(opts)}
}

type asyncObservable[T any] struct {
	src  push.Observable[T]
	opts options
}

// Subscribe establishes the push subscription and returns once it exists.
func (a *asyncObservable[T]) Subscribe(ctx context.Context, o asyncpush.Observer[T]) (asyncpush.Disposable, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.SubscriptionFailure(a.opts.name, err)
	}

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	f := &forwarder[T]{
		ctx:    subCtx,
		cancel: cancel,
		down:   o,
		opts:   a.opts,
		log: a.opts.log.WithFields(logger.Fields(
			logger.FieldSubscriptionID, uuid.NewString(),
			"direction", DirectionToAsync,
		)),
	}
	a.opts.metrics.SubscriptionOpened(subCtx, DirectionToAsync)

	d, err := a.src.Subscribe(f)
	if err != nil {
		f.stopped.Store(true)
		f.close()
		f.log.Warn("push subscription failed", logger.MergeWithError(nil, err))
		return nil, apperrors.SubscriptionFailure(a.opts.name, err)
	}
	f.upstream.Set(d)
	f.log.Debug("push subscription established")
	return f, nil
}

// forwarder receives push callbacks and forwards them as awaited
// notifications. mu serialises forwarding; stopped is read without it so
// that disposal from inside a callback cannot deadlock.
type forwarder[T any] struct {
	ctx    context.Context
	cancel context.CancelFunc
	down   asyncpush.Observer[T]
	opts   options
	log    *logger.Logger

	mu        sync.Mutex
	stopped   atomic.Bool
	upstream  push.SingleAssignment
	closeOnce sync.Once
}

func (f *forwarder[T]) OnNext(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped.Load() {
		return
	}
	f.opts.metrics.RecordNotification(f.ctx, DirectionToAsync, "next")
	if err := f.down.OnNext(f.ctx, v); err != nil {
		f.nack(err)
	}
}

func (f *forwarder[T]) OnError(err error) {
	f.terminate("error", func() error { return f.down.OnError(f.ctx, err) })
}

func (f *forwarder[T]) OnCompleted() {
	f.terminate("completed", func() error { return f.down.OnCompleted(f.ctx) })
}

func (f *forwarder[T]) terminate(kind string, send func() error) {
	f.mu.Lock()
	if !f.stopped.CompareAndSwap(false, true) {
		f.mu.Unlock()
		return
	}
	f.opts.metrics.RecordNotification(f.ctx, DirectionToAsync, kind)
	ack := send()
	f.mu.Unlock()

	if ack != nil {
		f.log.Warn("terminal notification not acknowledged", logger.MergeWithError(
			logger.Fields(logger.FieldNotification, kind), ack))
	}
	f.detach()
	f.log.Debug("push subscription ended", logger.Fields(logger.FieldNotification, kind))
}

// nack handles a failed acknowledgement: the receiver cannot take more, so
// the push upstream is released. Called with mu held.
func (f *forwarder[T]) nack(err error) {
	f.stopped.Store(true)
	f.log.Warn("notification not acknowledged, detaching", logger.MergeWithError(nil, err))
	f.opts.metrics.RecordError(f.ctx, string(apperrors.ErrCodeNotificationFailure), "adapter")
	f.detach()
}

func (f *forwarder[T]) detach() {
	f.upstream.Dispose()
	f.close()
}

func (f *forwarder[T]) close() {
	f.closeOnce.Do(func() {
		f.opts.metrics.SubscriptionClosed(f.ctx, DirectionToAsync)
		f.cancel()
	})
}

// Dispose releases the push subscription. It never blocks on forwarding.
func (f *forwarder[T]) Dispose(context.Context) error {
	f.stopped.Store(true)
	f.detach()
	return nil
}
