package adapter

import (
	"context"
	"time"

	"github.com/idg10/rxrewrite/logger"
	"github.com/idg10/rxrewrite/observability"
)

// Directions used in logs and metrics.
const (
	DirectionToAsync = "to-async"
	DirectionToPush  = "to-push"
)

type options struct {
	name             string
	log              *logger.Logger
	metrics          *observability.Metrics
	subscribeTimeout time.Duration
	disposeTimeout   time.Duration
}

// Option configures an adapter.
type Option func(*options)

// WithName names the adapted stream in errors and logs.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l.WithComponent("adapter") }
}

// WithMetrics records subscriptions and notifications.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithSubscribeTimeout bounds Subscribe. Zero waits indefinitely.
func WithSubscribeTimeout(d time.Duration) Option {
	return func(o *options) { o.subscribeTimeout = d }
}

// WithDisposeTimeout bounds Dispose. Zero waits indefinitely.
func WithDisposeTimeout(d time.Duration) Option {
	return func(o *options) { o.disposeTimeout = d }
}

func newOptions(opts []Option) options {
	o := options{name: "stream", log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func withTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.Background(), func() {}
	}
	return context.WithTimeout(context.Background(), d)
}
