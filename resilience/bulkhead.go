package resilience

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/idg10/rxrewrite/errors"
)

// Causes of a rejection, reachable with errors.Is.
var (
	ErrBulkheadFull    = errors.New("bulkhead is full")
	ErrBulkheadTimeout = errors.New("bulkhead wait timeout")
)

// BulkheadConfig configures a bulkhead.
type BulkheadConfig struct {
	// Name identifies the bulkhead in errors and callbacks.
	Name string
	// MaxConcurrent is the number of slots. Zero or less means unlimited.
	MaxConcurrent int
	// MaxWait is how long to wait for a slot. 0 means fail immediately.
	MaxWait time.Duration
	// OnReject is called when a caller is turned away.
	OnReject func(name string, err error)
}

// Bulkhead limits concurrent executions. A nil *Bulkhead admits every call.
type Bulkhead struct {
	config BulkheadConfig
	sem    chan struct{}
}

// NewBulkhead creates a bulkhead, or returns nil when MaxConcurrent leaves
// execution unlimited.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		return nil
	}
	if config.Name == "" {
		config.Name = "bulkhead"
	}
	return &Bulkhead{
		config: config,
		sem:    make(chan struct{}, config.MaxConcurrent),
	}
}

// Acquire takes a slot. The returned release must be called exactly once.
// Rejections are SERVICE_UNAVAILABLE errors; a ctx that ends while waiting
// yields TIMEOUT.
func (b *Bulkhead) Acquire(ctx context.Context) (release func(), err error) {
	if b == nil {
		return func() {}, nil
	}
	if err := b.acquire(ctx); err != nil {
		if b.config.OnReject != nil {
			b.config.OnReject(b.config.Name, err)
		}
		return nil, err
	}
	return func() { <-b.sem }, nil
}

// Execute runs fn in a slot.
func (b *Bulkhead) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	release, err := b.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx)
}

// ExecuteWithResult runs fn in a slot of b and returns its result.
func ExecuteWithResult[T any](ctx context.Context, b *Bulkhead, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := b.Execute(ctx, func(ctx context.Context) error {
		var fnErr error
		result, fnErr = fn(ctx)
		return fnErr
	})
	return result, err
}

func (b *Bulkhead) acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	default:
	}

	if b.config.MaxWait <= 0 {
		return b.rejected(ErrBulkheadFull)
	}

	timer := time.NewTimer(b.config.MaxWait)
	defer timer.Stop()

	select {
	case b.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return b.rejected(ErrBulkheadTimeout)
	case <-ctx.Done():
		return apperrors.Timeout(b.config.Name).WithCause(ctx.Err())
	}
}

func (b *Bulkhead) rejected(cause error) error {
	return apperrors.ServiceUnavailable(b.config.Name).
		WithDetail("max_concurrent", b.config.MaxConcurrent).
		WithCause(cause)
}

// Available returns the number of free slots. Unlimited bulkheads report -1.
func (b *Bulkhead) Available() int {
	if b == nil {
		return -1
	}
	return b.config.MaxConcurrent - len(b.sem)
}

// InUse returns the number of slots taken.
func (b *Bulkhead) InUse() int {
	if b == nil {
		return 0
	}
	return len(b.sem)
}
