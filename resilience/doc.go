// Package resilience bounds the pipeline work a process accepts at once.
//
// A Bulkhead admits up to MaxConcurrent runs; further runs wait up to MaxWait
// for a slot and are then rejected with SERVICE_UNAVAILABLE:
//
//	bh := resilience.NewBulkhead(resilience.BulkheadConfig{
//	    Name:          "pipeline runs",
//	    MaxConcurrent: 64,
//	    MaxWait:       time.Second,
//	})
//	values, err := resilience.ExecuteWithResult(ctx, bh, func(ctx context.Context) ([]any, error) {
//	    return plan.Run(ctx, raw)
//	})
package resilience
