// Package observability provides OpenTelemetry tracing and metrics for the
// rewriting engine.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, &tracerCfg)
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanRewrite)
//	defer span.End()
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, &meterCfg)
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("rxrewrite"))
//	metrics.RecordRewrite(ctx, "async-push", "ok", duration)
package observability
