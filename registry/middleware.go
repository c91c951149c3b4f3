package registry

import (
	"context"
	"time"

	"github.com/idg10/rxrewrite/expr"
	"github.com/idg10/rxrewrite/logger"
	"github.com/idg10/rxrewrite/observability"
)

// WithTracing starts a span named "{prefix}.{operator}" around each
// application of an operator.
func WithTracing(prefix string) Middleware {
	return func(m expr.Model, op *expr.Operator, next expr.Impl) expr.Impl {
		name := prefix + "." + op.Name
		shapes := expr.ShapeStrings(op.Params)
		return func(args []any) (any, error) {
			ctx, span := observability.StartSpan(context.Background(), name)
			defer span.End()

			observability.SetSpanAttribute(ctx, observability.AttrOperator, op.Name)
			observability.SetSpanAttribute(ctx, observability.AttrModel, m.String())
			observability.SetSpanAttribute(ctx, observability.AttrShapes, shapes)

			out, err := next(args)
			if err != nil {
				observability.SetSpanError(ctx, err)
			}
			return out, err
		}
	}
}

// WithMetrics counts operator applications by outcome.
func WithMetrics(metrics *observability.Metrics) Middleware {
	return func(m expr.Model, op *expr.Operator, next expr.Impl) expr.Impl {
		return func(args []any) (any, error) {
			out, err := next(args)
			status := "ok"
			if err != nil {
				status = "error"
				metrics.RecordError(context.Background(), "apply", op.Name)
			}
			metrics.RecordOperator(context.Background(), m.String(), op.Name, status)
			return out, err
		}
	}
}

// WithLogging logs each application of an operator.
func WithLogging(log *logger.Logger) Middleware {
	return func(m expr.Model, op *expr.Operator, next expr.Impl) expr.Impl {
		shapes := expr.ShapeStrings(op.Params)
		return func(args []any) (any, error) {
			start := time.Now()
			out, err := next(args)

			fields := logger.OperatorFields(m.String(), op.Name, shapes)
			fields[logger.FieldDuration] = time.Since(start).Milliseconds()
			if err != nil {
				log.Error("operator application failed", logger.MergeWithError(fields, err))
			} else {
				log.Debug("operator applied", fields)
			}
			return out, err
		}
	}
}
