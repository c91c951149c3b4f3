package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/idg10/rxrewrite/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments of the rewriting engine and its adapters.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	rewriteTotal        metric.Int64Counter
	rewriteDuration     metric.Float64Histogram
	operatorTotal       metric.Int64Counter
	subscriptionsActive metric.Int64UpDownCounter
	notificationTotal   metric.Int64Counter
	errorTotal          metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	rewriteTotal, err := meter.Int64Counter("rxrewrite.rewrite.total",
		metric.WithDescription("Pipelines rewritten and compiled, by status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rewrite.total counter: %w", err)
	}

	rewriteDuration, err := meter.Float64Histogram("rxrewrite.rewrite.duration",
		metric.WithDescription("Duration of rewrite and compile in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rewrite.duration histogram: %w", err)
	}

	operatorTotal, err := meter.Int64Counter("rxrewrite.operator.total",
		metric.WithDescription("Operator applications, by model, operator and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating operator.total counter: %w", err)
	}

	subscriptionsActive, err := meter.Int64UpDownCounter("rxrewrite.adapter.subscriptions.active",
		metric.WithDescription("Adapter subscriptions currently active, by direction"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating adapter.subscriptions.active gauge: %w", err)
	}

	notificationTotal, err := meter.Int64Counter("rxrewrite.adapter.notifications.total",
		metric.WithDescription("Notifications forwarded by adapters, by direction and kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating adapter.notifications.total counter: %w", err)
	}

	errorTotal, err := meter.Int64Counter("rxrewrite.error.total",
		metric.WithDescription("Errors by code and component"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating error.total counter: %w", err)
	}

	return &Metrics{
		rewriteTotal:        rewriteTotal,
		rewriteDuration:     rewriteDuration,
		operatorTotal:       operatorTotal,
		subscriptionsActive: subscriptionsActive,
		notificationTotal:   notificationTotal,
		errorTotal:          errorTotal,
	}, nil
}

// RecordRewrite records one rewrite-and-compile of a pipeline.
func (m *Metrics) RecordRewrite(ctx context.Context, model, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.rewriteTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("status", status),
	))
	m.rewriteDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("model", model),
	))
}

// RecordOperator records the application of an operator implementation.
func (m *Metrics) RecordOperator(ctx context.Context, model, operator, status string) {
	if m == nil {
		return
	}
	m.operatorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("operator", operator),
		attribute.String("status", status),
	))
}

// SubscriptionOpened increments the active subscriptions of an adapter direction.
func (m *Metrics) SubscriptionOpened(ctx context.Context, direction string) {
	if m == nil {
		return
	}
	m.subscriptionsActive.Add(ctx, 1, metric.WithAttributes(attribute.String("direction", direction)))
}

// SubscriptionClosed decrements the active subscriptions of an adapter direction.
func (m *Metrics) SubscriptionClosed(ctx context.Context, direction string) {
	if m == nil {
		return
	}
	m.subscriptionsActive.Add(ctx, -1, metric.WithAttributes(attribute.String("direction", direction)))
}

// RecordNotification counts a notification forwarded by an adapter.
func (m *Metrics) RecordNotification(ctx context.Context, direction, kind string) {
	if m == nil {
		return
	}
	m.notificationTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("direction", direction),
		attribute.String("kind", kind),
	))
}

// RecordError records an error by code and component.
func (m *Metrics) RecordError(ctx context.Context, code, component string) {
	if m == nil {
		return
	}
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
		attribute.String("component", component),
	))
}
