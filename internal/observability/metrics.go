package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sandeepkv93/secure-credential-service/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/exemplar"
)

type AppMetrics struct {
	loginOutcomes        metric.Int64Counter
	reconcileOperations  metric.Int64Counter
	rehashEvents         metric.Int64Counter
	migrationEvents      metric.Int64Counter
	passwordHashDuration metric.Float64Histogram
	httpReqDuration      metric.Float64Histogram
	healthCheckResults   metric.Int64Counter
	toolCommandRuns      metric.Int64Counter
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := serviceResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
		sdkmetric.WithExemplarFilter(exemplar.TraceBasedFilter),
		sdkmetric.WithView(sdkmetric.NewView(
			sdkmetric.Instrument{Name: "credential.hash.duration"},
			sdkmetric.Stream{
				Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
					Boundaries: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
				},
			},
		)),
	)
	otel.SetMeterProvider(mp)

	m, err := newAppMetrics(mp.Meter(instrumentationScope))
	if err != nil {
		return nil, err
	}
	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func newAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	loginOutcomes, err := meter.Int64Counter("credential.login.outcomes")
	if err != nil {
		return nil, err
	}
	reconcileOperations, err := meter.Int64Counter("credential.reconcile.operations")
	if err != nil {
		return nil, err
	}
	rehashEvents, err := meter.Int64Counter("credential.rehash.events")
	if err != nil {
		return nil, err
	}
	migrationEvents, err := meter.Int64Counter("credential.migration.events")
	if err != nil {
		return nil, err
	}
	passwordHashDuration, err := meter.Float64Histogram(
		"credential.hash.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Duration of password hash derivations in seconds"),
	)
	if err != nil {
		return nil, err
	}
	httpReqDuration, err := meter.Float64Histogram(
		"credential.http.request.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Duration of credential endpoint requests in seconds"),
	)
	if err != nil {
		return nil, err
	}
	healthCheckResults, err := meter.Int64Counter("health.check.results")
	if err != nil {
		return nil, err
	}
	toolCommandRuns, err := meter.Int64Counter("tool.command.runs")
	if err != nil {
		return nil, err
	}
	return &AppMetrics{
		loginOutcomes:        loginOutcomes,
		reconcileOperations:  reconcileOperations,
		rehashEvents:         rehashEvents,
		migrationEvents:      migrationEvents,
		passwordHashDuration: passwordHashDuration,
		httpReqDuration:      httpReqDuration,
		healthCheckResults:   healthCheckResults,
		toolCommandRuns:      toolCommandRuns,
	}, nil
}

func currentMetrics() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

func RecordCredentialLogin(ctx context.Context, keyType, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.loginOutcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("key_type", keyType),
		attribute.String("outcome", outcome),
	))
}

func RecordCredentialReconcile(ctx context.Context, mode, operation string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.reconcileOperations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("operation", operation),
	))
}

func RecordCredentialRehash(ctx context.Context, reason string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.rehashEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func RecordCredentialMigration(ctx context.Context, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.migrationEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordPasswordHashDuration(ctx context.Context, operation string, duration time.Duration) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.passwordHashDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

func RecordHTTPRequestDuration(ctx context.Context, endpoint, status string, duration time.Duration) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.httpReqDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("status", status),
	))
}

func RecordHealthCheckResult(ctx context.Context, check, result string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.healthCheckResults.Add(ctx, 1, metric.WithAttributes(
		attribute.String("check", check),
		attribute.String("result", result),
	))
}

func RecordToolCommandRun(ctx context.Context, tool, command, status string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.toolCommandRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("command", command),
		attribute.String("status", status),
	))
}
