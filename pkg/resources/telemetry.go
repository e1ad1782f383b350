package resources

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"calendar-photo-converter/pkg/config"
)

type StopFn func(ctx context.Context, timeout time.Duration)

func nopStop(context.Context, time.Duration) {}

// Telemetry holds the three SDK providers behind the otel globals.
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	LoggerProvider *sdklog.LoggerProvider
}

// NewTelemetry builds the providers around already created exporters. Traces
// and logs are batched, metrics are pulled by the given reader.
func NewTelemetry(res *resource.Resource, spans sdktrace.SpanExporter, metrics sdkmetric.Reader, logs sdklog.Processor) *Telemetry {
	return &Telemetry{
		TracerProvider: sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(spans),
			sdktrace.WithResource(res),
		),
		MeterProvider: sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(metrics),
			sdkmetric.WithResource(res),
		),
		LoggerProvider: sdklog.NewLoggerProvider(
			sdklog.WithProcessor(logs),
			sdklog.WithResource(res),
		),
	}
}

// Install makes the providers the process wide otel globals.
func (t *Telemetry) Install() {
	otel.SetTracerProvider(t.TracerProvider)
	otel.SetMeterProvider(t.MeterProvider)
	global.SetLoggerProvider(t.LoggerProvider)
}

// Shutdown flushes and stops every provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return errors.Join(
		t.TracerProvider.Shutdown(ctx),
		t.MeterProvider.Shutdown(ctx),
		t.LoggerProvider.Shutdown(ctx),
	)
}

func NewResource(cfg config.Config) *resource.Resource {
	return resource.NewWithAttributes(semconv.SchemaURL,
		semconv.ServiceName(cfg.Name),
		semconv.ServiceVersion(cfg.Version),
		attribute.String("deployment.environment", cfg.Env),
	)
}

// CreateTelemetry exports traces, metrics and logs over OTLP/gRPC and installs
// the providers globally. Without an endpoint the otel no-op globals stay.
func CreateTelemetry(ctx context.Context, cfg config.Config) (StopFn, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if cfg.Telemetry.Endpoint == "" {
		log.Ctx(ctx).Info().Str("stage", "startup").Str("component", "telemetry").Msg("telemetry export disabled")
		return nopStop, nil
	}

	telemetry, err := newOTLPTelemetry(ctx, cfg)
	if err != nil {
		return nopStop, err
	}

	telemetry.Install()

	log.Ctx(ctx).Info().Str("stage", "startup").Str("component", "telemetry").
		Str("endpoint", cfg.Telemetry.Endpoint).Msg("telemetry export enabled")

	return func(ctx context.Context, timeout time.Duration) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		err := telemetry.Shutdown(ctx)
		if err != nil {
			log.Ctx(ctx).Error().Str("stage", "shut down").Str("component", "telemetry").Err(err).Msg("failed to stop telemetry")
		}
	}, nil
}

func newOTLPTelemetry(ctx context.Context, cfg config.Config) (*Telemetry, error) {
	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Telemetry.Endpoint)}
	metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Telemetry.Endpoint)}
	logOpts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.Telemetry.Endpoint)}

	if cfg.Telemetry.Insecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
		logOpts = append(logOpts, otlploggrpc.WithInsecure())
	}

	spans, err := otlptracegrpc.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create the OTLP trace exporter: %w", err)
	}

	metrics, err := otlpmetricgrpc.New(ctx, metricOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create the OTLP metric exporter: %w", err)
	}

	logs, err := otlploggrpc.New(ctx, logOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create the OTLP log exporter: %w", err)
	}

	return NewTelemetry(NewResource(cfg), spans, sdkmetric.NewPeriodicReader(metrics), sdklog.NewBatchProcessor(logs)), nil
}
