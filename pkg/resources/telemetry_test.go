package resources

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	otelog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"calendar-photo-converter/pkg/config"
)

// memoryLogExporter keeps every exported log record.
type memoryLogExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (e *memoryLogExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, r := range records {
		e.records = append(e.records, r.Clone())
	}

	return nil
}

func (e *memoryLogExporter) Shutdown(context.Context) error { return nil }

func (e *memoryLogExporter) ForceFlush(context.Context) error { return nil }

func (e *memoryLogExporter) Records() []sdklog.Record {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]sdklog.Record(nil), e.records...)
}

func attributesOf(r sdklog.Record) map[string]otelog.Value {
	attrs := make(map[string]otelog.Value)
	r.WalkAttributes(func(kv otelog.KeyValue) bool {
		attrs[kv.Key] = kv.Value
		return true
	})

	return attrs
}

func metricNames(rm metricdata.ResourceMetrics) []string {
	var names []string

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names = append(names, m.Name)
		}
	}

	return names
}

func testConfig(endpoint string) config.Config {
	return config.Config{
		Name:      "calendar-photo-converter",
		Version:   "1.0",
		Env:       "test",
		Telemetry: config.Telemetry{Endpoint: endpoint, Insecure: true},
	}
}

// Not parallel: installs the process wide providers.
func TestTelemetry_Install(t *testing.T) {
	spans := tracetest.NewInMemoryExporter()
	reader := sdkmetric.NewManualReader()
	logs := new(memoryLogExporter)

	telemetry := NewTelemetry(NewResource(testConfig("")), spans, reader, sdklog.NewSimpleProcessor(logs))
	telemetry.Install()

	ctx := context.Background()

	_, span := otel.Tracer("test").Start(ctx, "analyze")
	span.End()

	counter, err := otel.Meter("test").Int64Counter("extractions")
	require.NoError(t, err)
	counter.Add(ctx, 2)

	var rec otelog.Record
	rec.SetBody(otelog.StringValue("hello"))
	global.GetLoggerProvider().Logger("test").Emit(ctx, rec)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	assert.Contains(t, metricNames(rm), "extractions")

	require.Len(t, logs.Records(), 1)
	assert.Equal(t, "hello", logs.Records()[0].Body().AsString())

	require.NoError(t, telemetry.TracerProvider.ForceFlush(ctx))
	require.Len(t, spans.GetSpans(), 1)
	assert.Equal(t, "analyze", spans.GetSpans()[0].Name)

	require.NoError(t, telemetry.Shutdown(ctx))
}

func TestCreateTelemetry_Disabled(t *testing.T) {
	stop, err := CreateTelemetry(context.Background(), testConfig(""))
	require.NoError(t, err)
	require.NotNil(t, stop)

	assert.NotPanics(t, func() { stop(context.Background(), time.Second) })
}

// Not parallel: installs the process wide providers. The exporters dial
// lazily, so no collector has to be listening.
func TestCreateTelemetry_Enabled(t *testing.T) {
	stop, err := CreateTelemetry(context.Background(), testConfig("127.0.0.1:4317"))
	require.NoError(t, err)

	assert.IsType(t, &sdkmetric.MeterProvider{}, otel.GetMeterProvider())
	assert.IsType(t, &sdklog.LoggerProvider{}, global.GetLoggerProvider())

	stop(context.Background(), 100*time.Millisecond)
}
