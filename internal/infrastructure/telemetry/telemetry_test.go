package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

// memoryLogs keeps exported log bodies.
type memoryLogs struct {
	mu     sync.Mutex
	bodies []string
}

func (m *memoryLogs) Export(_ context.Context, records []sdklog.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.bodies = append(m.bodies, r.Body().AsString())
	}
	return nil
}

func (m *memoryLogs) Shutdown(context.Context) error   { return nil }
func (m *memoryLogs) ForceFlush(context.Context) error { return nil }

func (m *memoryLogs) Bodies() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.bodies...)
}

func TestSetup_Disabled(t *testing.T) {
	logger := zaptest.NewLogger(t)

	p, err := Setup(context.Background(), Config{ServiceName: "erp-console"}, logger)
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	_, span := p.TracerProvider().Tracer("x").Start(context.Background(), "span")
	assert.False(t, span.IsRecording())
	assert.Same(t, logger, p.Bridge(logger, zapcore.InfoLevel))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestProvider_ExportsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	p, err := newProvider(Config{ServiceName: "erp-console", SamplingRatio: 1}, sdktrace.WithSyncer(exporter), nil, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	_, span := p.TracerProvider().Tracer("test").Start(context.Background(), "GET /api/products")
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/products", spans[0].Name)
	var service string
	for _, kv := range spans[0].Resource.Attributes() {
		if kv.Key == "service.name" {
			service = kv.Value.AsString()
		}
	}
	assert.Equal(t, "erp-console", service)
	assert.True(t, p.Enabled())
}

func TestProvider_ZeroRatioSamplesNothing(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	p, err := newProvider(Config{ServiceName: "erp-console"}, sdktrace.WithSyncer(exporter), nil, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	_, span := p.TracerProvider().Tracer("test").Start(context.Background(), "dropped")
	span.End()

	assert.Empty(t, exporter.GetSpans())
}

func TestProvider_BridgeFiltersByLevel(t *testing.T) {
	logs := &memoryLogs{}
	p, err := newProvider(Config{ServiceName: "erp-console", SamplingRatio: 1},
		sdktrace.WithSyncer(tracetest.NewInMemoryExporter()), logs, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	logger := p.Bridge(zap.NewNop(), zapcore.WarnLevel).With(zap.String("resource", "products"))
	logger.Info("load started")
	logger.Warn("load failed")
	logger.Error("session expired")

	assert.Equal(t, []string{"load failed", "session expired"}, logs.Bodies())
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), sampler(0).Description())
	assert.Equal(t, sdktrace.TraceIDRatioBased(0.25).Description(), sampler(0.25).Description())
}
