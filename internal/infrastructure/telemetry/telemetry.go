// Package telemetry exports the console's traces and logs to an
// OpenTelemetry collector.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds telemetry configuration.
type Config struct {
	Enabled       bool
	Endpoint      string // collector gRPC endpoint, host:port
	Insecure      bool
	SamplingRatio float64
	ServiceName   string
	Logs          bool // also export log records
}

// Provider owns the trace and log pipelines. A disabled Provider is valid
// and does nothing.
type Provider struct {
	tracer *sdktrace.TracerProvider
	logs   *sdklog.LoggerProvider
	name   string
}

// Setup connects to the collector and installs the global tracer provider,
// propagator and logger provider. Exporters connect lazily, so an
// unreachable collector does not fail the command.
func Setup(ctx context.Context, cfg Config, logger *zap.Logger) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{name: cfg.ServiceName}, nil
	}

	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
	}
	spans, err := otlptracegrpc.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	var records sdklog.Exporter
	if cfg.Logs {
		logOpts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			logOpts = append(logOpts, otlploggrpc.WithInsecure())
		}
		records, err = otlploggrpc.New(ctx, logOpts...)
		if err != nil {
			_ = spans.Shutdown(ctx)
			return nil, fmt.Errorf("failed to create OTLP logs exporter: %w", err)
		}
	}

	p, err := newProvider(cfg, sdktrace.WithBatcher(spans), records, true)
	if err != nil {
		return nil, err
	}

	otel.SetTracerProvider(p.tracer)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	if p.logs != nil {
		global.SetLoggerProvider(p.logs)
	}

	logger.Debug("telemetry enabled",
		zap.String("endpoint", cfg.Endpoint),
		zap.Float64("sampling_ratio", cfg.SamplingRatio),
		zap.Bool("logs", cfg.Logs))
	return p, nil
}

// newProvider builds the pipelines around already created exporters.
// batch selects batching log processing; tests use synchronous export.
func newProvider(cfg Config, spans sdktrace.TracerProviderOption, records sdklog.Exporter, batch bool) (*Provider, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	p := &Provider{name: cfg.ServiceName}
	p.tracer = sdktrace.NewTracerProvider(
		spans,
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler(cfg.SamplingRatio))),
	)
	if records != nil {
		var processor sdklog.Processor = sdklog.NewSimpleProcessor(records)
		if batch {
			processor = sdklog.NewBatchProcessor(records)
		}
		p.logs = sdklog.NewLoggerProvider(sdklog.WithResource(res), sdklog.WithProcessor(processor))
	}
	return p, nil
}

func sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(ratio)
	}
}

// Enabled reports whether traces are exported.
func (p *Provider) Enabled() bool {
	return p.tracer != nil
}

// TracerProvider returns the exporting provider, or a no-op one.
func (p *Provider) TracerProvider() trace.TracerProvider {
	if p.tracer == nil {
		return noop.NewTracerProvider()
	}
	return p.tracer
}

// Bridge returns l teed into the log pipeline for entries at level or
// above. Without a log pipeline l is returned unchanged.
func (p *Provider) Bridge(l *zap.Logger, level zapcore.Level) *zap.Logger {
	if p.logs == nil {
		return l
	}
	bridge := &levelCore{
		Core: otelzap.NewCore(p.name, otelzap.WithLoggerProvider(p.logs)),
		min:  level,
	}
	return l.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, bridge)
	}))
}

// Shutdown flushes and stops both pipelines.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.tracer != nil {
		if err := p.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if p.logs != nil {
		if err := p.logs.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("logger provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

// levelCore drops entries below min before they reach the bridge.
type levelCore struct {
	zapcore.Core
	min zapcore.Level
}

func (c *levelCore) Enabled(lvl zapcore.Level) bool {
	return lvl >= c.min && c.Core.Enabled(lvl)
}

func (c *levelCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(entry.Level) {
		return ce
	}
	return c.Core.Check(entry, ce)
}

func (c *levelCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelCore{Core: c.Core.With(fields), min: c.min}
}
