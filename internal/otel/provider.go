// Package otel bootstraps the OpenTelemetry SDK for the process: service identity,
// OTLP trace and metric exporters, sampler, propagators and the list of enabled
// instrumentations.
package otel

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"demoapi/internal/config"
)

// Instrumentation names accepted in the disabled list.
const (
	HTTPServer  = "http-server"
	HTTPClient  = "http-client"
	DatabaseSQL = "database-sql"
	Filesystem  = "fs"
)

// Instrumentations lists every instrumentation the process knows about.
var Instrumentations = []string{HTTPServer, HTTPClient, DatabaseSQL, Filesystem}

var ErrAlreadyStarted = errors.New("telemetry already started")

// Exporter factories, replaced in tests.
var (
	newTraceExporter = defaultTraceExporter
	newMetricReader  = defaultMetricReader
)

// Provider owns the process-wide tracer and meter providers.
type Provider struct {
	cfg      config.TelemetryConfig
	log      *zap.Logger
	disabled map[string]bool

	mu       sync.Mutex
	started  bool
	shutdown bool
	tp       *sdktrace.TracerProvider
	mp       *sdkmetric.MeterProvider
}

// New returns an unstarted provider.
func New(cfg config.TelemetryConfig, log *zap.Logger) *Provider {
	disabled := make(map[string]bool, len(cfg.DisabledInstrumentations))
	for _, name := range cfg.DisabledInstrumentations {
		disabled[strings.ToLower(name)] = true
	}
	return &Provider{cfg: cfg, log: log, disabled: disabled}
}

// Enabled reports whether the named instrumentation should be installed.
func (p *Provider) Enabled(name string) bool {
	return !p.disabled[strings.ToLower(name)]
}

// Start builds the SDK providers and installs them as the otel globals.
// Exporter failures degrade to noop providers instead of failing the process.
func (p *Provider) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return ErrAlreadyStarted
	}
	p.started = true

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	if p.cfg.Disabled {
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
		p.log.Info("tracing_configured", zap.Bool("tracing_enabled", false))
		return nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(p.cfg.ServiceName),
			semconv.ServiceVersion(p.cfg.ServiceVersion),
			semconv.DeploymentEnvironment(p.cfg.Environment),
		),
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
	)
	if err != nil {
		if res == nil {
			return fmt.Errorf("failed to create resource: %w", err)
		}
		p.log.Warn("resource_partially_detected", zap.Error(err))
	}

	exporter, err := newTraceExporter(ctx, p.cfg)
	if err != nil {
		p.log.Error("tracing_init_failed", zap.Error(err))
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
	} else {
		p.tp = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sampler(p.cfg.Sampler, p.cfg.SamplerArg)),
		)
		otel.SetTracerProvider(p.tp)
	}

	reader, err := newMetricReader(ctx, p.cfg)
	if err != nil {
		p.log.Error("metrics_init_failed", zap.Error(err))
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
	} else {
		p.mp = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(reader),
		)
		otel.SetMeterProvider(p.mp)
	}

	p.log.Info("tracing_configured",
		zap.Bool("tracing_enabled", p.tp != nil),
		zap.Bool("metrics_enabled", p.mp != nil),
		zap.String("otlp_protocol", p.cfg.Protocol),
		zap.String("otlp_endpoint", p.cfg.Endpoint),
		zap.String("sampler", p.cfg.Sampler),
		zap.String("sampler_arg", p.cfg.SamplerArg),
		zap.Strings("instrumentations", p.enabledList()),
	)
	return nil
}

// Shutdown flushes pending spans and metrics and releases the exporters.
// Only the first call does work.
func (p *Provider) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shutdown {
		return nil
	}
	p.shutdown = true

	var errs []error
	if p.tp != nil {
		if err := p.tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("trace provider shutdown: %w", err))
		}
	}
	if p.mp != nil {
		if err := p.mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

// ForceFlush exports everything buffered so far without shutting down.
func (p *Provider) ForceFlush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.tp != nil {
		errs = append(errs, p.tp.ForceFlush(ctx))
	}
	if p.mp != nil {
		errs = append(errs, p.mp.ForceFlush(ctx))
	}
	return errors.Join(errs...)
}

// TracerProvider returns the SDK tracer provider, or the global one when not started.
func (p *Provider) TracerProvider() trace.TracerProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tp == nil {
		return otel.GetTracerProvider()
	}
	return p.tp
}

// MeterProvider returns the SDK meter provider, or the global one when not started.
func (p *Provider) MeterProvider() metric.MeterProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mp == nil {
		return otel.GetMeterProvider()
	}
	return p.mp
}

func (p *Provider) enabledList() []string {
	out := make([]string, 0, len(Instrumentations))
	for _, name := range Instrumentations {
		if p.Enabled(name) {
			out = append(out, name)
		}
	}
	return out
}

func defaultTraceExporter(ctx context.Context, cfg config.TelemetryConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Protocol {
	case "", "grpc":
		opts := []otlptracegrpc.Option{}
		if strings.Contains(cfg.Endpoint, "://") {
			opts = append(opts, otlptracegrpc.WithEndpointURL(cfg.Endpoint))
		} else {
			opts = append(opts, otlptracegrpc.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	case "http/protobuf":
		opts := []otlptracehttp.Option{}
		if strings.Contains(cfg.Endpoint, "://") {
			opts = append(opts, otlptracehttp.WithEndpointURL(cfg.Endpoint))
		} else {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol: %s", cfg.Protocol)
	}
}

func defaultMetricReader(ctx context.Context, cfg config.TelemetryConfig) (sdkmetric.Reader, error) {
	opts := []otlpmetricgrpc.Option{}
	if strings.Contains(cfg.Endpoint, "://") {
		opts = append(opts, otlpmetricgrpc.WithEndpointURL(cfg.Endpoint))
	} else {
		opts = append(opts, otlpmetricgrpc.WithEndpoint(cfg.Endpoint))
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(cfg.MetricInterval)), nil
}

func sampler(name, arg string) sdktrace.Sampler {
	ratio := 1.0
	if v, err := strconv.ParseFloat(arg, 64); err == nil {
		ratio = v
	}

	switch name {
	case "always_on":
		return sdktrace.AlwaysSample()
	case "always_off":
		return sdktrace.NeverSample()
	case "traceidratio":
		return sdktrace.TraceIDRatioBased(ratio)
	case "parentbased_always_off":
		return sdktrace.ParentBased(sdktrace.NeverSample())
	case "parentbased_traceidratio":
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	default:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
}
