// OTLP export of shutdown traces.
package telemetry

import (
	"context"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	serrors "github.com/vinayprograms/shutdownkit/errors"
)

// Protocol selects the OTLP transport.
type Protocol string

const (
	ProtocolGRPC Protocol = "grpc"
	ProtocolHTTP Protocol = "http"
)

const (
	// DefaultServiceName is used when neither config nor OTEL_SERVICE_NAME names the service.
	DefaultServiceName = "shutdownkit"

	// DefaultFlushTimeout bounds Close.
	DefaultFlushTimeout = 5 * time.Second
)

// ProviderConfig configures trace export.
type ProviderConfig struct {
	ServiceName    string
	ServiceVersion string

	// Endpoint is host:port of the collector. A scheme prefix is ignored.
	// Empty falls back to OTEL_EXPORTER_OTLP_ENDPOINT.
	Endpoint string

	// Protocol defaults to ProtocolGRPC.
	Protocol Protocol

	Insecure bool
	Headers  map[string]string

	// FlushTimeout bounds how long Close waits for the collector. Spans are
	// exported while the process is exiting, so the wait is always finite.
	FlushTimeout time.Duration
}

// resolve fills defaults from the environment and checks the result.
func (c ProviderConfig) resolve() (ProviderConfig, error) {
	if c.Endpoint == "" {
		c.Endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	for _, scheme := range []string{"http://", "https://"} {
		c.Endpoint = strings.TrimPrefix(c.Endpoint, scheme)
	}
	if c.Endpoint == "" {
		return c, serrors.InvalidConfig("telemetry endpoint not configured (set Endpoint or OTEL_EXPORTER_OTLP_ENDPOINT)")
	}

	if c.ServiceName == "" {
		c.ServiceName = os.Getenv("OTEL_SERVICE_NAME")
	}
	if c.ServiceName == "" {
		c.ServiceName = DefaultServiceName
	}

	switch c.Protocol {
	case "":
		c.Protocol = ProtocolGRPC
	case ProtocolGRPC, ProtocolHTTP:
	default:
		return c, serrors.InvalidConfig("unknown telemetry protocol "+string(c.Protocol),
			serrors.WithMetadata("protocol", string(c.Protocol)))
	}

	if c.FlushTimeout <= 0 {
		c.FlushTimeout = DefaultFlushTimeout
	}
	return c, nil
}

// client builds the OTLP client for the configured protocol.
func (c ProviderConfig) client() otlptrace.Client {
	if c.Protocol == ProtocolHTTP {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(c.Endpoint)}
		if c.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if len(c.Headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(c.Headers))
		}
		return otlptracehttp.NewClient(opts...)
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(c.Endpoint)}
	if c.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	if len(c.Headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(c.Headers))
	}
	return otlptracegrpc.NewClient(opts...)
}

// Provider owns the SDK tracer provider that exports episode spans.
type Provider struct {
	tp           *sdktrace.TracerProvider
	tracer       *Tracer
	flushTimeout time.Duration
}

// InitProvider starts OTLP export and installs the provider's tracer as the
// global tracer. Close it after the episode has terminated, never from a
// participant: the episode span ends after the last participant acknowledges.
func InitProvider(ctx context.Context, cfg ProviderConfig) (*Provider, error) {
	cfg, err := cfg.resolve()
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.ProcessPID(os.Getpid()),
		),
	)
	if err != nil {
		return nil, serrors.Wrap(err, "creating resource")
	}

	exporter, err := otlptrace.New(ctx, cfg.client())
	if err != nil {
		return nil, serrors.Wrap(err, "creating exporter")
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	p := newProvider(tp, cfg.ServiceName, cfg.FlushTimeout)
	SetGlobalTracer(p.tracer)
	return p, nil
}

func newProvider(tp *sdktrace.TracerProvider, name string, flushTimeout time.Duration) *Provider {
	if flushTimeout <= 0 {
		flushTimeout = DefaultFlushTimeout
	}
	return &Provider{
		tp:           tp,
		tracer:       NewTracerFromProvider(tp, name),
		flushTimeout: flushTimeout,
	}
}

// Tracer returns the tracer for this provider.
func (p *Provider) Tracer() *Tracer {
	return p.tracer
}

// Flush exports pending spans without stopping the provider.
func (p *Provider) Flush(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.flushTimeout)
	defer cancel()
	return p.tp.ForceFlush(ctx)
}

// Close exports pending spans and stops the provider, waiting at most the
// flush timeout. If the provider's tracer is still the global one, the global
// tracer reverts to a no-op.
func (p *Provider) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.flushTimeout)
	defer cancel()

	tracerMu.Lock()
	if globalTracer == p.tracer {
		globalTracer = nil
	}
	tracerMu.Unlock()

	if err := p.tp.Shutdown(ctx); err != nil {
		return serrors.Wrap(err, "closing trace provider")
	}
	return nil
}
