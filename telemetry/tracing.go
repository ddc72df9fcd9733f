// OpenTelemetry tracing support for shutdown episodes.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Tracer wraps OpenTelemetry tracing with shutdown-specific helpers.
type Tracer struct {
	tracer trace.Tracer
}

var (
	globalTracer *Tracer
	tracerMu     sync.RWMutex
)

// SetGlobalTracer sets the global tracer instance.
func SetGlobalTracer(t *Tracer) {
	tracerMu.Lock()
	defer tracerMu.Unlock()
	globalTracer = t
}

// GetTracer returns the global tracer, or a no-op tracer if not set.
func GetTracer() *Tracer {
	tracerMu.RLock()
	defer tracerMu.RUnlock()
	if globalTracer == nil {
		return &Tracer{tracer: noop.NewTracerProvider().Tracer("")}
	}
	return globalTracer
}

// NewTracer creates a new tracer with the given name from the global provider.
func NewTracer(name string) *Tracer {
	return &Tracer{tracer: otel.Tracer(name)}
}

// NewTracerFromProvider creates a tracer bound to a specific provider.
func NewTracerFromProvider(tp trace.TracerProvider, name string) *Tracer {
	return &Tracer{tracer: tp.Tracer(name)}
}

// StartSpan starts a new span with the given name.
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// --- Episode Spans ---

// StartEpisode starts the root span of a shutdown episode.
func (t *Tracer) StartEpisode(ctx context.Context, signal string, participants int) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, "shutdown.episode", trace.WithSpanKind(trace.SpanKindInternal))
	span.SetAttributes(
		attribute.String("shutdown.signal", signal),
		attribute.Int("shutdown.participants", participants),
	)
	return ctx, span
}

// EpisodeSpanOptions contains the outcome recorded on an episode span.
type EpisodeSpanOptions struct {
	Status    int
	Failures  int
	Abandoned []string
	TimedOut  bool
	Forced    bool
	Duration  time.Duration
}

// EndEpisode ends an episode span with its outcome.
func (t *Tracer) EndEpisode(span trace.Span, opts EpisodeSpanOptions, err error) {
	attrs := []attribute.KeyValue{
		attribute.Int("shutdown.status", opts.Status),
		attribute.Int("shutdown.failures", opts.Failures),
		attribute.Bool("shutdown.timed_out", opts.TimedOut),
		attribute.Bool("shutdown.forced", opts.Forced),
		attribute.Int64("shutdown.duration_ms", opts.Duration.Milliseconds()),
	}
	if len(opts.Abandoned) > 0 {
		attrs = append(attrs, attribute.StringSlice("shutdown.abandoned", opts.Abandoned))
	}
	span.SetAttributes(attrs...)

	endSpan(span, err)
}

// --- Participant Spans ---

// StartParticipant starts a span covering one participant's cleanup.
func (t *Tracer) StartParticipant(ctx context.Context, name string) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, "shutdown.participant."+name, trace.WithSpanKind(trace.SpanKindInternal))
	span.SetAttributes(attribute.String("shutdown.participant", name))
	return ctx, span
}

// EndParticipant ends a participant span.
func (t *Tracer) EndParticipant(span trace.Span, duration time.Duration, err error) {
	span.SetAttributes(attribute.Int64("shutdown.duration_ms", duration.Milliseconds()))
	endSpan(span, err)
}

// AbandonParticipant ends a participant span that never acknowledged.
func (t *Tracer) AbandonParticipant(span trace.Span) {
	span.SetAttributes(attribute.Bool("shutdown.abandoned", true))
	span.SetStatus(codes.Error, "abandoned")
	span.End()
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}
