// Package observe provides the OpenTelemetry metrics of the visualization
// pipeline and the Prometheus bridge used to scrape them.
//
// Components receive a *Metrics built from an injected MeterProvider; tests use
// NewMetrics with a ManualReader-backed provider, and code that does not care
// about metrics uses Discard.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// meterName is the instrumentation scope of all VoiceViz metrics.
const meterName = "github.com/wealthwise/voiceviz"

// Skip reasons recorded on FramesSkipped.
const (
	SkipSurfaceNotReady = "surface_not_ready"
	SkipNoRenderer      = "no_renderer"
)

// Metrics holds the metric instruments of the pipeline.
// All fields are safe for concurrent use.
type Metrics struct {
	// FramesRendered counts frames drawn successfully. Attribute: style.
	FramesRendered metric.Int64Counter

	// FramesSkipped counts frames not drawn. Attribute: reason.
	FramesSkipped metric.Int64Counter

	// FrameErrors counts frames whose render returned an error or panicked.
	// Attributes: style, kind ("error" or "panic").
	FrameErrors metric.Int64Counter

	// FrameDuration tracks render time per frame in seconds. Attribute: style.
	FrameDuration metric.Float64Histogram

	// StateTransitions counts retargets. Attributes: from, to.
	StateTransitions metric.Int64Counter

	// AudioLevel is the RMS level of the latest analysed frame.
	AudioLevel metric.Float64Gauge

	// Particles is the live particle pool size.
	Particles metric.Int64Gauge
}

// frameBuckets are histogram boundaries in seconds around a 16ms frame budget.
var frameBuckets = []float64{
	0.0005, 0.001, 0.002, 0.004, 0.008, 0.016, 0.033, 0.066, 0.1,
}

// NewMetrics creates all instruments from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.FramesRendered, err = m.Int64Counter("voiceviz.frames.rendered",
		metric.WithDescription("Frames drawn successfully by style."),
	); err != nil {
		return nil, err
	}
	if met.FramesSkipped, err = m.Int64Counter("voiceviz.frames.skipped",
		metric.WithDescription("Frames not drawn by reason."),
	); err != nil {
		return nil, err
	}
	if met.FrameErrors, err = m.Int64Counter("voiceviz.frames.errors",
		metric.WithDescription("Frames whose renderer failed, by style and kind."),
	); err != nil {
		return nil, err
	}
	if met.FrameDuration, err = m.Float64Histogram("voiceviz.frame.duration",
		metric.WithDescription("Render time of one frame."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(frameBuckets...),
	); err != nil {
		return nil, err
	}
	if met.StateTransitions, err = m.Int64Counter("voiceviz.state.transitions",
		metric.WithDescription("Visual state retargets by source and target state."),
	); err != nil {
		return nil, err
	}
	if met.AudioLevel, err = m.Float64Gauge("voiceviz.audio.level",
		metric.WithDescription("RMS level of the latest analysed audio frame."),
	); err != nil {
		return nil, err
	}
	if met.Particles, err = m.Int64Gauge("voiceviz.particles",
		metric.WithDescription("Live particles in the particle renderer."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// Discard returns metrics backed by a no-op provider.
func Discard() *Metrics {
	met, err := NewMetrics(noop.NewMeterProvider())
	if err != nil {
		// The no-op provider never fails.
		panic(err)
	}
	return met
}

// RecordFrame records one successful frame.
func (m *Metrics) RecordFrame(ctx context.Context, style string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("style", style))
	m.FramesRendered.Add(ctx, 1, attrs)
	m.FrameDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordSkip records a frame that was not drawn.
func (m *Metrics) RecordSkip(ctx context.Context, reason string) {
	m.FramesSkipped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordError records a failed frame. kind is "error" or "panic".
func (m *Metrics) RecordError(ctx context.Context, style, kind string) {
	m.FrameErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("style", style),
		attribute.String("kind", kind),
	))
}

// RecordTransition records a retarget between two states.
func (m *Metrics) RecordTransition(ctx context.Context, from, to string) {
	m.StateTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}
