package synth

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// metrics wraps the OTel instruments so call sites stay one-liners and a
// failed instrument registration degrades to no-ops instead of errors.
type metrics struct {
	chunks   metric.Int64Counter
	failures metric.Int64Counter
	seconds  metric.Float64Counter
}

func newMetrics(log *slog.Logger) *metrics {
	meter := otel.Meter("github.com/cantolabs/canto/synth")
	m := &metrics{}
	var err error
	if m.chunks, err = meter.Int64Counter("canto.synth.chunks",
		metric.WithDescription("Chunks synthesized successfully")); err != nil {
		log.Warn("failed to initialize metrics", slog.String("error", err.Error()))
		return m
	}
	if m.failures, err = meter.Int64Counter("canto.synth.chunk_failures",
		metric.WithDescription("Chunks that failed synthesis")); err != nil {
		log.Warn("failed to initialize metrics", slog.String("error", err.Error()))
		return m
	}
	if m.seconds, err = meter.Float64Counter("canto.synth.audio_seconds",
		metric.WithDescription("Seconds of audio produced"),
		metric.WithUnit("s")); err != nil {
		log.Warn("failed to initialize metrics", slog.String("error", err.Error()))
	}
	return m
}

func (m *metrics) chunkDone(ctx context.Context, seconds float64) {
	if m.chunks != nil {
		m.chunks.Add(ctx, 1)
	}
	if m.seconds != nil {
		m.seconds.Add(ctx, seconds)
	}
}

func (m *metrics) chunkFailed(ctx context.Context) {
	if m.failures != nil {
		m.failures.Add(ctx, 1)
	}
}
