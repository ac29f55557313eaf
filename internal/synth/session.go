package synth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/cantolabs/canto/internal/audio"
	"github.com/cantolabs/canto/internal/segment"
	"github.com/cantolabs/canto/internal/styles"
)

// SessionOptions configure a streaming session. Zero values fall back to
// the synthesizer defaults.
type SessionOptions struct {
	Language           string
	Style              string
	ForceStyle         bool
	AutoDetect         bool
	Speed              float32
	InitialSilence     int
	DetectAfterBytes   int
	PendingByteCeiling int
	ChannelDepth       int
}

// Session synthesizes incrementally fed text. Text accumulates in a segment
// buffer until whole sentences are available, each emitted unit is
// synthesized with failure-skipping semantics, and the audio fans out
// through a coordinator to the session's sinks.
type Session struct {
	ID string

	s     *Synthesizer
	buf   *segment.Buffer
	coord *audio.Coordinator
	opts  SessionOptions
	log   *slog.Logger

	mu           sync.Mutex
	units        int
	failedChunks int
	closed       bool
}

// OpenSession starts a streaming session. Sinks registered on the returned
// coordinator receive chunks in production order.
func (s *Synthesizer) OpenSession(opts SessionOptions) (*Session, error) {
	id := uuid.NewString()
	log := s.log.With(slog.String("session", id))

	buf, err := segment.NewBuffer(segment.Options{
		AutoDetect:         opts.AutoDetect,
		Language:           opts.Language,
		DetectAfterBytes:   opts.DetectAfterBytes,
		PendingByteCeiling: opts.PendingByteCeiling,
		StyleResolver: func(lang string) string {
			return styles.Resolve(lang, opts.Style, opts.ForceStyle, s.bank, log)
		},
		Logger: log,
	})
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	return &Session{
		ID:    id,
		s:     s,
		buf:   buf,
		coord: audio.NewCoordinator(opts.ChannelDepth),
		opts:  opts,
		log:   log,
	}, nil
}

// AddSink registers an output for the session's audio.
func (sess *Session) AddSink(sink audio.Sink) {
	sess.coord.Add(sink)
}

// Feed appends text to the session and synthesizes any sentences that
// became complete. Chunk failures are logged and counted, never fatal.
func (sess *Session) Feed(ctx context.Context, text string) error {
	units := sess.buf.Feed(text)
	return sess.synthesizeUnits(ctx, units)
}

// Close flushes the remaining buffered text, synthesizes it, and waits for
// every sink to finish consuming.
func (sess *Session) Close(ctx context.Context) error {
	sess.mu.Lock()
	if sess.closed {
		sess.mu.Unlock()
		return nil
	}
	sess.closed = true
	sess.mu.Unlock()

	if tail, ok := sess.buf.Flush(); ok {
		if err := sess.synthesizeUnits(ctx, []segment.Unit{tail}); err != nil {
			sess.coord.Abort()
			return err
		}
	}
	return sess.coord.Drain(ctx)
}

// Abort discards pending audio and closes the sinks immediately.
func (sess *Session) Abort() {
	sess.mu.Lock()
	sess.closed = true
	sess.mu.Unlock()
	sess.coord.Abort()
}

// Stats returns units synthesized so far, failed chunk count, and the
// buffer's own accounting.
func (sess *Session) Stats() (units, failedChunks int, buffer segment.Stats) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.units, sess.failedChunks, sess.buf.Stats()
}

func (sess *Session) synthesizeUnits(ctx context.Context, units []segment.Unit) error {
	for _, unit := range units {
		res, err := sess.s.SynthesizeUtterance(ctx, Request{
			Text:           unit.Text,
			Language:       unit.Language,
			Style:          unit.Style,
			ForceStyle:     sess.opts.ForceStyle,
			Speed:          sess.opts.Speed,
			InitialSilence: sess.opts.InitialSilence,
		})
		if err != nil {
			// only the chunker can fail here with FailFast off;
			// treat the unit as lost and keep the session alive
			sess.log.Warn("unit synthesis failed, skipping",
				slog.String("unit", truncate(unit.Text, 40)),
				slog.String("error", err.Error()))
			sess.mu.Lock()
			sess.failedChunks++
			sess.mu.Unlock()
			continue
		}
		sess.mu.Lock()
		sess.units++
		sess.failedChunks += res.FailedChunks
		sess.mu.Unlock()
		if len(res.Audio) > 0 {
			sess.coord.Enqueue(res.Audio)
		}
	}
	return ctx.Err()
}
