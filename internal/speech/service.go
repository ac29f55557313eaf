// Package speech exposes synthesis over the bus: a request on
// speech.request streams ordered audio chunks on speech.audio and a final
// status on speech.done.
package speech

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/cantolabs/canto/internal/audio"
	"github.com/cantolabs/canto/internal/bus"
	"github.com/cantolabs/canto/internal/config"
	"github.com/cantolabs/canto/internal/protocol"
	"github.com/cantolabs/canto/internal/sessionstore"
	"github.com/cantolabs/canto/internal/synth"
)

// requestTimeout bounds one utterance end to end, inference included.
const requestTimeout = 45 * time.Second

type Service struct {
	cfg    config.SynthesisConfig
	bus    *bus.Client
	synth  *synth.Synthesizer
	store  *sessionstore.Store
	sub    *nats.Subscription
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *slog.Logger
}

func NewService(parent context.Context, cfg config.SynthesisConfig, busClient *bus.Client, s *synth.Synthesizer, store *sessionstore.Store, log *slog.Logger) *Service {
	ctx, cancel := context.WithCancel(parent)
	return &Service{
		cfg:    cfg,
		bus:    busClient,
		synth:  s,
		store:  store,
		ctx:    ctx,
		cancel: cancel,
		logger: log.With(slog.String("component", "speech-service")),
	}
}

func (s *Service) Start() error {
	if s.bus == nil {
		return nil
	}
	sub, err := s.bus.Subscribe(protocol.SubjectSpeechRequest, s.handleRequest)
	if err != nil {
		return err
	}
	s.sub = sub
	return nil
}

func (s *Service) Close() {
	s.cancel()
	if s.sub != nil {
		_ = s.sub.Drain()
	}
	s.wg.Wait()
}

func (s *Service) Healthy() bool { return s.bus == nil || s.sub != nil }

func (s *Service) handleRequest(msg *nats.Msg) {
	var req protocol.SpeechRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.logger.Warn("failed to decode speech request", slogError(err))
		return
	}
	if req.Text == "" {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(s.ctx, requestTimeout)
		defer cancel()
		s.synthesize(ctx, req)
	}()
}

func (s *Service) synthesize(ctx context.Context, req protocol.SpeechRequest) {
	sess, err := s.synth.OpenSession(s.sessionOptions(req))
	if err != nil {
		s.logger.Warn("failed to open session", slogError(err))
		return
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = sess.ID
	}

	sink := &publishSink{svc: s, sessionID: sessionID, sampleRate: s.synth.SampleRate()}
	sess.AddSink(sink)

	err = sess.Feed(ctx, req.Text)
	if err == nil {
		err = sess.Close(ctx)
	} else {
		sess.Abort()
	}

	units, failed, _ := sess.Stats()
	status := protocol.SpeechStatus{
		SessionID: sessionID,
		Chunks:    sink.sequence(),
		Failed:    failed,
		Timestamp: time.Now().UTC(),
	}
	if err != nil {
		s.logger.Warn("speech synthesis failed", slogError(err))
		status.Error = err.Error()
	}
	if data, merr := json.Marshal(status); merr == nil {
		_ = s.bus.Publish(protocol.SubjectSpeechDone, data)
	}

	s.record(req, sessionID, units, failed, sink.samples())
}

func (s *Service) sessionOptions(req protocol.SpeechRequest) synth.SessionOptions {
	opts := synth.SessionOptions{
		Language:       s.cfg.Language,
		Style:          s.cfg.Style,
		ForceStyle:     s.cfg.ForceStyle,
		AutoDetect:     req.AutoDetect || s.cfg.AutoDetectLanguage,
		Speed:          float32(s.cfg.Speed),
		InitialSilence: s.cfg.InitialSilence,
	}
	if req.Language != "" {
		opts.Language = req.Language
		opts.AutoDetect = req.AutoDetect
	}
	if req.Style != "" {
		opts.Style = req.Style
		opts.ForceStyle = req.ForceStyle
	}
	if req.Speed > 0 {
		opts.Speed = float32(req.Speed)
	}
	if req.InitialSilence > 0 {
		opts.InitialSilence = req.InitialSilence
	}
	return opts
}

func (s *Service) record(req protocol.SpeechRequest, sessionID string, units, failed int, samples int64) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.AppendSession(ctx, sessionstore.Session{
		SessionID: sessionID,
		Source:    "bus",
		Language:  req.Language,
		Style:     req.Style,
	}); err != nil {
		s.logger.Warn("failed to record session", slogError(err))
		return
	}
	if err := s.store.AppendUtterance(ctx, sessionstore.Utterance{
		SessionID:    sessionID,
		Text:         req.Text,
		Language:     req.Language,
		Style:        req.Style,
		Chunks:       units,
		FailedChunks: failed,
		Samples:      samples,
	}); err != nil {
		s.logger.Warn("failed to record utterance", slogError(err))
	}
}

// publishSink streams chunks onto the bus as they are produced. WriteChunk
// runs on the coordinator's single delivery goroutine, so sequencing needs
// no lock beyond the counter's.
type publishSink struct {
	svc        *Service
	sessionID  string
	sampleRate int

	mu    sync.Mutex
	seq   int
	total int64
}

func (p *publishSink) WriteChunk(samples []float32) error {
	p.mu.Lock()
	seq := p.seq
	p.seq++
	p.total += int64(len(samples))
	p.mu.Unlock()

	return p.publish(protocol.AudioChunk{
		SessionID:  p.sessionID,
		Sequence:   seq,
		SampleRate: p.sampleRate,
		Channels:   1,
		PCM:        audio.EncodeSamples(samples),
	})
}

func (p *publishSink) Close() error {
	p.mu.Lock()
	seq := p.seq
	p.mu.Unlock()
	return p.publish(protocol.AudioChunk{
		SessionID:  p.sessionID,
		Sequence:   seq,
		SampleRate: p.sampleRate,
		Channels:   1,
		Final:      true,
	})
}

func (p *publishSink) publish(chunk protocol.AudioChunk) error {
	data, err := json.Marshal(chunk)
	if err != nil {
		return err
	}
	return p.svc.bus.Publish(protocol.SubjectSpeechAudio, data)
}

func (p *publishSink) sequence() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seq
}

func (p *publishSink) samples() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
