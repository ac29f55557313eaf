// Package synth orchestrates the synthesis pipeline: normalize, chunk,
// phonemize, tokenize, style, infer. One Synthesizer serves a whole process;
// it holds no package-level state and is safe for sequential reuse.
package synth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cantolabs/canto/internal/chunker"
	"github.com/cantolabs/canto/internal/engine"
	"github.com/cantolabs/canto/internal/phoneme"
	"github.com/cantolabs/canto/internal/styles"
	"github.com/cantolabs/canto/internal/textnorm"
	"github.com/cantolabs/canto/internal/voicebank"
)

// initialSilenceToken is the token id inserted once per requested leading
// silence unit, matching what the model was trained with.
const initialSilenceToken = 30

// Request describes one utterance.
type Request struct {
	Text           string
	Language       string
	Style          string
	ForceStyle     bool
	AutoDetect     bool
	Speed          float32
	InitialSilence int
	// FailFast aborts on the first chunk failure. Single-shot callers
	// want the whole request to fail; streaming sessions force it off so
	// one bad sentence cannot end the session.
	FailFast bool
}

// Result carries the synthesized audio and per-chunk accounting so front
// ends can report partial failures.
type Result struct {
	Audio        []float32
	Language     string
	Style        string
	Chunks       int
	FailedChunks int
}

type Config struct {
	SampleRate int
	MaxTokens  int
}

type Synthesizer struct {
	bank       *voicebank.Bank
	phonemizer phoneme.Phonemizer
	engine     engine.Engine
	chunker    *chunker.Chunker
	log        *slog.Logger
	metrics    *metrics
	sampleRate int
}

func New(bank *voicebank.Bank, ph phoneme.Phonemizer, eng engine.Engine, cfg Config, log *slog.Logger) *Synthesizer {
	s := &Synthesizer{
		bank:       bank,
		phonemizer: ph,
		engine:     eng,
		log:        log.With(slog.String("component", "synth")),
		sampleRate: cfg.SampleRate,
	}
	s.chunker = chunker.New(tokenCounter{s}, cfg.MaxTokens)
	s.metrics = newMetrics(s.log)
	return s
}

// SampleRate returns the output sample rate in Hz.
func (s *Synthesizer) SampleRate() int { return s.sampleRate }

// Bank exposes the loaded voice bank for listing endpoints.
func (s *Synthesizer) Bank() *voicebank.Bank { return s.bank }

// tokenCounter feeds the chunker with real phonemize-and-tokenize counts so
// splitting decisions match what inference will see.
type tokenCounter struct {
	s *Synthesizer
}

func (tc tokenCounter) Count(ctx context.Context, text, lang string) (int, error) {
	ps, err := tc.s.phonemizer.Phonemize(ctx, text, lang)
	if err != nil {
		return 0, err
	}
	return len(phoneme.Tokenize(ps)), nil
}

// SynthesizeUtterance runs the full pipeline over one utterance. Chunk
// failures are skipped and counted unless FailFast is set.
func (s *Synthesizer) SynthesizeUtterance(ctx context.Context, req Request) (Result, error) {
	language := s.resolveLanguage(req)
	styleName := styles.Resolve(language, req.Style, req.ForceStyle, s.bank, s.log)
	spec := styles.ParseSpec(styleName)

	speed := req.Speed
	if speed <= 0 {
		speed = 1.0
	}

	chunks, err := s.chunker.Split(ctx, req.Text, language)
	if err != nil {
		return Result{Language: language, Style: styleName}, fmt.Errorf("chunk utterance: %w", err)
	}

	result := Result{Language: language, Style: styleName, Chunks: len(chunks)}
	for _, chunk := range chunks {
		audio, err := s.synthesizeChunk(ctx, chunk, language, spec, speed, req.InitialSilence)
		if err != nil {
			if req.FailFast {
				return result, fmt.Errorf("chunk %q: %w", truncate(chunk.Text, 40), err)
			}
			result.FailedChunks++
			s.metrics.chunkFailed(ctx)
			s.log.Warn("chunk synthesis failed, skipping",
				slog.String("chunk", truncate(chunk.Text, 40)),
				slog.String("error", err.Error()))
			continue
		}
		result.Audio = append(result.Audio, audio...)
		s.metrics.chunkDone(ctx, float64(len(audio))/float64(s.sampleRate))
	}
	return result, nil
}

func (s *Synthesizer) synthesizeChunk(ctx context.Context, chunk chunker.Chunk, language string, spec styles.Spec, speed float32, initialSilence int) ([]float32, error) {
	if chunk.Irreducible {
		s.log.Warn("irreducible chunk exceeds token budget, relying on style clamp",
			slog.String("chunk", truncate(chunk.Text, 40)))
	}

	normalized := textnorm.Normalize(chunk.Text, language)
	ps, err := s.phonemizer.Phonemize(ctx, normalized, language)
	if err != nil {
		return nil, err
	}
	tokens := phoneme.Tokenize(ps)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: no tokens for chunk", engine.ErrInference)
	}

	if initialSilence > 0 {
		silence := make([]int64, initialSilence, initialSilence+len(tokens))
		for i := range silence {
			silence[i] = initialSilenceToken
		}
		tokens = append(silence, tokens...)
	}

	// style row is indexed by the unpadded token count
	styleVec, err := styles.Mix(s.bank, spec, len(tokens))
	if err != nil {
		return nil, err
	}

	padded := make([]int64, 0, len(tokens)+2)
	padded = append(padded, 0)
	padded = append(padded, tokens...)
	padded = append(padded, 0)

	return s.engine.Infer(ctx, [][]int64{padded}, [][]float32{styleVec}, speed)
}

func (s *Synthesizer) resolveLanguage(req Request) string {
	if req.AutoDetect {
		if detected, ok := phoneme.DetectLanguage(req.Text); ok {
			s.log.Debug("language detected", slog.String("language", detected))
			return detected
		}
		s.log.Debug("language detection inconclusive",
			slog.String("fallback", req.Language))
	}
	if req.Language == "" {
		return phoneme.FallbackLanguage
	}
	return phoneme.ResolveLanguage(req.Language)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
