// Package server exposes synthesis over HTTP and WebSocket.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/cantolabs/canto/internal/audio"
	"github.com/cantolabs/canto/internal/config"
	"github.com/cantolabs/canto/internal/phoneme"
	"github.com/cantolabs/canto/internal/sessionstore"
	"github.com/cantolabs/canto/internal/styles"
	"github.com/cantolabs/canto/internal/synth"
)

type Server struct {
	cfg   config.SynthesisConfig
	synth *synth.Synthesizer
	store *sessionstore.Store
	log   *slog.Logger
}

func New(cfg config.SynthesisConfig, s *synth.Synthesizer, store *sessionstore.Store, log *slog.Logger) *Server {
	return &Server{
		cfg:   cfg,
		synth: s,
		store: store,
		log:   log.With(slog.String("component", "http-server")),
	}
}

// Register mounts the speech API onto mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/v1/audio/speech", s.handleSpeech)
	mux.HandleFunc("/v1/audio/voices", s.handleVoices)
	mux.HandleFunc("/v1/audio/languages", s.handleLanguages)
	mux.HandleFunc("/ws", s.handleWS)
}

// speechRequest mirrors the OpenAI audio/speech request shape with the
// extra knobs this engine supports.
type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	Speed          float64 `json:"speed"`
	ResponseFormat string  `json:"response_format"`
	Language       string  `json:"language"`
	InitialSilence int     `json:"initial_silence"`
	ForceStyle     bool    `json:"force_style"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleSpeech(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req speechRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
		return
	}
	if req.Input == "" {
		writeError(w, http.StatusBadRequest, "input must not be empty")
		return
	}
	switch req.ResponseFormat {
	case "", "wav", "pcm":
	default:
		writeError(w, http.StatusBadRequest, "response_format must be wav or pcm")
		return
	}

	sreq := synth.Request{
		Text:           req.Input,
		Language:       req.Language,
		Style:          req.Voice,
		ForceStyle:     req.ForceStyle,
		Speed:          float32(req.Speed),
		InitialSilence: req.InitialSilence,
		AutoDetect:     req.Language == "" && s.cfg.AutoDetectLanguage,
		FailFast:       true,
	}
	if sreq.Language == "" {
		sreq.Language = s.cfg.Language
	}
	if sreq.Style == "" {
		sreq.Style = s.cfg.Style
	}
	if sreq.Speed <= 0 {
		sreq.Speed = float32(s.cfg.Speed)
	}

	start := time.Now()
	res, err := s.synth.SynthesizeUtterance(r.Context(), sreq)
	if err != nil {
		s.log.Warn("synthesis failed", slog.String("error", err.Error()))
		if errors.Is(err, styles.ErrStyleNotFound) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.log.Debug("synthesis complete",
		slog.Int("samples", len(res.Audio)),
		slog.Duration("elapsed", time.Since(start)))

	s.recordUtterance(r, req, res)

	rate := s.synth.SampleRate()
	switch req.ResponseFormat {
	case "pcm":
		w.Header().Set("Content-Type", "audio/pcm")
		_, _ = w.Write(audio.EncodeSamples(res.Audio))
	default:
		w.Header().Set("Content-Type", "audio/wav")
		if err := audio.WriteWAVHeader(w, 1, uint32(rate), uint32(len(res.Audio)*4)); err != nil {
			return
		}
		_ = audio.WriteSamples(w, res.Audio)
	}
}

func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	writeJSON(w, map[string][]string{"voices": s.synth.Bank().Styles()})
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	writeJSON(w, map[string][]string{"languages": phoneme.SupportedLanguages()})
}

func (s *Server) recordUtterance(r *http.Request, req speechRequest, res synth.Result) {
	if s.store == nil {
		return
	}
	sessionID := uuid.NewString()
	ctx := r.Context()
	if err := s.store.AppendSession(ctx, sessionstore.Session{
		SessionID: sessionID,
		Source:    "http",
		Language:  res.Language,
		Style:     res.Style,
	}); err != nil {
		s.log.Warn("failed to record session", slog.String("error", err.Error()))
		return
	}
	if err := s.store.AppendUtterance(ctx, sessionstore.Utterance{
		SessionID:    sessionID,
		Text:         req.Input,
		Language:     res.Language,
		Style:        res.Style,
		Chunks:       res.Chunks,
		FailedChunks: res.FailedChunks,
		Samples:      int64(len(res.Audio)),
	}); err != nil {
		s.log.Warn("failed to record utterance", slog.String("error", err.Error()))
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg})
}
