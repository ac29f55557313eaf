package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"github.com/cantolabs/canto/internal/audio"
	"github.com/cantolabs/canto/internal/synth"
)

// wsChunkSamples is one second of audio per frame at 24 kHz.
const wsChunkSamples = 24000

type wsClientMessage struct {
	Type     string  `json:"type"`
	Text     string  `json:"text,omitempty"`
	Voice    string  `json:"voice,omitempty"`
	Speed    float64 `json:"speed,omitempty"`
	Language string  `json:"language,omitempty"`
}

type wsServerMessage struct {
	Type       string   `json:"type"`
	Voices     []string `json:"voices,omitempty"`
	Voice      string   `json:"voice,omitempty"`
	Audio      string   `json:"audio,omitempty"`
	Index      int      `json:"index,omitempty"`
	Total      int      `json:"total,omitempty"`
	SampleRate int      `json:"sample_rate,omitempty"`
	Message    string   `json:"message,omitempty"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("websocket accept failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "unexpected exit")

	ctx := r.Context()
	voice := s.cfg.Style
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var msg wsClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.wsSend(ctx, conn, wsServerMessage{Type: "error", Message: "invalid JSON"})
			continue
		}

		switch msg.Type {
		case "list_voices":
			s.wsSend(ctx, conn, wsServerMessage{Type: "voices", Voices: s.synth.Bank().Styles()})
		case "set_voice":
			if msg.Voice == "" {
				s.wsSend(ctx, conn, wsServerMessage{Type: "error", Message: "voice must not be empty"})
				continue
			}
			voice = msg.Voice
			s.wsSend(ctx, conn, wsServerMessage{Type: "voice_changed", Voice: voice})
		case "synthesize":
			if msg.Text == "" {
				s.wsSend(ctx, conn, wsServerMessage{Type: "error", Message: "text must not be empty"})
				continue
			}
			s.wsSynthesize(ctx, conn, msg, voice)
		default:
			s.wsSend(ctx, conn, wsServerMessage{Type: "error", Message: "unknown message type"})
		}
	}
}

func (s *Server) wsSynthesize(ctx context.Context, conn *websocket.Conn, msg wsClientMessage, voice string) {
	if msg.Voice != "" {
		voice = msg.Voice
	}
	speed := float32(msg.Speed)
	if speed <= 0 {
		speed = float32(s.cfg.Speed)
	}
	// sentence failures are skipped so one bad input cannot end the
	// connection's stream
	req := synth.Request{
		Text:       msg.Text,
		Language:   msg.Language,
		Style:      voice,
		Speed:      speed,
		AutoDetect: msg.Language == "" && s.cfg.AutoDetectLanguage,
	}
	if req.Language == "" {
		req.Language = s.cfg.Language
	}

	s.wsSend(ctx, conn, wsServerMessage{Type: "synthesis_started"})
	res, err := s.synth.SynthesizeUtterance(ctx, req)
	if err != nil {
		s.log.Warn("websocket synthesis failed", slog.String("error", err.Error()))
		s.wsSend(ctx, conn, wsServerMessage{Type: "error", Message: err.Error()})
		return
	}

	rate := s.synth.SampleRate()
	total := (len(res.Audio) + wsChunkSamples - 1) / wsChunkSamples
	for i := 0; i < total; i++ {
		end := (i + 1) * wsChunkSamples
		if end > len(res.Audio) {
			end = len(res.Audio)
		}
		frame := audio.EncodeSamples(res.Audio[i*wsChunkSamples : end])
		s.wsSend(ctx, conn, wsServerMessage{
			Type:       "audio_chunk",
			Audio:      base64.StdEncoding.EncodeToString(frame),
			Index:      i,
			Total:      total,
			SampleRate: rate,
		})
	}
	s.wsSend(ctx, conn, wsServerMessage{Type: "synthesis_completed"})
}

func (s *Server) wsSend(ctx context.Context, conn *websocket.Conn, msg wsServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		s.log.Debug("websocket write failed", slog.String("error", err.Error()))
	}
}
