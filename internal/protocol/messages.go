package protocol

import "time"

// SpeechRequest asks the runtime to synthesize an utterance.
type SpeechRequest struct {
	SessionID      string  `json:"session_id"`
	Text           string  `json:"text"`
	Language       string  `json:"language,omitempty"`
	Style          string  `json:"style,omitempty"`
	ForceStyle     bool    `json:"force_style,omitempty"`
	Speed          float64 `json:"speed,omitempty"`
	InitialSilence int     `json:"initial_silence,omitempty"`
	AutoDetect     bool    `json:"auto_detect,omitempty"`
}

// AudioChunk carries one synthesized PCM chunk. Chunks for a session are
// published in sequence order; Final marks the last chunk of the utterance.
type AudioChunk struct {
	SessionID  string `json:"session_id"`
	Sequence   int    `json:"sequence"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	PCM        []byte `json:"pcm"`
	Final      bool   `json:"final"`
}

// SpeechStatus reports the outcome of a synthesis request.
type SpeechStatus struct {
	SessionID string    `json:"session_id"`
	Chunks    int       `json:"chunks"`
	Failed    int       `json:"failed"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	SubjectSpeechRequest = "speech.request"
	SubjectSpeechAudio   = "speech.audio"
	SubjectSpeechDone    = "speech.done"
)
