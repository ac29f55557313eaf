package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/sbinet/npyio"

	"github.com/cantolabs/canto/internal/config"
	"github.com/cantolabs/canto/internal/engine"
	"github.com/cantolabs/canto/internal/phoneme"
	"github.com/cantolabs/canto/internal/synth"
	"github.com/cantolabs/canto/internal/voicebank"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voices.bin")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	zw := zip.NewWriter(f)
	for _, name := range []string{"af_sky", "af_heart"} {
		w, err := zw.Create(name + ".npy")
		if err != nil {
			t.Fatalf("create entry: %v", err)
		}
		if err := npyio.Write(w, make([]float32, voicebank.StyleDim)); err != nil {
			t.Fatalf("write entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	bank, err := voicebank.Load(path)
	if err != nil {
		t.Fatalf("load bank: %v", err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := synth.New(bank, phoneme.NewRulePhonemizer(), engine.NewMockEngine(24000), synth.Config{
		SampleRate: 24000,
		MaxTokens:  500,
	}, log)

	mux := http.NewServeMux()
	New(config.SynthesisConfig{Language: "en-us", Style: "af_heart", Speed: 1.0}, s, nil, log).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postSpeech(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/v1/audio/speech", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestSpeechEndpointWAV(t *testing.T) {
	srv := testServer(t)
	resp := postSpeech(t, srv, `{"input": "hello world.", "voice": "af_sky"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "audio/wav" {
		t.Fatalf("unexpected content type %q", ct)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if len(body) <= 44 {
		t.Fatalf("expected audio after the header, got %d bytes", len(body))
	}
	if !bytes.HasPrefix(body, []byte("RIFF")) {
		t.Fatal("expected RIFF header")
	}
}

func TestSpeechEndpointPCM(t *testing.T) {
	srv := testServer(t)
	resp := postSpeech(t, srv, `{"input": "hello.", "response_format": "pcm"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "audio/pcm" {
		t.Fatalf("unexpected content type %q", ct)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if len(body) == 0 || len(body)%4 != 0 {
		t.Fatalf("expected float32-aligned PCM, got %d bytes", len(body))
	}
}

func TestSpeechEndpointValidation(t *testing.T) {
	srv := testServer(t)
	if resp := postSpeech(t, srv, `{"input": ""}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty input: expected 400, got %d", resp.StatusCode)
	}
	if resp := postSpeech(t, srv, `{"input": "hi", "response_format": "mp3"}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad format: expected 400, got %d", resp.StatusCode)
	}
	resp, err := http.Get(srv.URL + "/v1/audio/speech")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET: expected 405, got %d", resp.StatusCode)
	}
}

func TestVoicesEndpoint(t *testing.T) {
	srv := testServer(t)
	resp, err := http.Get(srv.URL + "/v1/audio/voices")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var payload struct {
		Voices []string `json:"voices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Voices) != 2 || payload.Voices[0] != "af_heart" {
		t.Fatalf("unexpected voices: %v", payload.Voices)
	}
}

func TestLanguagesEndpoint(t *testing.T) {
	srv := testServer(t)
	resp, err := http.Get(srv.URL + "/v1/audio/languages")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var payload struct {
		Languages []string `json:"languages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	found := false
	for _, l := range payload.Languages {
		if l == "en-us" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected en-us in %v", payload.Languages)
	}
}

func wsRead(ctx context.Context, t *testing.T, conn *websocket.Conn) wsServerMessage {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("websocket read: %v", err)
	}
	var msg wsServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	return msg
}

func wsWrite(ctx context.Context, t *testing.T, conn *websocket.Conn, msg wsClientMessage) {
	t.Helper()
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("websocket write: %v", err)
	}
}

func TestWebSocketProtocol(t *testing.T) {
	srv := testServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")
	// Audio chunk frames exceed the library's default 32 KiB read limit.
	conn.SetReadLimit(1 << 22)

	wsWrite(ctx, t, conn, wsClientMessage{Type: "list_voices"})
	if msg := wsRead(ctx, t, conn); msg.Type != "voices" || len(msg.Voices) != 2 {
		t.Fatalf("unexpected voices reply: %+v", msg)
	}

	wsWrite(ctx, t, conn, wsClientMessage{Type: "set_voice", Voice: "af_sky"})
	if msg := wsRead(ctx, t, conn); msg.Type != "voice_changed" || msg.Voice != "af_sky" {
		t.Fatalf("unexpected set_voice reply: %+v", msg)
	}

	wsWrite(ctx, t, conn, wsClientMessage{Type: "synthesize", Text: "hello world."})
	if msg := wsRead(ctx, t, conn); msg.Type != "synthesis_started" {
		t.Fatalf("expected synthesis_started, got %+v", msg)
	}
	sawChunk := false
	for {
		msg := wsRead(ctx, t, conn)
		switch msg.Type {
		case "audio_chunk":
			sawChunk = true
			if msg.Audio == "" || msg.SampleRate != 24000 || msg.Total == 0 {
				t.Fatalf("malformed chunk: %+v", msg)
			}
		case "synthesis_completed":
			if !sawChunk {
				t.Fatal("completed without any audio chunks")
			}
			return
		default:
			t.Fatalf("unexpected message: %+v", msg)
		}
	}
}

func TestWebSocketUnknownType(t *testing.T) {
	srv := testServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	wsWrite(ctx, t, conn, wsClientMessage{Type: "bogus"})
	if msg := wsRead(ctx, t, conn); msg.Type != "error" {
		t.Fatalf("expected error reply, got %+v", msg)
	}
}
