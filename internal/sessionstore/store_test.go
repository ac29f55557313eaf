package sessionstore

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/cantolabs/canto/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestOpenEphemeral(t *testing.T) {
	ctx := context.Background()
	cfg := config.SessionStoreConfig{RetentionMode: "ephemeral"}
	st, err := Open(ctx, cfg, newLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.Ensure(); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if err := st.AppendUtterance(ctx, Utterance{SessionID: "s", Text: "hi"}); err != nil {
		t.Fatalf("ephemeral append should be a no-op: %v", err)
	}
}

func TestAppendAndQuery(t *testing.T) {
	tmp := t.TempDir()
	cfg := config.SessionStoreConfig{Path: filepath.Join(tmp, "sessions.db"), RetentionMode: "session"}
	st, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open session store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	sessionID := "session-123"
	if err := st.AppendSession(context.Background(), Session{SessionID: sessionID, Source: "http", Language: "en-us", Style: "af_sky"}); err != nil {
		t.Fatalf("append session: %v", err)
	}
	if err := st.AppendUtterance(context.Background(), Utterance{
		SessionID: sessionID, Text: "hello world.", Language: "en-us", Style: "af_sky",
		Chunks: 2, FailedChunks: 1, Samples: 48000,
	}); err != nil {
		t.Fatalf("append utterance: %v", err)
	}
	utts, err := st.ListSessionUtterances(context.Background(), sessionID, 10)
	if err != nil {
		t.Fatalf("list utterances: %v", err)
	}
	if len(utts) != 1 {
		t.Fatalf("expected 1 utterance, got %d", len(utts))
	}
	if utts[0].Text != "hello world." || utts[0].Chunks != 2 || utts[0].FailedChunks != 1 || utts[0].Samples != 48000 {
		t.Fatalf("unexpected utterance: %+v", utts[0])
	}
}

func TestSessionMetadataUpdatesOnConflict(t *testing.T) {
	tmp := t.TempDir()
	cfg := config.SessionStoreConfig{Path: filepath.Join(tmp, "sessions.db"), RetentionMode: "session"}
	st, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open session store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	if err := st.AppendSession(context.Background(), Session{SessionID: "s1", Language: ""}); err != nil {
		t.Fatalf("append session: %v", err)
	}
	// language detected mid-session, row gets rewritten
	if err := st.AppendSession(context.Background(), Session{SessionID: "s1", Language: "ja"}); err != nil {
		t.Fatalf("update session: %v", err)
	}
	if err := st.AppendUtterance(context.Background(), Utterance{SessionID: "s1", Text: "x"}); err != nil {
		t.Fatalf("append utterance: %v", err)
	}
	utts, err := st.ListSessionUtterances(context.Background(), "s1", 10)
	if err != nil || len(utts) != 1 {
		t.Fatalf("expected single utterance under updated session, got %v %v", utts, err)
	}
}

func TestPruneByDaysAndSessions(t *testing.T) {
	tmp := t.TempDir()
	cfg := config.SessionStoreConfig{Path: filepath.Join(tmp, "sessions.db"), RetentionMode: "persistent", RetentionDays: 1, MaxSessions: 1}
	st, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open session store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	st.clock = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	if err := st.AppendSession(context.Background(), Session{SessionID: "old-session"}); err != nil {
		t.Fatalf("append session: %v", err)
	}
	if err := st.AppendUtterance(context.Background(), Utterance{SessionID: "old-session", Text: "stale"}); err != nil {
		t.Fatalf("append utterance: %v", err)
	}

	st.clock = func() time.Time { return time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC) }
	if err := st.AppendSession(context.Background(), Session{SessionID: "new-session"}); err != nil {
		t.Fatalf("append session: %v", err)
	}
	if err := st.Prune(context.Background()); err != nil {
		t.Fatalf("prune: %v", err)
	}

	utts, err := st.ListSessionUtterances(context.Background(), "old-session", 10)
	if err != nil {
		t.Fatalf("list utterances: %v", err)
	}
	if len(utts) != 0 {
		t.Fatalf("expected old session pruned")
	}
}
