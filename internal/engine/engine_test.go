package engine

import (
	"context"
	"errors"
	"testing"
)

func TestMockEngineAudioLength(t *testing.T) {
	e := NewMockEngine(24000)
	tokens := [][]int64{make([]int64, 10)}
	styles := [][]float32{make([]float32, 256)}

	audio, err := e.Infer(context.Background(), tokens, styles, 1.0)
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	if len(audio) != 10*24000/20 {
		t.Fatalf("unexpected audio length %d", len(audio))
	}

	fast, err := e.Infer(context.Background(), tokens, styles, 2.0)
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	if len(fast) >= len(audio) {
		t.Fatalf("expected faster speech to be shorter: %d vs %d", len(fast), len(audio))
	}
}

func TestMockEngineRejectsEmptyBatch(t *testing.T) {
	e := NewMockEngine(24000)
	if _, err := e.Infer(context.Background(), nil, nil, 1.0); !errors.Is(err, ErrInference) {
		t.Fatalf("expected ErrInference, got %v", err)
	}
}

func TestMockEngineRejectsBadSpeed(t *testing.T) {
	e := NewMockEngine(24000)
	tokens := [][]int64{{1, 2, 3}}
	if _, err := e.Infer(context.Background(), tokens, nil, 0); !errors.Is(err, ErrInference) {
		t.Fatalf("expected ErrInference, got %v", err)
	}
}

func TestMockEngineCancelledContext(t *testing.T) {
	e := NewMockEngine(24000)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Infer(ctx, [][]int64{{1}}, nil, 1.0); !errors.Is(err, ErrInference) {
		t.Fatalf("expected ErrInference, got %v", err)
	}
}

func TestNewExecEngineRejectsEmptyCommand(t *testing.T) {
	if _, err := NewExecEngine("", 24000); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestExecEngineMissingBinary(t *testing.T) {
	e, err := NewExecEngine("definitely-not-a-real-binary-xyz", 24000)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, err = e.Infer(context.Background(), [][]int64{{1}}, nil, 1.0)
	if !errors.Is(err, ErrInference) {
		t.Fatalf("expected ErrInference, got %v", err)
	}
}
