// Package engine abstracts the acoustic model. An Engine turns padded token
// IDs plus a style vector into float32 PCM; the neural model itself lives
// behind a subprocess, keeping this binary free of inference runtimes.
package engine

import (
	"context"
	"errors"
)

// ErrInference wraps any model failure.
var ErrInference = errors.New("inference failed")

// Engine runs one inference at a time; implementations serialize callers.
type Engine interface {
	// Infer synthesizes audio for a batch of one token sequence
	// conditioned on the matching style vectors.
	Infer(ctx context.Context, tokens [][]int64, styles [][]float32, speed float32) ([]float32, error)
	Close() error
}
