package engine

import (
	"context"
	"fmt"
	"math"
)

// mockEngine produces a quiet sine tone proportional to the token count.
// It keeps the whole pipeline runnable without a model checkpoint.
type mockEngine struct {
	sampleRate int
	// samples of audio per input token at speed 1.0
	samplesPerToken int
}

func NewMockEngine(sampleRate int) Engine {
	return &mockEngine{
		sampleRate:      sampleRate,
		samplesPerToken: sampleRate / 20,
	}
}

func (m *mockEngine) Infer(ctx context.Context, tokens [][]int64, styles [][]float32, speed float32) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}
	if len(tokens) == 0 || len(tokens[0]) == 0 {
		return nil, fmt.Errorf("%w: empty token batch", ErrInference)
	}
	if speed <= 0 {
		return nil, fmt.Errorf("%w: non-positive speed %v", ErrInference, speed)
	}

	n := int(float32(len(tokens[0])*m.samplesPerToken) / speed)
	audio := make([]float32, n)
	freq := 220.0
	if len(styles) > 0 && len(styles[0]) > 0 {
		// style nudges the pitch so different voices are audibly distinct
		freq += math.Abs(float64(styles[0][0])) * 100
	}
	for i := range audio {
		audio[i] = 0.1 * float32(math.Sin(2*math.Pi*freq*float64(i)/float64(m.sampleRate)))
	}
	return audio, nil
}

func (m *mockEngine) Close() error { return nil }
