package engine

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"sync"

	shellwords "github.com/mattn/go-shellwords"
)

// execEngine drives an external inference process over JSON lines on stdio:
// one request object in, one response object out per inference.
type execEngine struct {
	cmd        []string
	sampleRate int
	mu         sync.Mutex
}

type execRequest struct {
	Tokens     [][]int64   `json:"tokens"`
	Styles     [][]float32 `json:"styles"`
	Speed      float32     `json:"speed"`
	SampleRate int         `json:"sample_rate"`
}

type execResponse struct {
	PCMBase64 string `json:"pcm_base64"`
	Error     string `json:"error,omitempty"`
}

func NewExecEngine(command string, sampleRate int) (Engine, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse engine command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("engine command empty")
	}
	return &execEngine{cmd: args, sampleRate: sampleRate}, nil
}

func (e *execEngine) Infer(ctx context.Context, tokens [][]int64, styles [][]float32, speed float32) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	payload, err := json.Marshal(execRequest{
		Tokens:     tokens,
		Styles:     styles,
		Speed:      speed,
		SampleRate: e.sampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}

	cmd := exec.CommandContext(ctx, e.cmd[0], e.cmd[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}

	if _, err := stdin.Write(append(payload, '\n')); err != nil {
		cmd.Wait()
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}
	stdin.Close()

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 1024*1024), 64*1024*1024)
	var resp execResponse
	decoded := false
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := json.Unmarshal(line, &resp); err != nil {
			cmd.Wait()
			return nil, fmt.Errorf("%w: %v", ErrInference, err)
		}
		decoded = true
		break
	}
	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}
	if scanErr := scanner.Err(); scanErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrInference, scanErr)
	}
	if !decoded {
		return nil, fmt.Errorf("%w: no response from engine process", ErrInference)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrInference, resp.Error)
	}

	raw, err := base64.StdEncoding.DecodeString(resp.PCMBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("%w: pcm payload not float32-aligned", ErrInference)
	}
	audio := make([]float32, len(raw)/4)
	for i := range audio {
		audio[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return audio, nil
}

func (e *execEngine) Close() error { return nil }
