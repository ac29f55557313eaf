package audio

import (
	"fmt"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// FileSink encodes chunks into a 16-bit PCM WAV file. The encoder finalizes
// sizes on Close; chunks already written survive a hard abort up to the last
// flush.
type FileSink struct {
	file     *os.File
	enc      *wav.Encoder
	format   *gaudio.Format
	channels int
	mono     bool
}

// NewFileSink creates the output file. With mono false each sample is
// duplicated into both channels.
func NewFileSink(path string, sampleRate int, mono bool) (*FileSink, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create wav file: %w", err)
	}
	channels := 2
	if mono {
		channels = 1
	}
	return &FileSink{
		file:     file,
		enc:      wav.NewEncoder(file, sampleRate, 16, channels, 1),
		format:   &gaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		channels: channels,
		mono:     mono,
	}, nil
}

func (f *FileSink) WriteChunk(samples []float32) error {
	data := make([]int, 0, len(samples)*f.channels)
	for _, s := range samples {
		v := clampSample(s)
		data = append(data, v)
		if !f.mono {
			data = append(data, v)
		}
	}
	buf := &gaudio.IntBuffer{Format: f.format, Data: data, SourceBitDepth: 16}
	if err := f.enc.Write(buf); err != nil {
		return fmt.Errorf("write wav chunk: %w", err)
	}
	// flush to stable storage per chunk so a crash mid-stream keeps the
	// samples written so far
	if err := f.file.Sync(); err != nil {
		return fmt.Errorf("sync wav file: %w", err)
	}
	return nil
}

func (f *FileSink) Close() error {
	if err := f.enc.Close(); err != nil {
		f.file.Close()
		return fmt.Errorf("close wav encoder: %w", err)
	}
	if err := f.file.Close(); err != nil {
		return fmt.Errorf("close wav file: %w", err)
	}
	return nil
}

func clampSample(s float32) int {
	scaled := s * 32767
	switch {
	case scaled > 32767:
		return 32767
	case scaled < -32768:
		return -32768
	default:
		return int(scaled)
	}
}
