// Package audio carries synthesized PCM to its consumers: WAV encoders for
// durable output, a fan-out coordinator for live streaming, and a pull
// source for host playback.
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// StreamPlaceholderSize is the data size written into a streaming WAV
// header. A pipe cannot be rewound to patch the real size, so consumers of
// streamed WAV must tolerate the placeholder; most players do.
const StreamPlaceholderSize = 0xFFFFFFFF - 44

// WriteWAVHeader writes a 44-byte IEEE-float (format 3) WAV header for
// 32-bit samples.
func WriteWAVHeader(w io.Writer, channels uint16, sampleRate uint32, dataSize uint32) error {
	const bitsPerSample = 32
	chunkSize := 4 + 8 + 16 + 8 + dataSize

	var buf [44]byte
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], chunkSize)
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 3) // IEEE float
	binary.LittleEndian.PutUint16(buf[22:24], channels)
	binary.LittleEndian.PutUint32(buf[24:28], sampleRate)
	byteRate := sampleRate * uint32(channels) * bitsPerSample / 8
	binary.LittleEndian.PutUint32(buf[28:32], byteRate)
	blockAlign := channels * bitsPerSample / 8
	binary.LittleEndian.PutUint16(buf[32:34], blockAlign)
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], dataSize)

	_, err := w.Write(buf[:])
	return err
}

// WriteSamples appends raw little-endian float32 samples.
func WriteSamples(w io.Writer, samples []float32) error {
	buf := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}
	_, err := w.Write(buf)
	return err
}

// EncodeSamples returns the little-endian float32 byte encoding of samples.
func EncodeSamples(samples []float32) []byte {
	buf := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}
	return buf
}

// DecodeSamples is the inverse of EncodeSamples.
func DecodeSamples(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("pcm payload length %d not float32-aligned", len(raw))
	}
	samples := make([]float32, len(raw)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return samples, nil
}

// flusher is implemented by writers that can push buffered bytes downstream.
type flusher interface {
	Flush() error
}

// StreamSink writes a WAV stream with a placeholder size over any writer,
// flushing after every chunk so pipes and sockets see audio promptly.
type StreamSink struct {
	w        io.Writer
	started  bool
	channels uint16
	rate     uint32
}

func NewStreamSink(w io.Writer, channels uint16, sampleRate uint32) *StreamSink {
	return &StreamSink{w: w, channels: channels, rate: sampleRate}
}

func (s *StreamSink) WriteChunk(samples []float32) error {
	if !s.started {
		if err := WriteWAVHeader(s.w, s.channels, s.rate, StreamPlaceholderSize); err != nil {
			return fmt.Errorf("write stream header: %w", err)
		}
		s.started = true
	}
	if err := WriteSamples(s.w, samples); err != nil {
		return fmt.Errorf("write stream samples: %w", err)
	}
	if f, ok := s.w.(flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("flush stream: %w", err)
		}
	}
	return nil
}

func (s *StreamSink) Close() error {
	if f, ok := s.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}
