package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-audio/wav"
)

func TestWAVHeaderLayout(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteWAVHeader(&buf, 1, 24000, 1000); err != nil {
		t.Fatalf("write header: %v", err)
	}
	b := buf.Bytes()
	if len(b) != 44 {
		t.Fatalf("expected 44-byte header, got %d", len(b))
	}
	if string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" || string(b[36:40]) != "data" {
		t.Fatalf("bad chunk markers: %q %q %q", b[0:4], b[8:12], b[36:40])
	}
	if format := binary.LittleEndian.Uint16(b[20:22]); format != 3 {
		t.Fatalf("expected IEEE float format 3, got %d", format)
	}
	if rate := binary.LittleEndian.Uint32(b[24:28]); rate != 24000 {
		t.Fatalf("expected sample rate 24000, got %d", rate)
	}
	if size := binary.LittleEndian.Uint32(b[40:44]); size != 1000 {
		t.Fatalf("expected data size 1000, got %d", size)
	}
}

func TestEncodeDecodeSamples(t *testing.T) {
	in := []float32{0, 0.5, -0.5, 1}
	out, err := DecodeSamples(EncodeSamples(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("sample %d: %v != %v", i, in[i], out[i])
		}
	}
	if _, err := DecodeSamples([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for unaligned payload")
	}
}

func TestStreamSinkWritesHeaderOnce(t *testing.T) {
	var buf bytes.Buffer
	s := NewStreamSink(&buf, 1, 24000)
	if err := s.WriteChunk([]float32{0.1, 0.2}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.WriteChunk([]float32{0.3}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := buf.Len(); got != 44+3*4 {
		t.Fatalf("expected single header plus 3 samples, got %d bytes", got)
	}
}

func TestFileSinkRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	sink, err := NewFileSink(path, 24000, true)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	if err := sink.WriteChunk([]float32{0, 0.5, -0.5}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(pcm.Data) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(pcm.Data))
	}
	if pcm.Format.SampleRate != 24000 || pcm.Format.NumChannels != 1 {
		t.Fatalf("unexpected format: %+v", pcm.Format)
	}
}

func TestFileSinkStereoDuplicatesSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	sink, err := NewFileSink(path, 24000, false)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	if err := sink.WriteChunk([]float32{0.25}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	pcm, err := wav.NewDecoder(f).FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(pcm.Data) != 2 || pcm.Data[0] != pcm.Data[1] {
		t.Fatalf("expected duplicated stereo sample, got %v", pcm.Data)
	}
}

// recordSink captures chunks in order.
type recordSink struct {
	mu     sync.Mutex
	chunks [][]float32
	closed bool
	fail   bool
}

func (r *recordSink) WriteChunk(samples []float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("sink broke")
	}
	r.chunks = append(r.chunks, samples)
	return nil
}

func (r *recordSink) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordSink) snapshot() ([][]float32, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chunks, r.closed
}

func TestCoordinatorOrderedFanOut(t *testing.T) {
	c := NewCoordinator(8)
	a := &recordSink{}
	b := &recordSink{}
	c.Add(a)
	c.Add(b)

	for i := 0; i < 5; i++ {
		c.Enqueue([]float32{float32(i)})
	}
	if err := c.Drain(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}

	for _, sink := range []*recordSink{a, b} {
		chunks, closed := sink.snapshot()
		if !closed {
			t.Fatal("expected sink closed after drain")
		}
		if len(chunks) != 5 {
			t.Fatalf("expected 5 chunks, got %d", len(chunks))
		}
		for i, ch := range chunks {
			if ch[0] != float32(i) {
				t.Fatalf("order broken at %d: %v", i, ch)
			}
		}
	}
}

func TestCoordinatorCloneIsolation(t *testing.T) {
	c := NewCoordinator(8)
	a := &recordSink{}
	c.Add(a)

	chunk := []float32{1, 2, 3}
	c.Enqueue(chunk)
	chunk[0] = 99
	if err := c.Drain(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}
	chunks, _ := a.snapshot()
	if chunks[0][0] != 1 {
		t.Fatalf("chunk mutated after handoff: %v", chunks[0])
	}
}

func TestCoordinatorSinkErrorSurfacesOnDrain(t *testing.T) {
	c := NewCoordinator(8)
	c.Add(&recordSink{fail: true})
	c.Enqueue([]float32{1})
	if err := c.Drain(context.Background()); err == nil {
		t.Fatal("expected sink error from drain")
	}
}

func TestCoordinatorAbortClosesSinks(t *testing.T) {
	c := NewCoordinator(8)
	a := &recordSink{}
	c.Add(a)
	c.Enqueue([]float32{1})
	c.Abort()
	if !c.Aborted() {
		t.Fatal("expected aborted flag")
	}
	_, closed := a.snapshot()
	if !closed {
		t.Fatal("expected sink closed after abort")
	}
	c.Enqueue([]float32{2}) // must be a no-op
}

func TestCoordinatorDrainTimeout(t *testing.T) {
	c := NewCoordinator(1)
	block := make(chan struct{})
	c.Add(sinkFunc(func([]float32) error {
		<-block
		return nil
	}))
	c.Enqueue([]float32{1})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := c.Drain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	close(block)
}

type sinkFunc func([]float32) error

func (f sinkFunc) WriteChunk(samples []float32) error { return f(samples) }
func (f sinkFunc) Close() error                       { return nil }

func TestPullSourceEndOfStream(t *testing.T) {
	p := NewPullSource(4)
	if err := p.WriteChunk([]float32{1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	first, ok := <-p.Chunks()
	if !ok || first[0] != 1 {
		t.Fatalf("expected first chunk, got %v %v", first, ok)
	}
	if _, ok := <-p.Chunks(); ok {
		t.Fatal("expected closed channel after Close")
	}
}
