package audio

// PullSource is the playback contract: the host pulls chunks from Chunks()
// and plays them however it likes. Channel close means clean end-of-stream.
type PullSource struct {
	ch chan []float32
}

func NewPullSource(depth int) *PullSource {
	if depth <= 0 {
		depth = 32
	}
	return &PullSource{ch: make(chan []float32, depth)}
}

// Chunks is the receive side for the host.
func (p *PullSource) Chunks() <-chan []float32 {
	return p.ch
}

// WriteChunk implements Sink.
func (p *PullSource) WriteChunk(samples []float32) error {
	p.ch <- samples
	return nil
}

// Close implements Sink and signals end-of-stream to the host.
func (p *PullSource) Close() error {
	close(p.ch)
	return nil
}
