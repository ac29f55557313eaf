package audio

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Sink consumes synthesized chunks. WriteChunk is called from a single
// goroutine per sink, always in production order.
type Sink interface {
	WriteChunk(samples []float32) error
	Close() error
}

// Coordinator fans chunks out to every registered sink over bounded,
// per-sink ordered channels. Production never blocks on one slow sink at
// the expense of order; each sink sees every chunk in sequence.
type Coordinator struct {
	depth int

	mu      sync.Mutex
	sinks   []*sinkWorker
	group   *errgroup.Group
	aborted bool
	closed  bool
}

type sinkWorker struct {
	sink Sink
	ch   chan []float32
}

// NewCoordinator creates a coordinator whose per-sink queues hold depth
// chunks.
func NewCoordinator(depth int) *Coordinator {
	if depth <= 0 {
		depth = 32
	}
	return &Coordinator{depth: depth, group: &errgroup.Group{}}
}

// Add registers a sink and starts its delivery goroutine. The coordinator
// owns the sink from here on and closes it during Drain or Abort.
func (c *Coordinator) Add(sink Sink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	w := &sinkWorker{sink: sink, ch: make(chan []float32, c.depth)}
	c.sinks = append(c.sinks, w)
	c.group.Go(func() error {
		for chunk := range w.ch {
			if err := w.sink.WriteChunk(chunk); err != nil {
				// drain remaining chunks so the producer never blocks
				for range w.ch {
				}
				w.sink.Close()
				return fmt.Errorf("sink write: %w", err)
			}
		}
		return w.sink.Close()
	})
}

// Enqueue hands a chunk to every sink. The chunk is cloned per sink and
// never mutated after handoff.
func (c *Coordinator) Enqueue(chunk []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	for _, w := range c.sinks {
		clone := make([]float32, len(chunk))
		copy(clone, chunk)
		w.ch <- clone
	}
}

// Drain closes the queues and waits until every sink has consumed its
// remaining chunks and closed, or the context expires.
func (c *Coordinator) Drain(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	for _, w := range c.sinks {
		close(w.ch)
	}
	c.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- c.group.Wait() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Abort discards queued chunks and closes every sink. Durable sinks keep
// whatever they had already flushed.
func (c *Coordinator) Abort() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.aborted = true
	for _, w := range c.sinks {
		// empty the queue before closing so workers exit without
		// writing the backlog
		for {
			select {
			case <-w.ch:
				continue
			default:
			}
			break
		}
		close(w.ch)
	}
	c.mu.Unlock()
	c.group.Wait()
}

// Aborted reports whether the coordinator was hard-stopped.
func (c *Coordinator) Aborted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aborted
}
