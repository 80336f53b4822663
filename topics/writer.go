// Package topics implements the L2 presentation layer: a topic-keyed
// mapping batched into one L1 frame per publication, with per-topic
// handler dispatch on the read side.
package topics

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Publisher is the L1 surface a Writer needs. *region.Writer satisfies it.
type Publisher interface {
	Publish(payload []byte) error
}

// Writer accumulates a topic-keyed mapping and batches it into one L1
// frame per Write call (L2W).
type Writer struct {
	mu      sync.Mutex
	pub     Publisher
	pending map[string]any
}

// NewWriter wraps an L1 publisher.
func NewWriter(pub Publisher) *Writer {
	return &Writer{pub: pub, pending: make(map[string]any)}
}

// Add stores value under topic, replacing any existing value for that
// topic. Nothing is published until Write is called.
func (w *Writer) Add(topic string, value any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[topic] = value
}

// Clear empties the pending mapping without publishing.
func (w *Writer) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	clear(w.pending)
}

// Write serializes the accumulated mapping to a compact JSON object and
// publishes it as a single L1 frame, then clears the mapping. An empty
// mapping is a valid publication — it represents "no topics this tick".
//
// On ErrEncode or a transport error, the pending mapping is retained so
// the caller can fix the offending value (or shrink the payload) and
// retry Write.
func (w *Writer) Write() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	b, err := json.Marshal(w.pending)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}

	if err := w.pub.Publish(b); err != nil {
		return err
	}

	clear(w.pending)
	return nil
}

// Pending returns the topic names currently staged for the next Write.
func (w *Writer) Pending() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	names := make([]string, 0, len(w.pending))
	for k := range w.pending {
		names = append(names, k)
	}
	return names
}
