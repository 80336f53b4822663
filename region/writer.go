package region

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"
)

// Writer is the single-writer side of a region (L1W). Concurrent Publish
// calls from multiple goroutines on the same Writer are not supported —
// exactly one writer is permitted per region (spec invariant I5).
type Writer struct {
	m    *mapping
	seq  *atomic.Uint64 // &data[seqOffset], little-endian in memory
	idx  *atomic.Uint32 // &data[activeIndexOffset]; only the low byte is meaningful
	mu   sync.Mutex
	name string

	unlinkOnClose bool
	closed        bool

	published uint64
}

// WriterOption configures OpenOrCreate.
type WriterOption func(*Writer)

// WithUnlinkOnClose makes Close unlink the shared-memory object after
// detaching, for a clean shutdown. Default is false: the region survives
// so a crashed-and-restarted writer, or straggling readers, keep working.
func WithUnlinkOnClose(unlink bool) WriterOption {
	return func(w *Writer) { w.unlinkOnClose = unlink }
}

// OpenOrCreate creates the named region if missing (zero-initialized
// header) or reattaches to an existing one, provided its size matches
// 16 + 2*(8+cap). cap defaults to DefaultBufferCapacity when 0.
func OpenOrCreate(name string, bufCap uint32, opts ...WriterOption) (*Writer, error) {
	m, err := openMapping(name, bufCap, true, true)
	if err != nil {
		return nil, err
	}
	w := &Writer{
		m:    m,
		name: name,
		seq:  (*atomic.Uint64)(unsafe.Pointer(&m.data[seqOffset])),
		idx:  (*atomic.Uint32)(unsafe.Pointer(&m.data[activeIndexOffset])),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Publish atomically publishes payload as the next frame. Fails with
// ErrPayloadTooLarge if len(payload) exceeds the configured capacity; the
// region is left unmodified in that case.
//
// Publish performs no syscalls and never blocks on reader progress
// (property P4): it writes the inactive slot, fences, then commits
// active_index and seq — in that order, matching the spec's publish
// algorithm exactly.
func (w *Writer) Publish(payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if uint32(len(payload)) > w.m.bufCap {
		return fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(payload), w.m.bufCap)
	}

	seq := w.seq.Load()
	nextSeq := seq + 1
	target := int(nextSeq & 1)

	slotStart := slotOffset(w.m.bufCap, target)
	slotEnd := slotStart + int64(slotHeaderSize) + int64(w.m.bufCap)
	slot := w.m.data[slotStart:slotEnd]

	// Step 3: write size+crc+payload into the currently inactive slot.
	// These stores need not be individually atomic; the release store of
	// seq below is what makes them visible as a group.
	if !packFrame(slot, payload) {
		return fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(payload), w.m.bufCap)
	}

	// Step 4: release fence, implicit in the atomic stores below on the
	// Go memory model (a Store establishes happens-before with a Load
	// that observes it).
	// Step 5: commit active_index then seq — seq is the linearization point.
	w.idx.Store(uint32(target))
	w.seq.Store(nextSeq)

	w.published++
	return nil
}

// WriterStats reports operational counters useful for demo/diagnostic tooling.
type WriterStats struct {
	Published uint64
	Seq       uint64
}

// Stats returns the writer's current publish count and last committed seq.
func (w *Writer) Stats() WriterStats {
	return WriterStats{Published: w.published, Seq: w.seq.Load()}
}

// Close detaches from the region, optionally unlinking the shared-memory
// object (see WithUnlinkOnClose). Idempotent.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	err := w.m.close()
	if w.unlinkOnClose {
		if rerr := unlink(w.name); err == nil {
			err = rerr
		}
	}
	return err
}
