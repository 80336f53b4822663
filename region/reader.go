package region

import (
	"errors"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// PollKind classifies the outcome of a single Poll call.
type PollKind int

const (
	// NothingNew means no frame newer than the last one returned exists yet.
	NothingNew PollKind = iota
	// Frame means a new, CRC-valid frame was returned.
	Frame
	// Corrupt means the latest frame failed validation; last_seq was not
	// advanced, so the next Poll will retry the same or a newer frame.
	Corrupt
	// Detached means the region is no longer accessible (unlinked or
	// permissions changed). Call Reattach to recover.
	Detached
)

// PollResult is the outcome of Poll.
type PollResult struct {
	Kind    PollKind
	Payload []byte
	Seq     uint64
}

const defaultMaxRetryOnInterleave = 4

// Reader is the read-only side of a region (L1R). Any number of readers
// may attach to the same region concurrently; they never write.
type Reader struct {
	mu sync.Mutex

	m    *mapping
	seq  *atomic.Uint64
	idx  *atomic.Uint32
	name string

	bufCap            uint32
	maxRetry          int
	lastSeq           uint64
	scratch           []byte
	detached          bool
	corruptFrameCount uint64
	idlePolls         uint64
}

// ReaderOption configures Attach.
type ReaderOption func(*Reader)

// WithMaxRetryOnInterleave overrides the bounded retry count Poll uses when
// it detects the writer published mid-read (default 4).
func WithMaxRetryOnInterleave(n int) ReaderOption {
	return func(r *Reader) { r.maxRetry = n }
}

// Attach opens the named region read-only. Fails with ErrNotFound if the
// region does not exist, or ErrSizeMismatch if it exists with a different
// capacity than bufCap. Initial last_seq is 0.
func Attach(name string, bufCap uint32, opts ...ReaderOption) (*Reader, error) {
	m, err := openMapping(name, bufCap, false, false)
	if err != nil {
		return nil, err
	}
	r := &Reader{
		m:        m,
		name:     name,
		bufCap:   m.bufCap,
		maxRetry: defaultMaxRetryOnInterleave,
		seq:      (*atomic.Uint64)(unsafe.Pointer(&m.data[seqOffset])),
		idx:      (*atomic.Uint32)(unsafe.Pointer(&m.data[activeIndexOffset])),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// detachCheckEvery rate-limits the unlink check Poll runs when it would
// otherwise return NothingNew, so the common steady-state poll stays a
// pure memory operation (no syscalls) as the spec requires, while an
// unlinked region is still noticed within a bounded number of idle polls.
const detachCheckEvery = 64

// Poll returns the latest unseen valid frame, or NothingNew, Corrupt, or
// Detached. The hot path (a fresh frame or no new seq) touches only
// mapped memory; no syscalls. An idle reader occasionally fstats its held
// descriptor to notice the region was unlinked out from under it.
func (r *Reader) Poll() PollResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.detached {
		return PollResult{Kind: Detached}
	}

	for attempt := 0; attempt <= r.maxRetry; attempt++ {
		seqA := r.seq.Load()
		if seqA == 0 || seqA == r.lastSeq {
			r.idlePolls++
			if r.idlePolls%detachCheckEvery == 0 && r.unlinked() {
				r.detached = true
				r.m.close()
				return PollResult{Kind: Detached}
			}
			return PollResult{Kind: NothingNew}
		}

		idx := r.idx.Load() & 1
		slotStart := slotOffset(r.bufCap, int(idx))
		slotEnd := slotStart + int64(slotHeaderSize) + int64(r.bufCap)
		slot := r.m.data[slotStart:slotEnd]

		payload, valid := unpackFrame(slot, r.bufCap, r.scratch)
		r.scratch = payload[:cap(payload)]

		seqB := r.seq.Load()
		if seqB != seqA {
			// Writer published mid-read; retry up to the bound, then give up
			// for this poll (the next poll will try again from scratch).
			continue
		}

		if !valid {
			r.corruptFrameCount++
			return PollResult{Kind: Corrupt, Seq: seqA}
		}

		out := make([]byte, len(payload))
		copy(out, payload)
		r.lastSeq = seqA
		return PollResult{Kind: Frame, Payload: out, Seq: seqA}
	}

	return PollResult{Kind: NothingNew}
}

// Reattach re-opens a region after Detached. Idempotent: calling it while
// already attached is a no-op. On success, last_seq resets to 0 since a
// reattached region may belong to a brand-new writer whose seq restarted.
func (r *Reader) Reattach() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.detached {
		return nil
	}

	m, err := openMapping(r.name, r.bufCap, false, false)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrDetached
		}
		return err
	}

	// r.m was already closed wherever detached was set to true (Poll, on
	// noticing the region was unlinked); this close is a no-op in that
	// case and just a safety net against future callers of this path.
	r.m.close()
	r.m = m
	r.seq = (*atomic.Uint64)(unsafe.Pointer(&m.data[seqOffset]))
	r.idx = (*atomic.Uint32)(unsafe.Pointer(&m.data[activeIndexOffset]))
	r.lastSeq = 0
	r.detached = false
	return nil
}

// unlinked reports whether the shared-memory object backing this mapping
// has had its last directory entry removed (Nlink == 0) while we still
// hold it open. The mapping itself stays valid either way; this only
// answers "has the writer torn the region down".
func (r *Reader) unlinked() bool {
	var st unix.Stat_t
	if err := unix.Fstat(r.m.fd, &st); err != nil {
		return true
	}
	return st.Nlink == 0
}

// ReaderStats reports operational counters useful for demo/diagnostic tooling.
type ReaderStats struct {
	LastSeq           uint64
	CorruptFrameCount uint64
}

// Stats returns the reader's last observed seq and corrupt-frame count.
func (r *Reader) Stats() ReaderStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ReaderStats{LastSeq: r.lastSeq, CorruptFrameCount: r.corruptFrameCount}
}

// Close detaches from the region. Idempotent.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.detached {
		return nil
	}
	r.detached = true
	return r.m.close()
}
