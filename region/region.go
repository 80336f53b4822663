// Package region implements the L1 shared-memory transport: a fixed-size
// named region holding a small header and two mirrored payload buffers,
// one active at a time. A single writer publishes frames lock-free; any
// number of readers observe the latest valid frame, validated by CRC32.
//
// See the package-level invariants in the project spec: seq is the
// linearization point, active_index names the committed slot, and the
// inactive slot is the writer's private scratchpad at all times.
package region

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const (
	// DefaultBufferCapacity is the default per-slot payload capacity (512 KiB).
	DefaultBufferCapacity = 512 * 1024

	headerSize     = 16 // seq(8) + active_index(1, atomic word 4) + pad
	slotHeaderSize = 8  // size(4) + crc(4)

	seqOffset         = 0
	activeIndexOffset = 8
)

// Size returns the exact region size for a given buffer capacity:
// 16 + 2*(8+bufCap), matching the wire layout in the spec.
func Size(bufCap uint32) int64 {
	return int64(headerSize) + 2*(int64(slotHeaderSize)+int64(bufCap))
}

func shmPath(name string) string {
	return "/dev/shm/" + name
}

// slotOffset returns the byte offset of slot i's header within the region.
func slotOffset(bufCap uint32, i int) int64 {
	return int64(headerSize) + int64(i)*(int64(slotHeaderSize)+int64(bufCap))
}

// mapping is the shared plumbing behind both Writer and Reader: an mmap'd
// view of the region plus the geometry needed to address it.
type mapping struct {
	data   []byte
	bufCap uint32
	fd     int
	path   string
	closed bool
}

// openMapping opens (and optionally creates) the named region and mmaps it.
// When create is true, a missing region is created and zero-initialized;
// an existing region's size must match exactly or ErrSizeMismatch is
// returned. When create is false, a missing region yields ErrNotFound.
func openMapping(name string, bufCap uint32, create bool, writable bool) (*mapping, error) {
	if bufCap == 0 {
		bufCap = DefaultBufferCapacity
	}
	path := shmPath(name)
	wantSize := Size(bufCap)

	flags := os.O_RDONLY
	if writable {
		flags = os.O_RDWR
	}

	var f *os.File
	var err error
	created := false

	if create {
		f, err = os.OpenFile(path, flags|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			created = true
		} else if os.IsExist(err) {
			f, err = os.OpenFile(path, flags, 0644)
		}
	} else {
		f, err = os.OpenFile(path, flags, 0644)
	}
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("region: open %s: %w", path, err)
	}
	defer f.Close()

	if created {
		if err := f.Truncate(wantSize); err != nil {
			os.Remove(path)
			return nil, fmt.Errorf("region: truncate %s: %w", path, err)
		}
	} else {
		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("region: stat %s: %w", path, err)
		}
		if info.Size() != wantSize {
			return nil, fmt.Errorf("%w: %s has %d bytes, want %d", ErrSizeMismatch, path, info.Size(), wantSize)
		}
	}

	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(wantSize), prot, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("region: mmap %s: %w", path, err)
	}

	// Duplicate the fd so the mapping outlives the *os.File (deferred Close
	// above only closes our local handle; the mmap keeps the pages resident
	// regardless, this dup just lets us reopen/stat later if ever needed).
	fd, err := unix.Dup(int(f.Fd()))
	if err != nil {
		unix.Munmap(data)
		return nil, fmt.Errorf("region: dup %s: %w", path, err)
	}

	return &mapping{data: data, bufCap: bufCap, fd: fd, path: path}, nil
}

func unlink(name string) error {
	if err := os.Remove(shmPath(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("region: unlink %s: %w", shmPath(name), err)
	}
	return nil
}

// close unmaps and releases the fd. Idempotent: callers may observe a
// mapping going stale (e.g. a Reader noticing Detached) and close it
// independently of the owner's own Close, so a second call is a no-op
// rather than a double-munmap/double-close.
func (m *mapping) close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	err := unix.Munmap(m.data)
	if cerr := unix.Close(m.fd); err == nil {
		err = cerr
	}
	return err
}
