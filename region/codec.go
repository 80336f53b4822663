package region

import (
	"encoding/binary"
	"hash/crc32"
)

// checksum computes the IEEE CRC32 of b. Kept as a thin wrapper so the rest
// of the package never imports hash/crc32 directly — the one place the
// polynomial choice is pinned.
func checksum(b []byte) uint32 {
	return crc32.ChecksumIEEE(b)
}

// packFrame writes size_le || crc_le || payload into slot, starting at
// offset 0 of slot. slot must be at least slotHeaderSize+len(payload) bytes.
// It fails (returns false) if the payload would overflow the slot.
func packFrame(slot []byte, payload []byte) bool {
	if len(payload) > len(slot)-slotHeaderSize {
		return false
	}
	binary.LittleEndian.PutUint32(slot[0:4], uint32(len(payload)))
	binary.LittleEndian.PutUint32(slot[4:8], checksum(payload))
	copy(slot[slotHeaderSize:slotHeaderSize+len(payload)], payload)
	return true
}

// unpackFrame reads size+crc from slot and validates the payload that
// follows against the stored checksum. dst is reused when it has enough
// capacity; the returned slice may alias dst.
func unpackFrame(slot []byte, bufCap uint32, dst []byte) (payload []byte, ok bool) {
	size := binary.LittleEndian.Uint32(slot[0:4])
	if size > bufCap {
		return nil, false
	}
	storedCRC := binary.LittleEndian.Uint32(slot[4:8])
	raw := slot[slotHeaderSize : slotHeaderSize+size]

	if cap(dst) < int(size) {
		dst = make([]byte, size)
	} else {
		dst = dst[:size]
	}
	copy(dst, raw)

	if checksum(dst) != storedCRC {
		return dst, false
	}
	return dst, true
}
