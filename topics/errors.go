package topics

import "errors"

var (
	// ErrEncode wraps a serialization failure from Writer.Write. The
	// pending topic mapping is retained so the caller can fix and retry.
	ErrEncode = errors.New("topics: encode error")

	// ErrDecode wraps a deserialization failure in Reader.Read, surfaced
	// via ReadResult.Err when Kind is ReadDecodeError. The frame is
	// discarded; the next frame is tried on the next Read.
	ErrDecode = errors.New("topics: decode error")
)
