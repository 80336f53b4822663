package topics

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/ashwin-nat/pits-n-giggles-sub002/region"
)

// Handler is invoked with a topic's raw payload once per dispatch. Unmarshal
// it into whatever concrete type the caller expects for that topic.
type Handler func(payload json.RawMessage)

// Poller is the L1 surface a Reader needs. *region.Reader satisfies it.
type Poller interface {
	Poll() region.PollResult
}

// ReadKind classifies the outcome of a single Read call.
type ReadKind int

const (
	ReadNothingNew ReadKind = iota
	ReadDispatched
	ReadCorrupt
	ReadDecodeError
	ReadDetached
)

// ReadResult is the outcome of Read.
type ReadResult struct {
	Kind   ReadKind
	Topics int
	Seq    uint64

	// Err is set when Kind is ReadDecodeError; it wraps ErrDecode with the
	// underlying json.Unmarshal failure.
	Err error
}

// Reader dispatches each topic in a decoded frame to its registered
// handler (L2R).
type Reader struct {
	mu       sync.Mutex
	poll     Poller
	handlers map[string]Handler

	// Logger receives a line when a handler panics mid-dispatch; defaults
	// to the standard logger. The reader never panics itself — dispatch
	// is best-effort and continues to the remaining topics.
	Logger *log.Logger
}

// NewReader wraps an L1 poller.
func NewReader(poll Poller) *Reader {
	return &Reader{poll: poll, handlers: make(map[string]Handler), Logger: log.Default()}
}

// On registers handler for topic, replacing any handler previously
// registered for the same topic.
func (r *Reader) On(topic string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[topic] = handler
}

// Off removes the handler registered for topic, if any.
func (r *Reader) Off(topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, topic)
}

// Topics returns the names of currently registered topics.
func (r *Reader) Topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		names = append(names, k)
	}
	return names
}

// Read polls the transport and, if a new frame is present, decodes it and
// dispatches each topic to its registered handler synchronously on the
// calling goroutine. Dispatch order across topics is unspecified. Unknown
// topics (no registered handler) are ignored. A handler panic is
// recovered, logged, and dispatch continues with the remaining topics —
// partial dispatch is acceptable under latest-state semantics.
func (r *Reader) Read() ReadResult {
	res := r.poll.Poll()

	switch res.Kind {
	case region.NothingNew:
		return ReadResult{Kind: ReadNothingNew}
	case region.Corrupt:
		return ReadResult{Kind: ReadCorrupt, Seq: res.Seq}
	case region.Detached:
		return ReadResult{Kind: ReadDetached}
	}

	var mapping map[string]json.RawMessage
	if err := json.Unmarshal(res.Payload, &mapping); err != nil {
		return ReadResult{Kind: ReadDecodeError, Seq: res.Seq, Err: fmt.Errorf("%w: %v", ErrDecode, err)}
	}

	r.mu.Lock()
	handlers := make(map[string]Handler, len(r.handlers))
	for k, v := range r.handlers {
		handlers[k] = v
	}
	r.mu.Unlock()

	for topic, payload := range mapping {
		handler, ok := handlers[topic]
		if !ok {
			continue
		}
		r.dispatch(topic, handler, payload)
	}

	return ReadResult{Kind: ReadDispatched, Topics: len(mapping), Seq: res.Seq}
}

func (r *Reader) dispatch(topic string, handler Handler, payload json.RawMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			r.Logger.Printf("topics: handler for %q panicked: %v", topic, rec)
		}
	}()
	handler(payload)
}
