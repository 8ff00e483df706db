// Package realtime fans mempool events out to live WebSocket subscribers.
//
// A Registry owns every open Subscriber. A Broadcaster takes one snapshot
// of the registry per broadcast and queues frames on each subscriber in
// emission order. The Hub upgrades HTTP connections and runs the read and
// write pumps that move queued frames onto the wire.
package realtime

import (
	"strings"
	"sync"
)

// DefaultQueueSize is the per-subscriber send buffer.
const DefaultQueueSize = 256

// Frame is one serialized event plus the metadata used for filtering.
type Frame struct {
	Event   string
	Token   string
	Payload []byte
}

// Filter narrows what a subscriber receives. Empty lists match everything.
type Filter struct {
	Events []string `json:"events"`
	Tokens []string `json:"tokens"`
}

// Match reports whether f accepts frame.
func (f Filter) Match(frame Frame) bool {
	if len(f.Events) > 0 && !containsFold(f.Events, frame.Event) {
		return false
	}
	if len(f.Tokens) > 0 && !containsFold(f.Tokens, frame.Token) {
		return false
	}
	return true
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// Subscriber is one live connection's delivery queue.
type Subscriber struct {
	id   string
	send chan []byte

	mu     sync.Mutex
	open   bool
	filter Filter
}

// NewSubscriber creates an open subscriber with a bounded queue.
func NewSubscriber(id string, queueSize int) *Subscriber {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Subscriber{
		id:   id,
		send: make(chan []byte, queueSize),
		open: true,
	}
}

// ID returns the subscriber's opaque id.
func (s *Subscriber) ID() string { return s.id }

// Queue returns the receive side of the send queue. It is closed when the
// subscriber is unregistered.
func (s *Subscriber) Queue() <-chan []byte { return s.send }

// Open reports whether the subscriber still accepts frames.
func (s *Subscriber) Open() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// SetFilter replaces the subscriber's filter.
func (s *Subscriber) SetFilter(f Filter) {
	s.mu.Lock()
	s.filter = f
	s.mu.Unlock()
}

// Filter returns the current filter.
func (s *Subscriber) Filter() Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

type enqueueResult int

const (
	enqueued enqueueResult = iota
	skippedClosed
	queueFull
)

// enqueue queues every frame that passes the filter, all or nothing, so a
// trigger's frames stay contiguous and in order on this subscriber.
func (s *Subscriber) enqueue(frames []Frame) (enqueueResult, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return skippedClosed, 0
	}

	matched := make([][]byte, 0, len(frames))
	for _, f := range frames {
		if s.filter.Match(f) {
			matched = append(matched, f.Payload)
		}
	}
	if cap(s.send)-len(s.send) < len(matched) {
		return queueFull, 0
	}
	for _, p := range matched {
		s.send <- p
	}
	return enqueued, len(matched)
}

// close marks the subscriber closed and closes its queue. Idempotent.
func (s *Subscriber) close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return false
	}
	s.open = false
	close(s.send)
	return true
}
