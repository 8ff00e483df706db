package realtime

import (
	"errors"
	"sync"

	"github.com/mbd888/watchdog/internal/metrics"
)

// DefaultMaxSubscribers caps concurrent subscribers.
const DefaultMaxSubscribers = 10000

var (
	ErrDuplicateSubscriber = errors.New("realtime: subscriber already registered")
	ErrTooManySubscribers  = errors.New("realtime: too many subscribers")
	ErrRegistryClosed      = errors.New("realtime: registry closed")
)

// Registry tracks open subscribers by id.
type Registry struct {
	mu   sync.RWMutex
	subs map[string]*Subscriber
	max  int

	total  int64
	peak   int
	closed bool
}

// NewRegistry creates a registry holding at most limit subscribers.
func NewRegistry(limit int) *Registry {
	if limit <= 0 {
		limit = DefaultMaxSubscribers
	}
	return &Registry{
		subs: make(map[string]*Subscriber),
		max:  limit,
	}
}

// Register adds s. A second registration of the same id is rejected, as is
// any registration after CloseAll.
func (r *Registry) Register(s *Subscriber) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRegistryClosed
	}
	if _, ok := r.subs[s.id]; ok {
		r.mu.Unlock()
		return ErrDuplicateSubscriber
	}
	if len(r.subs) >= r.max {
		r.mu.Unlock()
		return ErrTooManySubscribers
	}
	r.subs[s.id] = s
	r.total++
	n := len(r.subs)
	if n > r.peak {
		r.peak = n
	}
	r.mu.Unlock()

	metrics.ActiveSubscribers.Set(float64(n))
	return nil
}

// Unregister removes the subscriber with id and closes its queue. It
// reports whether anything was removed; repeated calls are no-ops.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	s, ok := r.subs[id]
	if ok {
		delete(r.subs, id)
	}
	n := len(r.subs)
	r.mu.Unlock()

	if !ok {
		return false
	}
	s.close()
	metrics.ActiveSubscribers.Set(float64(n))
	return true
}

// Snapshot returns the subscribers registered at this instant.
func (r *Registry) Snapshot() []*Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Subscriber, 0, len(r.subs))
	for _, s := range r.subs {
		out = append(out, s)
	}
	return out
}

// Len returns the number of registered subscribers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// CloseAll unregisters every subscriber and refuses later registrations.
func (r *Registry) CloseAll() int {
	r.mu.Lock()
	r.closed = true
	subs := r.subs
	r.subs = make(map[string]*Subscriber)
	r.mu.Unlock()

	for _, s := range subs {
		s.close()
	}
	metrics.ActiveSubscribers.Set(0)
	return len(subs)
}

// RegistryStats summarizes registry activity.
type RegistryStats struct {
	Connected int   `json:"connectedSubscribers"`
	Total     int64 `json:"totalSubscribers"`
	Peak      int   `json:"peakSubscribers"`
}

// Stats returns registry counters.
func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return RegistryStats{Connected: len(r.subs), Total: r.total, Peak: r.peak}
}
