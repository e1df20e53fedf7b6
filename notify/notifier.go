package notify

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gobwas/glob"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/tonearm/tonearm/protocol"
	"github.com/tonearm/tonearm/telemetry"
)

// DefaultBufferSize is the per-subscriber channel capacity used when no
// explicit capacity is configured. Sized generously so a briefly slow
// consumer loses nothing; a consumer that never drains has its newest
// events dropped (non-blocking send).
const DefaultBufferSize = 64

// Event is one decoded server change notification. Immutable once
// published; shared read-only across all subscriber deliveries.
type Event struct {
	Host      string
	Subsystem protocol.Subsystem
	At        time.Time
}

// Filter restricts which events a subscriber receives. Subsystems are
// glob patterns over subsystem names; Hosts is an exact-match list.
// Empty fields match everything.
type Filter struct {
	Subsystems []string
	Hosts      []string
}

// subscription represents a single subscriber.
type subscription struct {
	id     uint64
	globs  []glob.Glob
	hosts  []string
	ch     chan Event
	closed atomic.Bool
}

// matches checks if the event passes this subscription's filter.
func (s *subscription) matches(e Event) bool {
	if len(s.hosts) > 0 {
		found := false
		for _, h := range s.hosts {
			if h == e.Host {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	// No patterns = all subsystems
	if len(s.globs) == 0 {
		return true
	}
	for _, g := range s.globs {
		if g.Match(string(e.Subsystem)) {
			return true
		}
	}
	return false
}

// close closes the subscription channel if not already closed.
func (s *subscription) close() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.ch)
	}
}

// Hub fans change notifications out to independent subscribers, each
// behind its own bounded channel so no consumer can stall another.
type Hub struct {
	bufferSize    int
	subscriptions *xsync.MapOf[uint64, *subscription]
	nextID        atomic.Uint64
	published     atomic.Uint64
	dropped       atomic.Uint64
	stopped       atomic.Bool
}

// NewHub creates a notification hub with the given per-subscriber
// channel capacity. Zero or negative selects DefaultBufferSize.
func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Hub{
		bufferSize:    bufferSize,
		subscriptions: xsync.NewMapOf[uint64, *subscription](),
	}
}

// Publish offers the event to every matching subscriber (non-blocking).
// A subscriber whose channel is full loses this event; other
// subscribers are unaffected.
func (h *Hub) Publish(e Event) {
	if h.stopped.Load() {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}

	h.published.Add(1)
	telemetry.EventsPublishedTotal.Inc()

	h.subscriptions.Range(func(_ uint64, sub *subscription) bool {
		if !sub.matches(e) {
			return true
		}
		if sub.closed.Load() {
			return true
		}

		// Non-blocking send - drop if buffer full
		select {
		case sub.ch <- e:
		default:
			h.dropped.Add(1)
			telemetry.EventsDroppedTotal.Inc()
		}
		return true
	})
}

// Subscribe creates a new subscription and returns the event channel
// and an idempotent cancel function. Safe to call at any time,
// including before the first connection exists; a new subscriber only
// observes events published after it registers.
func (h *Hub) Subscribe(filter Filter) (<-chan Event, func(), error) {
	globs := make([]glob.Glob, 0, len(filter.Subsystems))
	for _, pattern := range filter.Subsystems {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid subsystem pattern %q: %w", pattern, err)
		}
		globs = append(globs, g)
	}

	sub := &subscription{
		id:    h.nextID.Add(1),
		globs: globs,
		hosts: filter.Hosts,
		ch:    make(chan Event, h.bufferSize),
	}

	if h.stopped.Load() {
		// Hub already shut down: hand back a closed channel so the
		// caller observes immediate end-of-stream.
		sub.close()
		return sub.ch, func() {}, nil
	}

	h.subscriptions.Store(sub.id, sub)
	telemetry.SubscribersActive.Inc()

	cancel := func() {
		h.unsubscribe(sub.id)
	}

	return sub.ch, cancel, nil
}

// unsubscribe removes a subscription and closes its channel.
func (h *Hub) unsubscribe(id uint64) {
	sub, ok := h.subscriptions.LoadAndDelete(id)
	if ok {
		telemetry.SubscribersActive.Dec()
		sub.close()
	}
}

// CloseAll shuts the hub down: all subscriber channels are closed so
// every consumer observes end-of-stream, and later publishes are
// discarded. Called once from the facade's Stop.
func (h *Hub) CloseAll() {
	if !h.stopped.CompareAndSwap(false, true) {
		return
	}
	h.subscriptions.Range(func(id uint64, sub *subscription) bool {
		h.subscriptions.Delete(id)
		telemetry.SubscribersActive.Dec()
		sub.close()
		return true
	})
}

// Stats reports hub counters for the admin API
func (h *Hub) Stats() (subscribers int, published, dropped uint64) {
	return h.subscriptions.Size(), h.published.Load(), h.dropped.Load()
}
