package cache

import (
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tonearm/tonearm/notify"
	"github.com/tonearm/tonearm/protocol"
	"github.com/tonearm/tonearm/telemetry"
)

// commandClasses maps cacheable browse commands to the subsystem whose
// change notifications invalidate them. Only read-only commands whose
// replies depend solely on that subsystem belong here.
var commandClasses = map[string]protocol.Subsystem{
	"list":             protocol.SubsystemDatabase,
	"lsinfo":           protocol.SubsystemDatabase,
	"find":             protocol.SubsystemDatabase,
	"search":           protocol.SubsystemDatabase,
	"count":            protocol.SubsystemDatabase,
	"listall":          protocol.SubsystemDatabase,
	"listallinfo":      protocol.SubsystemDatabase,
	"listplaylists":    protocol.SubsystemStoredPlaylist,
	"listplaylist":     protocol.SubsystemStoredPlaylist,
	"listplaylistinfo": protocol.SubsystemStoredPlaylist,
}

type entry struct {
	resp  *protocol.Response
	class protocol.Subsystem
}

// ResponseCache memoizes replies to idempotent browse commands and
// drops them when the server reports a change to the subsystem they
// were derived from. Purely in-memory.
type ResponseCache struct {
	entries *lru.Cache[uint64, entry]
	cancel  func()
	done    chan struct{}
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// New creates a cache invalidated by change notifications for host.
// The hub subscription is released by Close.
func New(size int, hub *notify.Hub, host string) (*ResponseCache, error) {
	entries, err := lru.New[uint64, entry](size)
	if err != nil {
		return nil, err
	}

	events, cancel, err := hub.Subscribe(notify.Filter{
		Hosts: []string{host},
		Subsystems: []string{
			string(protocol.SubsystemDatabase),
			string(protocol.SubsystemUpdate),
			string(protocol.SubsystemStoredPlaylist),
		},
	})
	if err != nil {
		return nil, err
	}

	c := &ResponseCache{
		entries: entries,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go c.invalidationLoop(events)

	return c, nil
}

func (c *ResponseCache) invalidationLoop(events <-chan notify.Event) {
	defer close(c.done)
	for event := range events {
		class := event.Subsystem
		if class == protocol.SubsystemUpdate {
			// A finished update changes the database
			class = protocol.SubsystemDatabase
		}
		c.purge(class)
	}
}

func (c *ResponseCache) purge(class protocol.Subsystem) {
	for _, key := range c.entries.Keys() {
		if e, ok := c.entries.Peek(key); ok && e.class == class {
			c.entries.Remove(key)
			telemetry.CacheInvalidationsTotal.Inc()
		}
	}
}

// Get returns the cached reply for cmd, if cmd is cacheable and fresh
func (c *ResponseCache) Get(cmd protocol.Command) (*protocol.Response, bool) {
	if _, ok := commandClasses[cmd.Name]; !ok {
		return nil, false
	}

	e, ok := c.entries.Get(xxhash.Sum64String(cmd.String()))
	if !ok {
		c.misses.Add(1)
		telemetry.CacheMissesTotal.Inc()
		return nil, false
	}

	c.hits.Add(1)
	telemetry.CacheHitsTotal.Inc()
	return e.resp, true
}

// Put stores the reply for cmd when cmd is cacheable
func (c *ResponseCache) Put(cmd protocol.Command, resp *protocol.Response) {
	class, ok := commandClasses[cmd.Name]
	if !ok {
		return
	}
	c.entries.Add(xxhash.Sum64String(cmd.String()), entry{resp: resp, class: class})
}

// Stats reports cache counters for the admin API
func (c *ResponseCache) Stats() (hits, misses uint64, size int) {
	return c.hits.Load(), c.misses.Load(), c.entries.Len()
}

// Close releases the hub subscription and waits the invalidation loop out
func (c *ResponseCache) Close() {
	c.cancel()
	<-c.done
}
