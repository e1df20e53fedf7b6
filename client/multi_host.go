package client

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/tonearm/tonearm/notify"
	"github.com/tonearm/tonearm/protocol"
)

// MultiHostClient supervises one persistent client per configured host
// and routes commands to the most relevant one: a playing host wins
// over a paused one, which wins over a stopped one. Notifications from
// every host merge into a single shared hub, tagged with their origin.
type MultiHostClient struct {
	clients []*PersistentClient
	hub     *notify.Hub
	ownHub  bool
	stopped atomic.Bool
}

// NewMultiHostClient creates clients for each host sharing one
// notification hub. A hub supplied via opts.Hub is used as that shared
// hub, so external consumers wired to it see every host's events;
// otherwise a private one is created. An empty host list is an
// unrecoverable configuration error.
func NewMultiHostClient(hosts []string, opts Options) (*MultiHostClient, error) {
	if len(hosts) == 0 {
		return nil, fmt.Errorf("at least one host is required")
	}

	opts.applyDefaults()
	hub := opts.Hub
	ownHub := false
	if hub == nil {
		hub = notify.NewHub(opts.SubscriberBuffer)
		ownHub = true
	}
	opts.Hub = hub

	clients := make([]*PersistentClient, 0, len(hosts))
	for _, host := range hosts {
		c, err := NewPersistentClient(host, opts)
		if err != nil {
			return nil, fmt.Errorf("client for %s: %w", host, err)
		}
		clients = append(clients, c)
	}

	return &MultiHostClient{
		clients: clients,
		hub:     hub,
		ownHub:  ownHub,
	}, nil
}

// Start launches every per-host client
func (m *MultiHostClient) Start() {
	for _, c := range m.clients {
		c.Start()
	}
}

// Stop halts every client. A hub this client created is closed so its
// subscribers observe end-of-stream; a caller-provided hub stays open,
// its lifecycle belongs to the caller.
func (m *MultiHostClient) Stop() {
	if !m.stopped.CompareAndSwap(false, true) {
		return
	}
	for _, c := range m.clients {
		c.Stop()
	}
	if m.ownHub {
		m.hub.CloseAll()
	}
}

// Hub returns the shared notification hub
func (m *MultiHostClient) Hub() *notify.Hub {
	return m.hub
}

// Subscribe registers a listener on the merged notification stream
func (m *MultiHostClient) Subscribe(filter notify.Filter) (<-chan notify.Event, func(), error) {
	return m.hub.Subscribe(filter)
}

// Clients exposes the per-host clients, e.g. for the admin API
func (m *MultiHostClient) Clients() []*PersistentClient {
	return m.clients
}

// IsConnected reports whether any host has a live connection
func (m *MultiHostClient) IsConnected() bool {
	for _, c := range m.clients {
		if c.IsConnected() {
			return true
		}
	}
	return false
}

// WaitForAny blocks until at least one host is connected or ctx expires
func (m *MultiHostClient) WaitForAny(ctx context.Context) error {
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	connected := make(chan struct{}, len(m.clients))
	for _, c := range m.clients {
		go func(c *PersistentClient) {
			if c.WaitForConnection(waitCtx) == nil {
				connected <- struct{}{}
			}
		}(c)
	}

	select {
	case <-connected:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitForAll blocks until every host is connected or ctx expires
func (m *MultiHostClient) WaitForAll(ctx context.Context) error {
	for _, c := range m.clients {
		if err := c.WaitForConnection(ctx); err != nil {
			return err
		}
	}
	return nil
}

// relevance ranks playback states for host selection
func relevance(state PlayState) int {
	switch state {
	case StatePlaying:
		return 3
	case StatePaused:
		return 2
	case StateStopped:
		return 1
	default:
		return 0
	}
}

// currentClient picks the most relevant connected host: playing beats
// paused beats stopped. Hosts whose status probe fails are skipped.
func (m *MultiHostClient) currentClient(ctx context.Context) (*PersistentClient, error) {
	if err := m.WaitForAny(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoHostConnected, err)
	}

	var best *PersistentClient
	bestRank := 0
	var lastErr error

	for _, c := range m.clients {
		if !c.IsConnected() {
			continue
		}
		status, err := c.Status(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		if rank := relevance(status.State); rank > bestRank {
			best = c
			bestRank = rank
		}
	}

	if best == nil {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, ErrNoHostConnected
	}
	return best, nil
}

// Command routes the request to the most relevant connected host
func (m *MultiHostClient) Command(ctx context.Context, cmd protocol.Command) (*protocol.Response, error) {
	c, err := m.currentClient(ctx)
	if err != nil {
		return nil, err
	}
	return c.Command(ctx, cmd)
}

// Status runs status against the most relevant connected host
func (m *MultiHostClient) Status(ctx context.Context) (*Status, error) {
	c, err := m.currentClient(ctx)
	if err != nil {
		return nil, err
	}
	return c.Status(ctx)
}

// CurrentSong runs currentsong against the most relevant connected host
func (m *MultiHostClient) CurrentSong(ctx context.Context) (*Song, error) {
	c, err := m.currentClient(ctx)
	if err != nil {
		return nil, err
	}
	return c.CurrentSong(ctx)
}
