package client

import (
	"context"
	"sync"

	"github.com/tonearm/tonearm/protocol"
)

// Mode is the arbiter's view of who owns the connection. The connection
// is never simultaneously idle-listening and executing a command.
type Mode int32

const (
	ModeDisconnected Mode = iota
	ModeIdle              // listening loop owns the connection
	ModeTransitioning     // idle exit in progress
	ModeExecuting         // a command owns the connection
)

func (m Mode) String() string {
	switch m {
	case ModeDisconnected:
		return "disconnected"
	case ModeIdle:
		return "idle"
	case ModeTransitioning:
		return "transitioning"
	case ModeExecuting:
		return "executing"
	default:
		return "unknown"
	}
}

// clientState is the single shared record of connection handle and
// mode. It sits behind one RWMutex with write sections kept to the
// brief window of swapping the handle or mode, so connectivity checks
// never wait out a reconnect.
type clientState struct {
	mu      sync.RWMutex
	conn    *protocol.Conn
	mode    Mode
	version string

	// connectedCh is closed when a connection is established and
	// replaced with a fresh channel on loss, so waiters can block on
	// "becomes connected" without polling.
	connectedCh chan struct{}
}

func newClientState() *clientState {
	return &clientState{
		mode:        ModeDisconnected,
		connectedCh: make(chan struct{}),
	}
}

// setConnected swaps in a fresh connection handle atomically; no
// half-reconnected state is observable.
func (s *clientState) setConnected(conn *protocol.Conn) {
	s.mu.Lock()
	s.conn = conn
	s.mode = ModeIdle
	s.version = conn.Version()
	close(s.connectedCh)
	s.mu.Unlock()
}

// setDisconnected clears the handle and re-arms the connected channel
func (s *clientState) setDisconnected() {
	s.mu.Lock()
	s.conn = nil
	s.mode = ModeDisconnected
	s.connectedCh = make(chan struct{})
	s.mu.Unlock()
}

func (s *clientState) setMode(m Mode) {
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
}

func (s *clientState) currentMode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

func (s *clientState) isConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn != nil
}

// serverVersion returns the protocol version of the last established
// connection, or "" before the first connect.
func (s *clientState) serverVersion() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// waitConnected blocks until a connection is live or ctx expires
func (s *clientState) waitConnected(ctx context.Context) error {
	for {
		s.mu.RLock()
		if s.conn != nil {
			s.mu.RUnlock()
			return nil
		}
		ch := s.connectedCh
		s.mu.RUnlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
