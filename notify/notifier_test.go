package notify

import (
	"testing"
	"time"

	"github.com/tonearm/tonearm/protocol"
)

func TestHub_BasicSubscribePublish(t *testing.T) {
	hub := NewHub(4)

	// Subscribe to all subsystems
	events, cancel, err := hub.Subscribe(Filter{})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()

	hub.Publish(Event{Host: "localhost:6600", Subsystem: protocol.SubsystemPlayer})

	select {
	case e := <-events:
		if e.Host != "localhost:6600" || e.Subsystem != protocol.SubsystemPlayer {
			t.Errorf("expected (localhost:6600, player), got (%s, %s)", e.Host, e.Subsystem)
		}
		if e.At.IsZero() {
			t.Error("expected publish to stamp the event time")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
}

func TestHub_SubsystemFilter(t *testing.T) {
	hub := NewHub(4)

	events, cancel, err := hub.Subscribe(Filter{Subsystems: []string{"player"}})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()

	// Should receive
	hub.Publish(Event{Host: "a", Subsystem: protocol.SubsystemPlayer})

	select {
	case e := <-events:
		if e.Subsystem != protocol.SubsystemPlayer {
			t.Errorf("expected player, got %s", e.Subsystem)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}

	// Should NOT receive
	hub.Publish(Event{Host: "a", Subsystem: protocol.SubsystemMixer})

	select {
	case e := <-events:
		t.Errorf("should not receive mixer event, got %s", e.Subsystem)
	case <-time.After(50 * time.Millisecond):
		// Expected - no event
	}
}

func TestHub_GlobFilter(t *testing.T) {
	hub := NewHub(4)

	events, cancel, err := hub.Subscribe(Filter{Subsystems: []string{"play*"}})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()

	hub.Publish(Event{Host: "a", Subsystem: protocol.SubsystemPlayer})
	hub.Publish(Event{Host: "a", Subsystem: protocol.SubsystemPlaylist})
	hub.Publish(Event{Host: "a", Subsystem: protocol.SubsystemDatabase})

	var got []protocol.Subsystem
	deadline := time.After(200 * time.Millisecond)
	for len(got) < 2 {
		select {
		case e := <-events:
			got = append(got, e.Subsystem)
		case <-deadline:
			t.Fatalf("timeout, got %v", got)
		}
	}

	if got[0] != protocol.SubsystemPlayer || got[1] != protocol.SubsystemPlaylist {
		t.Errorf("expected [player playlist], got %v", got)
	}

	select {
	case e := <-events:
		t.Errorf("database should not match play*, got %s", e.Subsystem)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_InvalidGlobPattern(t *testing.T) {
	hub := NewHub(4)

	_, _, err := hub.Subscribe(Filter{Subsystems: []string{"[invalid"}})
	if err == nil {
		t.Fatal("expected error for invalid glob pattern")
	}
}

func TestHub_HostFilter(t *testing.T) {
	hub := NewHub(4)

	events, cancel, err := hub.Subscribe(Filter{Hosts: []string{"host-a:6600"}})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()

	hub.Publish(Event{Host: "host-b:6600", Subsystem: protocol.SubsystemPlayer})
	hub.Publish(Event{Host: "host-a:6600", Subsystem: protocol.SubsystemMixer})

	select {
	case e := <-events:
		if e.Host != "host-a:6600" {
			t.Errorf("expected event from host-a, got %s", e.Host)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
}

func TestHub_OrderPreservedPerSubscriber(t *testing.T) {
	hub := NewHub(8)

	a, cancelA, _ := hub.Subscribe(Filter{})
	defer cancelA()
	b, cancelB, _ := hub.Subscribe(Filter{})
	defer cancelB()

	sequence := []protocol.Subsystem{
		protocol.SubsystemPlayer,
		protocol.SubsystemMixer,
		protocol.SubsystemOptions,
	}
	for _, s := range sequence {
		hub.Publish(Event{Host: "a", Subsystem: s})
	}

	for name, ch := range map[string]<-chan Event{"a": a, "b": b} {
		for i, want := range sequence {
			select {
			case e := <-ch:
				if e.Subsystem != want {
					t.Errorf("subscriber %s event %d: expected %s, got %s", name, i, want, e.Subsystem)
				}
			case <-time.After(100 * time.Millisecond):
				t.Fatalf("subscriber %s: timeout at event %d", name, i)
			}
		}
	}
}

func TestHub_SlowSubscriberDropsNewest(t *testing.T) {
	hub := NewHub(2)

	events, cancel, _ := hub.Subscribe(Filter{})
	defer cancel()

	// Fill the buffer and overflow it without draining
	for i := 0; i < 5; i++ {
		hub.Publish(Event{Host: "a", Subsystem: protocol.SubsystemPlayer})
	}

	_, published, dropped := hub.Stats()
	if published != 5 {
		t.Errorf("expected 5 published, got %d", published)
	}
	if dropped != 3 {
		t.Errorf("expected 3 dropped, got %d", dropped)
	}

	// The oldest buffered events survive
	received := 0
	for {
		select {
		case <-events:
			received++
			continue
		default:
		}
		break
	}
	if received != 2 {
		t.Errorf("expected 2 buffered events, got %d", received)
	}
}

func TestHub_SlowSubscriberDoesNotAffectOthers(t *testing.T) {
	hub := NewHub(1)

	_, cancelSlow, _ := hub.Subscribe(Filter{}) // Never drained
	defer cancelSlow()
	fast, cancelFast, _ := hub.Subscribe(Filter{})
	defer cancelFast()

	hub.Publish(Event{Host: "a", Subsystem: protocol.SubsystemPlayer})
	hub.Publish(Event{Host: "a", Subsystem: protocol.SubsystemMixer})

	// Fast subscriber drains as it goes
	select {
	case e := <-fast:
		if e.Subsystem != protocol.SubsystemPlayer {
			t.Errorf("expected player, got %s", e.Subsystem)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout on first event")
	}
	select {
	case e := <-fast:
		if e.Subsystem != protocol.SubsystemMixer {
			t.Errorf("expected mixer, got %s", e.Subsystem)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout on second event")
	}
}

func TestHub_CancelIsIdempotent(t *testing.T) {
	hub := NewHub(4)

	events, cancel, _ := hub.Subscribe(Filter{})
	cancel()
	cancel() // Second call must be a no-op

	// Channel is closed after cancel
	select {
	case _, ok := <-events:
		if ok {
			t.Error("expected closed channel after cancel")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("channel not closed after cancel")
	}

	subscribers, _, _ := hub.Stats()
	if subscribers != 0 {
		t.Errorf("expected 0 subscribers, got %d", subscribers)
	}
}

func TestHub_CloseAll(t *testing.T) {
	hub := NewHub(4)

	a, _, _ := hub.Subscribe(Filter{})
	b, _, _ := hub.Subscribe(Filter{})

	hub.CloseAll()

	for name, ch := range map[string]<-chan Event{"a": a, "b": b} {
		select {
		case _, ok := <-ch:
			if ok {
				t.Errorf("subscriber %s: expected end-of-stream", name)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("subscriber %s: channel not closed", name)
		}
	}

	// Publishing after shutdown is discarded, not a panic
	hub.Publish(Event{Host: "a", Subsystem: protocol.SubsystemPlayer})
}

func TestHub_SubscribeAfterCloseAll(t *testing.T) {
	hub := NewHub(4)
	hub.CloseAll()

	events, cancel, err := hub.Subscribe(Filter{})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()

	// Immediate end-of-stream
	select {
	case _, ok := <-events:
		if ok {
			t.Error("expected closed channel from stopped hub")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("channel not closed")
	}
}
