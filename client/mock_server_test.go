package client

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"testing"
)

// mockMPD is a scripted server speaking just enough of the protocol
// for client tests: greeting, idle/noidle windows, change
// notifications, and per-command response scripting. Like the real
// server it silently ignores a noidle that arrives after the idle
// window already completed.
type mockMPD struct {
	t  *testing.T
	ln net.Listener

	mu       sync.Mutex
	handlers map[string]func(args []string) string
	log      []string
	curConn  net.Conn

	changes chan string
}

func newMockMPD(t *testing.T) *mockMPD {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}

	s := &mockMPD{
		t:        t,
		ln:       ln,
		handlers: make(map[string]func(args []string) string),
		changes:  make(chan string, 16),
	}
	t.Cleanup(func() { ln.Close() })

	go s.acceptLoop()
	return s
}

func (s *mockMPD) addr() string {
	return s.ln.Addr().String()
}

// handle scripts the response for one command name. The returned string
// is written verbatim, so it must end in "OK\n" or be an ACK line.
func (s *mockMPD) handle(name string, fn func(args []string) string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[name] = fn
}

// notify queues a change notification for the next idle window
func (s *mockMPD) notify(subsystem string) {
	s.changes <- subsystem
}

// sever closes the current connection to simulate a lost session
func (s *mockMPD) sever() {
	s.mu.Lock()
	conn := s.curConn
	s.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// commandLog returns every non-idle command received, in arrival order
func (s *mockMPD) commandLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.log))
	copy(out, s.log)
	return out
}

func (s *mockMPD) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.curConn = conn
		s.mu.Unlock()
		s.serve(conn)
	}
}

func (s *mockMPD) serve(conn net.Conn) {
	defer conn.Close()

	if _, err := conn.Write([]byte("OK MPD 0.23.5\n")); err != nil {
		return
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		reader := bufio.NewReader(conn)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			lines <- strings.TrimSuffix(line, "\n")
		}
	}()

	for line := range lines {
		name, args := splitCommandLine(line)
		switch name {
		case "idle":
			select {
			case sub := <-s.changes:
				// Window completes on its own. A late noidle for this
				// window is ignored by the top of the loop.
				conn.Write([]byte("changed: " + sub + "\nOK\n"))

			case next, ok := <-lines:
				if !ok {
					return
				}
				if next != "noidle" {
					s.t.Errorf("command %q received inside an idle window", next)
					return
				}
				// Cancelled empty window
				conn.Write([]byte("OK\n"))
			}

		case "noidle":
			// Stale cancel for a window that already completed

		default:
			s.mu.Lock()
			s.log = append(s.log, line)
			handler := s.handlers[name]
			s.mu.Unlock()

			if handler != nil {
				conn.Write([]byte(handler(args)))
			} else {
				conn.Write([]byte("OK\n"))
			}
		}
	}
}

// splitCommandLine separates a wire command into name and unquoted args
func splitCommandLine(line string) (string, []string) {
	var parts []string
	var sb strings.Builder
	inQuote := false
	escaped := false

	flush := func() {
		if sb.Len() > 0 {
			parts = append(parts, sb.String())
			sb.Reset()
		}
	}

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case escaped:
			sb.WriteByte(c)
			escaped = false
		case c == '\\' && inQuote:
			escaped = true
		case c == '"':
			inQuote = !inQuote
		case c == ' ' && !inQuote:
			flush()
		default:
			sb.WriteByte(c)
		}
	}
	flush()

	if len(parts) == 0 {
		return "", nil
	}
	return parts[0], parts[1:]
}
