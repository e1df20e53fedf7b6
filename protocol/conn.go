package protocol

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"
)

// MaxLineLength bounds a single response line. MPD itself caps lines
// well below this; anything longer indicates a broken peer.
const MaxLineLength = 64 * 1024

const greetingPrefix = "OK MPD "

// Conn is one open protocol session. It is not safe for concurrent use;
// the client's arbiter serializes all access to it.
type Conn struct {
	addr    string
	conn    net.Conn
	reader  *bufio.Reader
	version string
}

// Dial opens a connection to addr and consumes the server greeting.
// addr is treated as a Unix socket path when it names an existing
// socket on disk, and as host:port otherwise.
func Dial(ctx context.Context, addr string, timeout time.Duration) (*Conn, error) {
	dialer := net.Dialer{Timeout: timeout}

	network := "tcp"
	if isUnixSocket(addr) {
		network = "unix"
	}

	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	c := &Conn{
		addr:   addr,
		conn:   conn,
		reader: bufio.NewReader(conn),
	}

	if timeout > 0 {
		conn.SetReadDeadline(time.Now().Add(timeout))
	}
	greeting, err := c.readLine()
	conn.SetReadDeadline(time.Time{})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read greeting from %s: %w", addr, err)
	}

	version, ok := strings.CutPrefix(greeting, greetingPrefix)
	if !ok {
		conn.Close()
		return nil, fmt.Errorf("unexpected greeting from %s: %q", addr, greeting)
	}
	c.version = version

	return c, nil
}

func isUnixSocket(addr string) bool {
	info, err := os.Stat(addr)
	if err != nil {
		return false
	}
	return info.Mode().Type() == os.ModeSocket
}

// Addr returns the address this connection was dialed with
func (c *Conn) Addr() string {
	return c.addr
}

// Version returns the protocol version announced in the greeting
func (c *Conn) Version() string {
	return c.version
}

// Close tears down the underlying transport. Any blocked read or write
// fails immediately, which is how the client interrupts a dead session.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// Send writes one serialized command line
func (c *Conn) Send(cmd Command) error {
	if _, err := c.conn.Write([]byte(cmd.String() + "\n")); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	return nil
}

// ReadResponse reads fields until the terminating OK. A server-side ACK
// is returned as *Error; transport failures as plain errors.
func (c *Conn) ReadResponse() (*Response, error) {
	var fields []Field

	for {
		line, err := c.readLine()
		if err != nil {
			return nil, err
		}

		if line == "OK" {
			return &Response{fields: fields}, nil
		}
		if strings.HasPrefix(line, "ACK ") {
			ackErr, parseErr := parseAck(line)
			if parseErr != nil {
				return nil, fmt.Errorf("%w: %q", parseErr, line)
			}
			return nil, ackErr
		}

		field, ok := parseField(line)
		if !ok {
			return nil, fmt.Errorf("malformed response line: %q", line)
		}
		fields = append(fields, field)
	}
}

// Exec sends a command and reads its single response
func (c *Conn) Exec(cmd Command) (*Response, error) {
	if err := c.Send(cmd); err != nil {
		return nil, err
	}
	return c.ReadResponse()
}

// StartIdle puts the connection into idle mode. With no subsystems the
// server reports changes to all of them.
func (c *Conn) StartIdle(subsystems ...Subsystem) error {
	args := make([]string, 0, len(subsystems))
	for _, s := range subsystems {
		args = append(args, string(s))
	}
	return c.Send(NewCommand("idle", args...))
}

// StopIdle asks the server to terminate the current idle window. The
// server answers by completing the pending idle response; the caller
// must still drain it with ReadChanged.
func (c *Conn) StopIdle() error {
	return c.Send(NewCommand("noidle"))
}

// ReadChanged blocks until the current idle window completes and
// returns the subsystems the server reported. An empty slice means the
// window was cancelled before anything changed.
func (c *Conn) ReadChanged() ([]Subsystem, error) {
	resp, err := c.ReadResponse()
	if err != nil {
		return nil, err
	}

	names := resp.GetAll("changed")
	changed := make([]Subsystem, 0, len(names))
	for _, name := range names {
		changed = append(changed, Subsystem(name))
	}
	return changed, nil
}

// readLine reads one newline-terminated line, enforcing MaxLineLength
// as it goes so a peer streaming bytes without a newline cannot grow
// memory without bound.
func (c *Conn) readLine() (string, error) {
	var line []byte
	for {
		chunk, err := c.reader.ReadSlice('\n')
		line = append(line, chunk...)
		if len(line) > MaxLineLength {
			return "", fmt.Errorf("response line exceeds %d bytes", MaxLineLength)
		}
		if err == nil {
			return strings.TrimSuffix(string(line), "\n"), nil
		}
		if err != bufio.ErrBufferFull {
			return "", err
		}
	}
}
