package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jizhuozhi/go-future"
	"github.com/rs/zerolog"

	"github.com/tonearm/tonearm/notify"
	"github.com/tonearm/tonearm/protocol"
	"github.com/tonearm/tonearm/telemetry"
)

// request is one queued command. The promise is always resolved: with
// the response, a command error, or ErrStopped on shutdown.
type request struct {
	ctx     context.Context
	cmd     protocol.Command
	promise *future.Promise[*protocol.Response]
}

// idleResult carries the outcome of one idle window read
type idleResult struct {
	changed []protocol.Subsystem
	err     error
}

// arbiter enforces exclusive access to the physical connection. The
// run loop keeps the connection in idle mode by default; a queued
// command interrupts the idle window with noidle, waits for the
// server's acknowledgement, executes with exclusive access, and hands
// the connection back to idle listening. Requests arrive over a
// channel, which makes admission strictly FIFO.
type arbiter struct {
	host     string
	state    *clientState
	hub      *notify.Hub
	requests chan *request
	log      zerolog.Logger
}

func newArbiter(host string, state *clientState, hub *notify.Hub, queue int, log zerolog.Logger) *arbiter {
	return &arbiter{
		host:     host,
		state:    state,
		hub:      hub,
		requests: make(chan *request, queue),
		log:      log,
	}
}

// run drives one connected session until an I/O failure or ctx
// cancellation. The caller owns closing the connection afterwards.
// Queued requests survive a session loss and are served after
// reconnect, unless their context expires first.
func (a *arbiter) run(ctx context.Context, conn *protocol.Conn) error {
	// Buffered so a reader goroutine can always deliver its result,
	// even when run has already returned on a write error.
	idleResults := make(chan idleResult, 1)

	for {
		a.state.setMode(ModeIdle)
		if err := conn.StartIdle(); err != nil {
			return err
		}

		go func() {
			changed, err := conn.ReadChanged()
			idleResults <- idleResult{changed: changed, err: err}
		}()

		// Prefer completing an already-finished idle window over
		// admitting a command, so a pending mode switch is never
		// interleaved with fresh notifications.
		select {
		case res := <-idleResults:
			if res.err != nil {
				return res.err
			}
			a.publish(res.changed)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			// Unblock the idle reader and wait it out
			conn.Close()
			<-idleResults
			return ctx.Err()

		case res := <-idleResults:
			if res.err != nil {
				return res.err
			}
			a.publish(res.changed)

		case req := <-a.requests:
			a.state.setMode(ModeTransitioning)

			// Interrupt the idle window. The server ignores noidle if
			// the window already completed on its own, so the pending
			// read is the idle acknowledgement either way.
			if err := conn.StopIdle(); err != nil {
				req.promise.Set(nil, fmt.Errorf("%w: %s", ErrConnectionLost, err))
				return err
			}
			res := <-idleResults
			if res.err != nil {
				req.promise.Set(nil, fmt.Errorf("%w: %s", ErrConnectionLost, res.err))
				return res.err
			}
			a.publish(res.changed)

			// Serve the interrupting command and drain any callers
			// that queued behind it before re-entering idle.
			if err := a.execute(conn, req); err != nil {
				return err
			}
			for drained := false; !drained; {
				select {
				case next := <-a.requests:
					if err := a.execute(conn, next); err != nil {
						return err
					}
				default:
					drained = true
				}
			}
		}
	}
}

// execute runs one command with exclusive connection access. A nil
// return means the connection is still sound; server-side ACK errors
// are surfaced to the caller without tearing the session down.
func (a *arbiter) execute(conn *protocol.Conn, req *request) error {
	if req.ctx.Err() != nil {
		// Caller gave up while queued; do not touch the wire
		telemetry.CommandQueueDepth.Dec()
		req.promise.Set(nil, ErrTimeout)
		return nil
	}

	a.state.setMode(ModeExecuting)
	telemetry.CommandQueueDepth.Dec()

	start := time.Now()
	resp, err := conn.Exec(req.cmd)
	elapsed := time.Since(start)

	if err != nil {
		var ackErr *protocol.Error
		if errors.As(err, &ackErr) {
			telemetry.CommandsTotal.With("ack").Inc()
			telemetry.CommandDurationSeconds.Observe(elapsed.Seconds())
			req.promise.Set(nil, ackErr)
			return nil
		}

		telemetry.CommandsTotal.With("connection_lost").Inc()
		req.promise.Set(nil, fmt.Errorf("%w: %s", ErrConnectionLost, err))
		return err
	}

	telemetry.CommandsTotal.With("ok").Inc()
	telemetry.CommandDurationSeconds.Observe(elapsed.Seconds())
	req.promise.Set(resp, nil)
	return nil
}

func (a *arbiter) publish(changed []protocol.Subsystem) {
	now := time.Now()
	for _, subsystem := range changed {
		a.log.Debug().Str("subsystem", string(subsystem)).Msg("Server state changed")
		a.hub.Publish(notify.Event{
			Host:      a.host,
			Subsystem: subsystem,
			At:        now,
		})
	}
}

// submit places a request on the FIFO queue
func (a *arbiter) submit(ctx context.Context, cmd protocol.Command) (*future.Future[*protocol.Response], error) {
	req := &request{
		ctx:     ctx,
		cmd:     cmd,
		promise: future.NewPromise[*protocol.Response](),
	}

	select {
	case a.requests <- req:
		telemetry.CommandQueueDepth.Inc()
		return req.promise.Future(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// drainPending fails every queued request. Called once during Stop,
// after the run loop has exited for good.
func (a *arbiter) drainPending() {
	for {
		select {
		case req := <-a.requests:
			telemetry.CommandQueueDepth.Dec()
			req.promise.Set(nil, ErrStopped)
		default:
			return
		}
	}
}
