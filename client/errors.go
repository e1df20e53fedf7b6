package client

import "errors"

var (
	// ErrNotConnected is returned when a command deadline expires while
	// no connection to the host exists. The supervisor keeps retrying in
	// the background; the caller may resubmit later.
	ErrNotConnected = errors.New("not connected to server")

	// ErrConnectionLost is returned when the connection fails mid-command.
	// The command is never retried automatically: its side effects may
	// not be idempotent, so resubmission is the caller's decision.
	ErrConnectionLost = errors.New("connection lost")

	// ErrTimeout is returned when a command exceeds its deadline while
	// queued or executing.
	ErrTimeout = errors.New("command timed out")

	// ErrStopped is returned for commands submitted to a stopped client.
	ErrStopped = errors.New("client stopped")

	// ErrNoHostConnected is returned by the multi-host client when no
	// host has a live connection.
	ErrNoHostConnected = errors.New("no host connected")
)
