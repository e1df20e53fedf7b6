package client

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tonearm/tonearm/protocol"
	"github.com/tonearm/tonearm/telemetry"
)

// supervisor owns the connect/reconnect lifecycle for one host. It
// produces fresh connections on demand and applies exponential backoff
// between failed attempts. Connect failures are never surfaced
// per-attempt; the only externally visible effect of an unreachable
// host is a prolonged disconnected state.
type supervisor struct {
	host           string
	connectTimeout time.Duration
	initialDelay   time.Duration
	multiplier     float64
	maxDelay       time.Duration
	log            zerolog.Logger
}

func newSupervisor(host string, opts Options, log zerolog.Logger) *supervisor {
	return &supervisor{
		host:           host,
		connectTimeout: opts.ConnectTimeout,
		initialDelay:   opts.ReconnectInitialDelay,
		multiplier:     opts.ReconnectMultiplier,
		maxDelay:       opts.ReconnectMaxDelay,
		log:            log,
	}
}

// acquire dials until a connection is established or ctx is cancelled.
// The backoff delay doubles per failure up to the configured ceiling
// and resets on the next call.
func (s *supervisor) acquire(ctx context.Context) (*protocol.Conn, error) {
	backoff := s.initialDelay

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		conn, err := protocol.Dial(ctx, s.host, s.connectTimeout)
		if err == nil {
			telemetry.ConnectAttemptsTotal.With(s.host, "success").Inc()
			telemetry.ConnectDurationSeconds.Observe(time.Since(start).Seconds())
			s.log.Info().Str("version", conn.Version()).Msg("Connected")
			return conn, nil
		}

		telemetry.ConnectAttemptsTotal.With(s.host, "failed").Inc()
		s.log.Warn().Err(err).Dur("retry_in", backoff).Msg("Failed to connect")

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		backoff = min(time.Duration(float64(backoff)*s.multiplier), s.maxDelay)
	}
}
