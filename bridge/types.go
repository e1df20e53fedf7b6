package bridge

import "github.com/tonearm/tonearm/cfg"

// Payload is the wire form of one forwarded notification event,
// msgpack-encoded before publishing.
type Payload struct {
	Host      string `msgpack:"host"`
	Subsystem string `msgpack:"sub"`
	ClientID  uint64 `msgpack:"client"`
	At        int64  `msgpack:"ts"` // Unix milliseconds
}

// Sink represents a destination for notification events (e.g. NATS,
// Kafka).
type Sink interface {
	// Publish sends an event to the sink
	Publish(topic string, key string, value []byte) error
	// Close releases any resources held by the sink
	Close() error
}

// SinkFactory creates a sink from its configuration
type SinkFactory func(config cfg.SinkConfiguration) (Sink, error)
