package bridge

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/tonearm/tonearm/cfg"
	"github.com/tonearm/tonearm/notify"
	"github.com/tonearm/tonearm/telemetry"
)

const (
	// Default topic prefix for published events
	DefaultTopicPrefix = "tonearm.events"
	// Default initial retry delay for failed publish operations
	DefaultRetryInitial = 100 * time.Millisecond
	// Default maximum retry delay (exponential backoff cap)
	DefaultRetryMax = 5 * time.Second
	// Maximum number of retry attempts before an event is dropped
	DefaultMaxRetries = 5
)

// WorkerConfig configures a bridge worker
type WorkerConfig struct {
	Name         string        // Sink name (for logs and metrics)
	Sink         Sink          // Destination sink
	Hub          *notify.Hub   // Hub to subscribe to
	Filter       notify.Filter // Which events to forward
	TopicPrefix  string        // Topic prefix (e.g. "tonearm.events")
	RetryInitial time.Duration
	RetryMax     time.Duration
	MaxRetries   int
}

// Worker forwards hub notifications to one sink. A publish failure is
// retried with exponential backoff a bounded number of times, then the
// event is dropped; the notification stream itself never stalls.
type Worker struct {
	config    WorkerConfig
	cancel    func()
	doneCh    chan struct{}
	running   atomic.Bool
	delivered atomic.Uint64
	failed    atomic.Uint64
}

// WorkerStats is a snapshot of one worker's delivery counters
type WorkerStats struct {
	Name      string `json:"name"`
	Delivered uint64 `json:"delivered"`
	Failed    uint64 `json:"failed"`
}

// NewWorker creates a bridge worker
func NewWorker(config WorkerConfig) (*Worker, error) {
	if config.Name == "" {
		return nil, fmt.Errorf("worker name is required")
	}
	if config.Sink == nil {
		return nil, fmt.Errorf("sink is required")
	}
	if config.Hub == nil {
		return nil, fmt.Errorf("hub is required")
	}

	if config.TopicPrefix == "" {
		config.TopicPrefix = DefaultTopicPrefix
	}
	if config.RetryInitial <= 0 {
		config.RetryInitial = DefaultRetryInitial
	}
	if config.RetryMax <= 0 {
		config.RetryMax = DefaultRetryMax
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultMaxRetries
	}

	return &Worker{
		config: config,
		doneCh: make(chan struct{}),
	}, nil
}

// Start subscribes to the hub and begins forwarding
func (w *Worker) Start() error {
	if !w.running.CompareAndSwap(false, true) {
		return fmt.Errorf("worker %q already running", w.config.Name)
	}

	events, cancel, err := w.config.Hub.Subscribe(w.config.Filter)
	if err != nil {
		w.running.Store(false)
		return fmt.Errorf("worker %q subscribe: %w", w.config.Name, err)
	}
	w.cancel = cancel

	go w.forwardLoop(events)

	log.Info().Str("sink", w.config.Name).Msg("Bridge worker started")
	return nil
}

// Stop releases the hub subscription, waits the forward loop out, and
// closes the sink.
func (w *Worker) Stop() {
	if !w.running.CompareAndSwap(true, false) {
		return
	}
	w.cancel()
	<-w.doneCh
	w.config.Sink.Close()
	log.Info().Str("sink", w.config.Name).Msg("Bridge worker stopped")
}

// Stats returns a snapshot of delivery counters
func (w *Worker) Stats() WorkerStats {
	return WorkerStats{
		Name:      w.config.Name,
		Delivered: w.delivered.Load(),
		Failed:    w.failed.Load(),
	}
}

func (w *Worker) forwardLoop(events <-chan notify.Event) {
	defer close(w.doneCh)

	for event := range events {
		payload := Payload{
			Host:      event.Host,
			Subsystem: string(event.Subsystem),
			ClientID:  cfg.Config.ClientID,
			At:        event.At.UnixMilli(),
		}

		value, err := msgpack.Marshal(payload)
		if err != nil {
			log.Error().Err(err).Str("sink", w.config.Name).Msg("Failed to encode event")
			continue
		}

		topic := w.config.TopicPrefix + "." + string(event.Subsystem)
		if err := w.publishWithRetry(topic, event.Host, value); err != nil {
			w.failed.Add(1)
			telemetry.BridgePublishTotal.With(w.config.Name, "failed").Inc()
			log.Warn().Err(err).
				Str("sink", w.config.Name).
				Str("topic", topic).
				Msg("Dropping event after retries")
			continue
		}

		w.delivered.Add(1)
		telemetry.BridgePublishTotal.With(w.config.Name, "success").Inc()
	}
}

func (w *Worker) publishWithRetry(topic, key string, value []byte) error {
	delay := w.config.RetryInitial

	var err error
	for attempt := 0; attempt < w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(delay)
			delay = min(delay*2, w.config.RetryMax)
		}
		if err = w.config.Sink.Publish(topic, key, value); err == nil {
			return nil
		}
	}
	return err
}
