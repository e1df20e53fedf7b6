package bridge

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tonearm/tonearm/cfg"
	"github.com/tonearm/tonearm/notify"
)

var (
	factoryMu     sync.Mutex
	sinkFactories = make(map[string]SinkFactory)
)

// RegisterSink makes a sink type available to the registry. Called
// from sink package init functions.
func RegisterSink(sinkType string, factory SinkFactory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	sinkFactories[sinkType] = factory
}

func newSink(config cfg.SinkConfiguration) (Sink, error) {
	factoryMu.Lock()
	factory, ok := sinkFactories[config.Type]
	factoryMu.Unlock()

	if !ok {
		return nil, fmt.Errorf("unknown sink type %q", config.Type)
	}
	return factory(config)
}

// Registry manages the lifecycle of all bridge workers
type Registry struct {
	workers []*Worker
	mu      sync.Mutex
	started bool
}

// NewRegistry creates one worker per configured sink, each with its
// own hub subscription.
func NewRegistry(hub *notify.Hub, configs []cfg.SinkConfiguration) (*Registry, error) {
	registry := &Registry{
		workers: make([]*Worker, 0, len(configs)),
	}

	for _, sinkCfg := range configs {
		sink, err := newSink(sinkCfg)
		if err != nil {
			registry.closeWorkers()
			return nil, fmt.Errorf("failed to create sink %q: %w", sinkCfg.Name, err)
		}

		worker, err := NewWorker(WorkerConfig{
			Name:        sinkCfg.Name,
			Sink:        sink,
			TopicPrefix: sinkCfg.TopicPrefix,
			Hub:         hub,
		})
		if err != nil {
			sink.Close()
			registry.closeWorkers()
			return nil, fmt.Errorf("failed to create worker %q: %w", sinkCfg.Name, err)
		}
		registry.workers = append(registry.workers, worker)
	}

	log.Info().
		Int("workers", len(registry.workers)).
		Msg("Notification bridge initialized")

	return registry, nil
}

func (r *Registry) closeWorkers() {
	for _, w := range r.workers {
		w.config.Sink.Close()
	}
}

// Start launches every worker. On failure the workers started so far
// are stopped and the remaining sinks closed, so no goroutine or
// connection outlives the error.
func (r *Registry) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return fmt.Errorf("registry already started")
	}
	for i, w := range r.workers {
		if err := w.Start(); err != nil {
			for _, prev := range r.workers[:i] {
				prev.Stop()
			}
			for _, rest := range r.workers[i:] {
				rest.config.Sink.Close()
			}
			return err
		}
	}
	r.started = true
	return nil
}

// Stop halts every worker and closes its sink
func (r *Registry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return
	}
	for _, w := range r.workers {
		w.Stop()
	}
	r.started = false
}

// Workers exposes worker names and delivery counters for the admin API
func (r *Registry) Workers() []WorkerStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := make([]WorkerStats, 0, len(r.workers))
	for _, w := range r.workers {
		stats = append(stats, w.Stats())
	}
	return stats
}
