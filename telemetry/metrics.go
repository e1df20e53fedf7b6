package telemetry

// Histogram bucket definitions for different latency profiles
var (
	// CommandBuckets for round-trip command latencies over a local or
	// LAN connection to the server
	CommandBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

	// ConnectBuckets for dial plus greeting latencies
	ConnectBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30}
)

// Connection metrics
var (
	// ConnectAttemptsTotal counts dial attempts by host and result (success, failed)
	ConnectAttemptsTotal CounterVec = noopCounterVec{}

	// ReconnectsTotal counts sessions lost and re-established by host
	ReconnectsTotal CounterVec = noopCounterVec{}

	// ConnectedHosts tracks connectivity per host (1=connected, 0=disconnected)
	ConnectedHosts GaugeVec = noopGaugeVec{}

	// ConnectDurationSeconds measures dial plus greeting latency
	ConnectDurationSeconds Histogram = NoopStat{}
)

// Command metrics
var (
	// CommandsTotal counts commands by result (ok, ack, connection_lost, timeout)
	CommandsTotal CounterVec = noopCounterVec{}

	// CommandDurationSeconds measures command round-trip latency
	CommandDurationSeconds Histogram = NoopStat{}

	// CommandQueueDepth tracks commands waiting for the connection
	CommandQueueDepth Gauge = NoopStat{}
)

// Notification metrics
var (
	// EventsPublishedTotal counts notification events offered to subscribers
	EventsPublishedTotal Counter = NoopStat{}

	// EventsDroppedTotal counts events dropped on saturated subscriber channels
	EventsDroppedTotal Counter = NoopStat{}

	// SubscribersActive tracks currently registered subscribers
	SubscribersActive Gauge = NoopStat{}
)

// Cache metrics
var (
	// CacheHitsTotal counts browse commands served from cache
	CacheHitsTotal Counter = NoopStat{}

	// CacheMissesTotal counts browse commands that went to the server
	CacheMissesTotal Counter = NoopStat{}

	// CacheInvalidationsTotal counts entries evicted by change notifications
	CacheInvalidationsTotal Counter = NoopStat{}
)

// Bridge metrics
var (
	// BridgePublishTotal counts bridge deliveries by sink and result (success, failed)
	BridgePublishTotal CounterVec = noopCounterVec{}
)

// InitMetrics binds the metric variables to the prometheus registry.
// Called from InitializeTelemetry once the registry exists.
func InitMetrics() {
	ConnectAttemptsTotal = NewCounterVec(
		"connect_attempts_total",
		"Dial attempts by host and result",
		[]string{"host", "result"},
	)
	ReconnectsTotal = NewCounterVec(
		"reconnects_total",
		"Sessions lost and re-established by host",
		[]string{"host"},
	)
	ConnectedHosts = NewGaugeVec(
		"connected_hosts",
		"Connectivity per host (1=connected, 0=disconnected)",
		[]string{"host"},
	)
	ConnectDurationSeconds = NewHistogramWithBuckets(
		"connect_duration_seconds",
		"Dial plus greeting latency in seconds",
		ConnectBuckets,
	)

	CommandsTotal = NewCounterVec(
		"commands_total",
		"Commands by result",
		[]string{"result"},
	)
	CommandDurationSeconds = NewHistogramWithBuckets(
		"command_duration_seconds",
		"Command round-trip latency in seconds",
		CommandBuckets,
	)
	CommandQueueDepth = NewGauge(
		"command_queue_depth",
		"Commands waiting for exclusive connection access",
	)

	EventsPublishedTotal = NewCounter(
		"events_published_total",
		"Notification events offered to subscribers",
	)
	EventsDroppedTotal = NewCounter(
		"events_dropped_total",
		"Events dropped on saturated subscriber channels",
	)
	SubscribersActive = NewGauge(
		"subscribers_active",
		"Currently registered subscribers",
	)

	CacheHitsTotal = NewCounter(
		"cache_hits_total",
		"Browse commands served from cache",
	)
	CacheMissesTotal = NewCounter(
		"cache_misses_total",
		"Browse commands that went to the server",
	)
	CacheInvalidationsTotal = NewCounter(
		"cache_invalidations_total",
		"Cache entries evicted by change notifications",
	)

	BridgePublishTotal = NewCounterVec(
		"bridge_publish_total",
		"Bridge deliveries by sink and result",
		[]string{"sink", "result"},
	)
}
