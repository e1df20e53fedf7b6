package cfg

import (
	"flag"
	"fmt"
	"hash/fnv"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/denisbrodbeck/machineid"
	"github.com/rs/zerolog/log"
)

// ReconnectConfiguration controls the supervisor's backoff behavior.
// The delay starts at InitialDelayMS, is multiplied by Multiplier after
// each failed attempt, and never exceeds MaxDelayMS.
type ReconnectConfiguration struct {
	InitialDelayMS int     `toml:"initial_delay_ms"`
	Multiplier     float64 `toml:"multiplier"`
	MaxDelayMS     int     `toml:"max_delay_ms"`
}

// CacheConfiguration controls the browse-command response cache
type CacheConfiguration struct {
	Enabled bool `toml:"enabled"`
	Size    int  `toml:"size"` // Max cached responses
}

// LoggingConfiguration controls logging behavior
type LoggingConfiguration struct {
	Verbose bool   `toml:"verbose"`
	Format  string `toml:"format"` // "console" or "json"
}

// PrometheusConfiguration for metrics
type PrometheusConfiguration struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
	Port    int    `toml:"port"`
}

// AdminConfiguration for the HTTP status API
type AdminConfiguration struct {
	Enabled bool   `toml:"enabled"`
	Bind    string `toml:"bind"`
	AuthKey string `toml:"auth_key"` // Empty disables auth
}

// SinkConfiguration describes one notification bridge destination
type SinkConfiguration struct {
	Name        string   `toml:"name"`
	Type        string   `toml:"type"` // "nats", "kafka"
	NatsURL     string   `toml:"nats_url"`
	Brokers     []string `toml:"brokers"`
	TopicPrefix string   `toml:"topic_prefix"`
}

// Configuration is the main configuration structure
type Configuration struct {
	ClientID uint64   `toml:"client_id"`
	Hosts    []string `toml:"hosts"`

	ConnectTimeoutMS int `toml:"connect_timeout_ms"`
	CommandTimeoutMS int `toml:"command_timeout_ms"`
	SubscriberBuffer int `toml:"subscriber_buffer"`

	Reconnect  ReconnectConfiguration  `toml:"reconnect"`
	Cache      CacheConfiguration      `toml:"cache"`
	Logging    LoggingConfiguration    `toml:"logging"`
	Prometheus PrometheusConfiguration `toml:"prometheus"`
	Admin      AdminConfiguration      `toml:"admin"`
	Sinks      []SinkConfiguration     `toml:"sink"`
}

// Command line flags
var (
	ConfigPathFlag = flag.String("config", "config.toml", "Path to configuration file")
	HostsFlag      = flag.String("hosts", "", "Comma-separated MPD hosts (overrides config)")
	VerboseFlag    = flag.Bool("verbose", false, "Enable debug logging (overrides config)")
)

// Default configuration
var Config = &Configuration{
	ClientID: 0, // Auto-generate
	Hosts:    []string{"localhost:6600"},

	ConnectTimeoutMS: 5000,
	CommandTimeoutMS: 5000,
	SubscriberBuffer: 64,

	Reconnect: ReconnectConfiguration{
		InitialDelayMS: 500,
		Multiplier:     2.0,
		MaxDelayMS:     30000,
	},

	Cache: CacheConfiguration{
		Enabled: true,
		Size:    256,
	},

	Logging: LoggingConfiguration{
		Verbose: false,
		Format:  "console",
	},

	Prometheus: PrometheusConfiguration{
		Enabled: false,
		Address: "0.0.0.0",
		Port:    9090,
	},

	Admin: AdminConfiguration{
		Enabled: false,
		Bind:    "127.0.0.1:6611",
	},
}

// Load loads configuration from file and applies CLI overrides
func Load(configPath string) error {
	// Load from file if it exists
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			log.Info().Str("path", configPath).Msg("Loading configuration")
			if _, err := toml.DecodeFile(configPath, Config); err != nil {
				return fmt.Errorf("failed to decode config: %w", err)
			}
		} else {
			log.Warn().Str("path", configPath).Msg("Config file not found, using defaults")
		}
	}

	// Apply CLI overrides
	if *HostsFlag != "" {
		hosts := strings.Split(*HostsFlag, ",")
		for i := range hosts {
			hosts[i] = strings.TrimSpace(hosts[i])
		}
		Config.Hosts = hosts
	}
	if *VerboseFlag {
		Config.Logging.Verbose = true
	}

	// Auto-generate client ID if not set
	if Config.ClientID == 0 {
		var err error
		Config.ClientID, err = generateClientID()
		if err != nil {
			return fmt.Errorf("failed to generate client ID: %w", err)
		}
		log.Info().Uint64("client_id", Config.ClientID).Msg("Auto-generated client ID")
	}

	return nil
}

// generateClientID creates a unique client ID based on machine ID
func generateClientID() (uint64, error) {
	id, err := machineid.ProtectedID("tonearm")
	if err != nil {
		return 0, err
	}

	h := fnv.New64a()
	h.Write([]byte(id))
	return h.Sum64(), nil
}

// Validate checks configuration for errors
func Validate() error {
	if len(Config.Hosts) == 0 {
		return fmt.Errorf("at least one host is required")
	}
	for _, host := range Config.Hosts {
		if strings.TrimSpace(host) == "" {
			return fmt.Errorf("empty host entry in host list")
		}
	}

	if Config.ConnectTimeoutMS <= 0 {
		return fmt.Errorf("invalid connect_timeout_ms: %d", Config.ConnectTimeoutMS)
	}
	if Config.CommandTimeoutMS <= 0 {
		return fmt.Errorf("invalid command_timeout_ms: %d", Config.CommandTimeoutMS)
	}
	if Config.SubscriberBuffer < 1 {
		return fmt.Errorf("invalid subscriber_buffer: %d", Config.SubscriberBuffer)
	}

	if Config.Reconnect.InitialDelayMS <= 0 {
		return fmt.Errorf("invalid reconnect.initial_delay_ms: %d", Config.Reconnect.InitialDelayMS)
	}
	if Config.Reconnect.Multiplier < 1.0 {
		return fmt.Errorf("invalid reconnect.multiplier: %f", Config.Reconnect.Multiplier)
	}
	if Config.Reconnect.MaxDelayMS < Config.Reconnect.InitialDelayMS {
		return fmt.Errorf("reconnect.max_delay_ms must be >= reconnect.initial_delay_ms")
	}

	if Config.Cache.Enabled && Config.Cache.Size < 1 {
		return fmt.Errorf("invalid cache.size: %d", Config.Cache.Size)
	}

	if Config.Prometheus.Enabled {
		if Config.Prometheus.Port < 1 || Config.Prometheus.Port > 65535 {
			return fmt.Errorf("invalid prometheus port: %d", Config.Prometheus.Port)
		}
	}

	if Config.Admin.Enabled && Config.Admin.Bind == "" {
		return fmt.Errorf("admin.bind is required when admin API is enabled")
	}

	for _, sink := range Config.Sinks {
		if sink.Name == "" {
			return fmt.Errorf("sink name is required")
		}
		switch sink.Type {
		case "nats":
			if sink.NatsURL == "" {
				return fmt.Errorf("sink %q: nats sink requires nats_url", sink.Name)
			}
		case "kafka":
			if len(sink.Brokers) == 0 {
				return fmt.Errorf("sink %q: kafka sink requires brokers", sink.Name)
			}
		default:
			return fmt.Errorf("sink %q: unknown sink type %q", sink.Name, sink.Type)
		}
	}

	return nil
}

// ConnectTimeout returns the configured connect timeout as a duration
func ConnectTimeout() time.Duration {
	return time.Duration(Config.ConnectTimeoutMS) * time.Millisecond
}

// CommandTimeout returns the configured command timeout as a duration
func CommandTimeout() time.Duration {
	return time.Duration(Config.CommandTimeoutMS) * time.Millisecond
}

// InitialReconnectDelay returns the configured initial backoff delay
func InitialReconnectDelay() time.Duration {
	return time.Duration(Config.Reconnect.InitialDelayMS) * time.Millisecond
}

// MaxReconnectDelay returns the configured backoff ceiling
func MaxReconnectDelay() time.Duration {
	return time.Duration(Config.Reconnect.MaxDelayMS) * time.Millisecond
}

// IsAdminAuthEnabled reports whether the admin API requires a key
func IsAdminAuthEnabled() bool {
	return Config.Admin.AuthKey != ""
}

// GetAdminAuthKey returns the configured admin API key
func GetAdminAuthKey() string {
	return Config.Admin.AuthKey
}
