package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tonearm/tonearm/admin"
	"github.com/tonearm/tonearm/bridge"
	_ "github.com/tonearm/tonearm/bridge/sink"
	"github.com/tonearm/tonearm/cfg"
	"github.com/tonearm/tonearm/client"
	"github.com/tonearm/tonearm/notify"
	"github.com/tonearm/tonearm/telemetry"
)

func main() {
	flag.Parse()

	// Load configuration
	err := cfg.Load(*cfg.ConfigPathFlag)
	if err != nil {
		panic(err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid configuration: %v", err))
	}

	// Setup logging
	var writer io.Writer = zerolog.NewConsoleWriter()
	if cfg.Config.Logging.Format == "json" {
		writer = os.Stdout
	}
	gLog := zerolog.New(writer).
		With().
		Timestamp().
		Uint64("client_id", cfg.Config.ClientID).
		Logger()

	if cfg.Config.Logging.Verbose {
		log.Logger = gLog.Level(zerolog.DebugLevel)
	} else {
		log.Logger = gLog.Level(zerolog.InfoLevel)
	}

	log.Info().Msg("Tonearm - Persistent MPD Client")
	log.Debug().Msg("Initializing telemetry")
	telemetry.InitializeTelemetry()

	// Shared hub so subscribers see events from every host
	hub := notify.NewHub(cfg.Config.SubscriberBuffer)

	opts := client.DefaultOptions()
	opts.Hub = hub
	if !cfg.Config.Cache.Enabled {
		opts.CacheSize = 0
	}

	clients, err := client.NewMultiHostClient(cfg.Config.Hosts, opts)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create MPD clients")
		return
	}
	clients.Start()
	defer clients.Stop()

	log.Info().Strs("hosts", cfg.Config.Hosts).Msg("Connection supervisors started")

	// Notification bridge sinks. Fatal exits skip deferred cleanup, so
	// tear down explicitly before bailing out.
	var registry *bridge.Registry
	if len(cfg.Config.Sinks) > 0 {
		registry, err = bridge.NewRegistry(hub, cfg.Config.Sinks)
		if err != nil {
			clients.Stop()
			log.Fatal().Err(err).Msg("Failed to create bridge sinks")
			return
		}
		if err := registry.Start(); err != nil {
			clients.Stop()
			log.Fatal().Err(err).Msg("Failed to start bridge workers")
			return
		}
		defer registry.Stop()
	}

	// Admin HTTP API
	if cfg.Config.Admin.Enabled {
		handlers := admin.NewHandlers(clients, hub, registry)
		adminServer := admin.NewServer(cfg.Config.Admin.Bind, handlers)
		adminServer.Start()
		defer adminServer.Stop()
	}

	// Prometheus metrics endpoint
	if cfg.Config.Prometheus.Enabled {
		bind := fmt.Sprintf("%s:%d", cfg.Config.Prometheus.Address, cfg.Config.Prometheus.Port)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", telemetry.GetMetricsHandler())
			log.Info().Str("bind", bind).Msg("Serving Prometheus metrics")
			if err := http.ListenAndServe(bind, mux); err != nil {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	log.Info().
		Uint64("client_id", cfg.Config.ClientID).
		Int("hosts", len(cfg.Config.Hosts)).
		Msg("Tonearm is operational")

	// Run until interrupted
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Shutting down")
}
