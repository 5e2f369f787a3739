// fimp2ha - Futurehome FIMP to Home Assistant bridge
//
// fimp2ha connects to the MQTT broker of a Futurehome Smarthub, asks the
// hub's vinculum service for its devices, rooms, shortcuts and house mode,
// and publishes Home Assistant MQTT discovery configs so every supported
// device shows up in Home Assistant without manual YAML.
//
// Configuration is read from configs/config.yaml (override with
// FIMP2HA_CONFIG) and environment variables; see configs/config.yaml.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/fimp2ha/migrations"

	"github.com/nerrad567/fimp2ha/internal/api"
	"github.com/nerrad567/fimp2ha/internal/bridge"
	"github.com/nerrad567/fimp2ha/internal/correlator"
	"github.com/nerrad567/fimp2ha/internal/discovery"
	"github.com/nerrad567/fimp2ha/internal/entity"
	"github.com/nerrad567/fimp2ha/internal/infrastructure/config"
	"github.com/nerrad567/fimp2ha/internal/infrastructure/database"
	"github.com/nerrad567/fimp2ha/internal/infrastructure/influxdb"
	"github.com/nerrad567/fimp2ha/internal/infrastructure/logging"
	"github.com/nerrad567/fimp2ha/internal/infrastructure/metrics"
	"github.com/nerrad567/fimp2ha/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// defaultConfigPath is used when FIMP2HA_CONFIG is unset and the file exists.
const defaultConfigPath = "configs/config.yaml"

// errConnectionLost ends run when the broker drops us and reconnect is off.
var errConnectionLost = errors.New("no longer connected to MQTT broker")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the bridge together and blocks until ctx ends or the MQTT
// session is lost.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting fimp2ha",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"bridge_id", cfg.Bridge.ID,
		"selected_devices_mode", cfg.Discovery.SelectedDevicesMode,
		"selected_devices", len(cfg.Discovery.SelectedDevices),
	)

	db, err := database.Open(database.ConfigFrom(cfg.Database))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	entities := entity.NewSQLiteRepository(db.DB)
	log.Info("database ready", "path", db.Path())

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.With("component", "mqtt"))
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	runCtx, stop := context.WithCancelCause(ctx)
	defer stop(nil)
	watchConnection(mqttClient, cfg.MQTT.Reconnect.Enabled, stop, log)

	prom := metrics.New()
	requestObservers := correlator.MultiObserver{prom}
	cycleObservers := discovery.MultiObserver{prom}

	if influxClient := connectInflux(cfg, log); influxClient != nil {
		defer func() {
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		requestObservers = append(requestObservers, influxClient)
		cycleObservers = append(cycleObservers, influxClient)
	}

	corr, err := correlator.New(correlator.Options{
		Transport: mqttClient,
		QoS:       byte(cfg.MQTT.QoS),
		Logger:    log.With("component", "correlator"),
		Observer:  requestObservers,
	})
	if err != nil {
		return fmt.Errorf("creating correlator: %w", err)
	}

	orchestrator, err := discovery.New(discovery.Options{
		Publisher:     corr,
		Ledger:        entities,
		Discovery:     cfg.Discovery,
		HomeAssistant: cfg.HomeAssistant,
		Logger:        log.With("component", "discovery"),
		Observer:      cycleObservers,
	})
	if err != nil {
		return fmt.Errorf("creating discovery: %w", err)
	}

	br, err := bridge.New(bridge.Options{
		Transport:     mqttClient,
		Discoverer:    orchestrator,
		HomeAssistant: cfg.HomeAssistant,
		QoS:           byte(cfg.MQTT.QoS),
		Logger:        log.With("component", "bridge"),
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}
	if err := br.Start(runCtx); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}
	defer br.Stop()

	if cfg.API.Enabled {
		srv, err := api.New(api.Deps{
			Config:     cfg.API,
			Logger:     log.With("component", "api"),
			Version:    version,
			Bridge:     br,
			Entities:   entities,
			MQTT:       mqttClient,
			Database:   db,
			Correlator: corr,
			Metrics:    prom,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := srv.Start(runCtx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("status API disabled")
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	<-runCtx.Done()

	if cause := context.Cause(runCtx); errors.Is(cause, errConnectionLost) {
		log.Error("MQTT connection lost, exiting", "error", cause)
		return cause
	}

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns FIMP2HA_CONFIG, the default config file when it
// exists, or "" for defaults plus environment.
func getConfigPath() string {
	if path := os.Getenv("FIMP2HA_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}

// watchConnection logs connection changes. Without auto-reconnect a lost
// connection cancels run with errConnectionLost.
func watchConnection(client *mqtt.Client, reconnect bool, stop context.CancelCauseFunc, log *logging.Logger) {
	client.SetOnConnect(func() {
		log.Info("MQTT connected")
	})
	client.SetOnDisconnect(func(err error) {
		if reconnect {
			log.Warn("MQTT disconnected, reconnecting", "error", err)
			return
		}
		stop(fmt.Errorf("%w: %w", errConnectionLost, err))
	})
}

// connectInflux returns nil when telemetry is disabled or unreachable.
// Telemetry is optional, so a failure only logs.
func connectInflux(cfg *config.Config, log *logging.Logger) *influxdb.Client {
	if !cfg.InfluxDB.Enabled {
		log.Info("InfluxDB disabled")
		return nil
	}

	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Bridge.ID)
	if err != nil {
		log.Warn("InfluxDB unavailable, telemetry disabled", "error", err)
		return nil
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client
}
