// Safehouse API
//
// This is the main entry point for the Safehouse backend. It bridges the
// MQTT device network to SQLite storage:
//   - inbound telemetry is routed by topic to per-device handlers
//   - settings are published back to devices and stored alongside
//   - a REST API and a websocket stream sit on top for the web clients
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/api"
	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/command"
	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/device"
	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/infrastructure/config"
	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/infrastructure/database"
	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/infrastructure/influxdb"
	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/infrastructure/logging"
	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/infrastructure/metrics"
	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/infrastructure/mqtt"
	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/keycard"
	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/telemetry"
	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/topic"
	"github.com/SDE-CIS/SafehouseSolutionsApi/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"

	// routerDrainTimeout bounds how long shutdown waits for in-flight
	// telemetry handlers.
	routerDrainTimeout = 5 * time.Second
)

var configFlag = flag.String("config", "", "path to the YAML config file (overrides SAFEHOUSE_CONFIG)")

func main() {
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
// It returns nil on a clean shutdown.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Safehouse API",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	devices := device.NewSQLRepository(db)
	readings := device.NewSQLTelemetryRepository(db)
	keycards := keycard.NewSQLRepository(db)

	m := metrics.New("safehouse")

	influxClient, err := connectInflux(ctx, cfg, log)
	if err != nil {
		return err
	}
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
	}

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
	m.SetBrokerConnected(true)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		m.SetBrokerConnected(true)
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		m.SetBrokerConnected(false)
		log.Warn("MQTT disconnected", "error", err)
	})

	publisher := command.NewPublisher(mqttClient, command.Config{
		QoS:      byte(cfg.MQTT.QoS), // #nosec G115 -- validated to 0..2
		Logger:   log.With("component", "command"),
		Observer: m,
	})

	hub := api.NewHub(cfg.WebSocket, log)
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go hub.Run(hubCtx)

	router := topic.NewRouter(log.With("component", "router"), m)
	handlerDeps := telemetry.Deps{
		Devices:   devices,
		Readings:  readings,
		Keycards:  keycards,
		Publisher: publisher,
		Notifier:  hub,
		Logger:    log.With("component", "telemetry"),
	}
	// A nil *influxdb.Client must not become a non-nil Recorder.
	if influxClient != nil {
		handlerDeps.Recorder = influxClient
	}
	if regErr := telemetry.New(handlerDeps).Register(router); regErr != nil {
		return fmt.Errorf("registering telemetry handlers: %w", regErr)
	}

	patterns := router.Patterns()
	if subErr := mqttClient.Subscribe(patterns, byte(cfg.MQTT.QoS), router.Deliver); subErr != nil { // #nosec G115 -- validated to 0..2
		if !errors.Is(subErr, mqtt.ErrNotConnected) {
			return fmt.Errorf("subscribing to device topics: %w", subErr)
		}
		log.Warn("MQTT offline, subscriptions deferred until reconnect")
	}
	log.Info("device topics subscribed", "filters", patterns)

	srv, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Security:  cfg.Security,
		Logger:    log,
		Devices:   devices,
		Telemetry: readings,
		Keycards:  keycards,
		Commands:  publisher,
		Hub:       hub,
		Metrics:   m.Handler(),
		Health:    healthChecks(db, mqttClient, influxClient),
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := srv.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	if closeErr := srv.Close(); closeErr != nil {
		log.Error("error closing API server", "error", closeErr)
	}
	if unsubErr := mqttClient.Unsubscribe(); unsubErr != nil {
		log.Warn("error unsubscribing device topics", "error", unsubErr)
	}

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), routerDrainTimeout)
	defer cancelDrain()
	if drainErr := router.Shutdown(drainCtx); drainErr != nil {
		log.Warn("telemetry handlers still running at shutdown", "error", drainErr)
	}

	// Deferred Close() calls run in reverse order: MQTT, InfluxDB, database.

	log.Info("Safehouse API stopped")
	return nil
}

// getConfigPath returns the configuration file path: the -config flag,
// then the SAFEHOUSE_CONFIG environment variable, then the default.
func getConfigPath() string {
	if *configFlag != "" {
		return *configFlag
	}
	if path := os.Getenv("SAFEHOUSE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// connectInflux starts the optional time-series mirror. It returns a nil
// client when the mirror is disabled.
func connectInflux(ctx context.Context, cfg *config.Config, log *logging.Logger) (*influxdb.Client, error) {
	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
	if errors.Is(err, influxdb.ErrDisabled) {
		log.Info("InfluxDB disabled")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}

	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client, nil
}

// healthChecks lists the components reported by GET /api/v1/health. The
// broker and the time-series mirror are optional: while either is down
// the API still serves stored data.
func healthChecks(db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) []api.HealthCheck {
	checks := []api.HealthCheck{
		{Name: "database", Check: db.HealthCheck},
		{Name: "mqtt", Check: mqttClient.HealthCheck, Optional: true},
	}
	if influxClient != nil {
		checks = append(checks, api.HealthCheck{Name: "influxdb", Check: influxClient.HealthCheck, Optional: true})
	}
	return checks
}
