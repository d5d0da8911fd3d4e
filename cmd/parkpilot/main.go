// ParkPilot Core - Parking Guidance Platform
//
// This is the main entry point for the ParkPilot Core application.
// ParkPilot runs the full guidance stack for one or more parking lots:
//   - Routable lot graphs with A* pathfinding and spot recommendation
//   - Guarded spot reservation with automatic expiry
//   - Real-time status streams over SSE and WebSocket
//   - Occupancy analytics and carbon savings accounting
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/parkpilot/parkpilot-core/migrations"

	"github.com/parkpilot/parkpilot-core/internal/api"
	"github.com/parkpilot/parkpilot-core/internal/auth"
	"github.com/parkpilot/parkpilot-core/internal/carbon"
	"github.com/parkpilot/parkpilot-core/internal/events"
	"github.com/parkpilot/parkpilot-core/internal/graph"
	"github.com/parkpilot/parkpilot-core/internal/infrastructure/config"
	"github.com/parkpilot/parkpilot-core/internal/infrastructure/database"
	"github.com/parkpilot/parkpilot-core/internal/infrastructure/influxdb"
	"github.com/parkpilot/parkpilot-core/internal/infrastructure/logging"
	"github.com/parkpilot/parkpilot-core/internal/infrastructure/mqtt"
	"github.com/parkpilot/parkpilot-core/internal/occupancy"
	"github.com/parkpilot/parkpilot-core/internal/parking"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting ParkPilot Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
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

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Repositories
	parkingRepo := parking.NewSQLiteRepository(db.DB)
	userRepo := auth.NewUserRepository(db.DB)
	occupancyRepo := occupancy.NewSQLiteRepository(db.DB)
	carbonRepo := carbon.NewSQLiteRepository(db.DB)

	// Seed lot layouts on first boot (skipped when lots already exist)
	if cfg.Seed.Enabled {
		if seedErr := parking.Seed(ctx, parkingRepo, cfg.Seed.Paths, log); seedErr != nil {
			return fmt.Errorf("seeding lots: %w", seedErr)
		}
	}

	// Seed the initial admin account when the users table is empty. The
	// generated password is logged once and must be changed on first login.
	if _, seedErr := auth.SeedAdmin(ctx, userRepo, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding admin user: %w", seedErr)
	}

	// Event bus and parking service
	bus := events.NewBus(log)
	store := graph.NewStore()
	parkingSvc := parking.NewService(parkingRepo, store, bus, log)
	defer parkingSvc.Close()
	parkingSvc.SetOccupancyRecorder(occupancyRepo)

	if loadErr := parkingSvc.LoadGraphs(ctx); loadErr != nil {
		return fmt.Errorf("loading lot graphs: %w", loadErr)
	}
	if lots, lotsErr := parkingSvc.Lots(ctx); lotsErr == nil {
		log.Info("lot graphs loaded", "lots", len(lots))
	}

	// Re-arm expiry timers for reservations that survived a restart
	if rearmErr := parkingSvc.RearmReservations(ctx); rearmErr != nil {
		return fmt.Errorf("re-arming reservations: %w", rearmErr)
	}

	carbonSvc := carbon.NewService(carbonRepo, log)

	// Connect to MQTT broker for in-ground spot sensors (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		if feedErr := parking.AttachSensorFeed(mqttClient, parkingSvc, byte(cfg.MQTT.QoS), log); feedErr != nil {
			return fmt.Errorf("attaching sensor feed: %w", feedErr)
		}
	} else {
		log.Info("MQTT disabled, spot sensors unavailable")
	}

	// Connect to InfluxDB for spot status telemetry (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		parkingSvc.SetTelemetry(influxClient)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start the API server
	apiServer, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		SSE:       cfg.SSE,
		Security:  cfg.Security,
		Logger:    log,
		Parking:   parkingSvc,
		Occupancy: occupancyRepo,
		Carbon:    carbonSvc,
		Users:     userRepo,
		Bus:       bus,
		DB:        db.DB,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient, apiServer); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Parking service (expiry scheduler)
	// 5. Database

	log.Info("ParkPilot Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses PARKPILOT_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("PARKPILOT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// mqttClient and influxClient may be nil when the corresponding
// integration is disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, apiServer *api.Server) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	if err := apiServer.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	return nil
}
