// Gray Hearth - multi-slot stove simulation server.
//
// One authoritative process owns the world, advances cooking every tick and
// publishes stove state over MQTT. Any number of presentation processes
// mirror that state and render smoke for connected clients.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/gray-hearth/migrations"

	"github.com/nerrad567/gray-hearth/internal/api"
	"github.com/nerrad567/gray-hearth/internal/audit"
	"github.com/nerrad567/gray-hearth/internal/infrastructure/config"
	"github.com/nerrad567/gray-hearth/internal/infrastructure/database"
	"github.com/nerrad567/gray-hearth/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-hearth/internal/infrastructure/logging"
	"github.com/nerrad567/gray-hearth/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-hearth/internal/recipe"
	"github.com/nerrad567/gray-hearth/internal/scheduler"
	"github.com/nerrad567/gray-hearth/internal/stove"
	"github.com/nerrad567/gray-hearth/internal/stovesync"
	"github.com/nerrad567/gray-hearth/internal/world"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := runToken(os.Args[2:], os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the process together and blocks until ctx is cancelled.
// Deferred cleanups run in reverse order: API, scheduler (which flushes
// pending stoves), InfluxDB, MQTT, database.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Gray Hearth",
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
		"role", cfg.Simulation.Role,
	)

	catalog, err := loadCatalog(cfg, log)
	if err != nil {
		return err
	}

	w := world.New(worldSeed(cfg))

	// Only the authoritative process owns persistent state.
	var (
		db        *database.DB
		stoveRepo stove.Repository
		blockRepo world.BlockRepository
		auditRepo audit.Repository
	)
	if cfg.IsAuthoritative() {
		db, err = database.Open(ctx, cfg.Database)
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

		if migrateErr := db.Migrate(ctx); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		log.Info("database migrations complete")

		blockRepo = world.NewSQLiteBlockRepository(db.DB)
		restored, restoreErr := world.Restore(ctx, w, blockRepo)
		if restoreErr != nil {
			return fmt.Errorf("restoring blocks: %w", restoreErr)
		}
		log.Info("world restored", "blocks", restored)

		stoveRepo = stove.NewSQLiteRepository(db.DB)
		auditRepo = audit.NewSQLiteRepository(db.DB)
	}

	registry := stove.NewRegistry(stoveRepo, stove.Bind(w, catalog))
	registry.SetLogger(log.Component("stove"))
	if refreshErr := registry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading stoves: %w", refreshErr)
	}
	log.Info("stove registry initialised", "stoves", registry.Count())

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
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	influxClient, err := influxdb.Connect(cfg.InfluxDB, influxdb.WithSite(cfg.Site.ID))
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err, "failures", influxClient.Failures())
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	}

	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))

	deps := scheduler.Deps{
		Registry: registry,
		World:    w,
		Hub:      hub,
		Logger:   log.Component("scheduler"),
	}
	if cfg.IsAuthoritative() {
		deps.Syncer = stovesync.NewPublisher(mqttClient, cfg.SyncQoS())
		if influxClient != nil {
			deps.Telemetry = influxClient
		}
	}
	sched := scheduler.New(scheduler.ConfigFrom(cfg), deps)
	sched.Start(ctx)
	defer sched.Stop()

	if !cfg.IsAuthoritative() {
		replica := stovesync.NewReplica(registry, sched.Post)
		replica.SetLogger(log.Component("replica"))
		topic := mqtt.Topics{}.AllStoveSyncs()
		if subErr := mqttClient.Subscribe(topic, cfg.SyncQoS(), replica.HandleSync); subErr != nil {
			return fmt.Errorf("subscribing to stove sync: %w", subErr)
		}
		log.Info("mirroring stoves", "topic", topic)
	}

	if cfg.API.Enabled {
		server, apiErr := api.New(api.Deps{
			Config:   cfg.API,
			WS:       cfg.WebSocket,
			Security: cfg.Security,
			Logger:   log.Component("api"),
			Registry: registry,
			Catalog:  catalog,
			World:    w,
			Blocks:   blockRepo,
			Audit:    auditRepo,
			Executor: sched,
			Hub:      hub,
			ReadOnly: !cfg.IsAuthoritative(),
			Version:  version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// loadCatalog builds the recipe catalog from config, falling back to the
// built-in campfire recipes when none are configured.
func loadCatalog(cfg *config.Config, log *logging.Logger) (*recipe.Catalog, error) {
	recipes := recipe.DefaultRecipes()
	if len(cfg.Recipes) > 0 {
		var err error
		if recipes, err = recipe.FromConfig(cfg.Recipes); err != nil {
			return nil, fmt.Errorf("loading recipes: %w", err)
		}
	}

	catalog := recipe.NewCatalog()
	catalog.SetLogger(log.Component("recipe"))
	if err := catalog.Replace(recipes); err != nil {
		return nil, fmt.Errorf("loading recipes: %w", err)
	}
	log.Info("recipe catalog loaded", "recipes", catalog.Count())
	return catalog, nil
}

// worldSeed returns the configured seed, or one drawn from the clock.
func worldSeed(cfg *config.Config) uint64 {
	if cfg.Simulation.Seed != 0 {
		return cfg.Simulation.Seed
	}
	return uint64(time.Now().UnixNano()) //nolint:gosec // clock is never negative
}

// getConfigPath returns the configuration file path.
// Uses HEARTH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HEARTH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies infrastructure connections. db and influxClient may
// be nil when the role or config leaves them out.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
