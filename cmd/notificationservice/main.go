/*
File: cmd/notificationservice/main.go
Description: Production entrypoint. Wires the configured store and
presence backends into the delivery router and starts the API and
WebSocket services.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/anandupg/Lyvo-Backend1-sub001/internal/app"
	"github.com/anandupg/Lyvo-Backend1-sub001/internal/delivery"
	"github.com/anandupg/Lyvo-Backend1-sub001/internal/middleware"
	"github.com/anandupg/Lyvo-Backend1-sub001/internal/platform/persistence"
	"github.com/anandupg/Lyvo-Backend1-sub001/internal/platform/presence"
	"github.com/anandupg/Lyvo-Backend1-sub001/internal/realtime"
	"github.com/anandupg/Lyvo-Backend1-sub001/internal/test/fakes"
	"github.com/anandupg/Lyvo-Backend1-sub001/notificationservice"
	"github.com/anandupg/Lyvo-Backend1-sub001/notificationservice/config"
	"github.com/anandupg/Lyvo-Backend1-sub001/pkg/notify"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	// 1. Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := log.With().Str("service", "notification-service").Logger()

	// 2. Load config.yaml
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()

	// 3. Create the durable store and presence mirror
	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize notification store")
	}
	presenceStore, err := newPresence(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize presence mirror")
	}

	// 4. Create Authentication Middleware
	authMiddleware, err := newAuthMiddleware(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize authentication middleware")
	}

	// 5. Wire the registry and delivery router
	registry := realtime.NewRegistry(logger.With().Str("component", "Registry").Logger())
	router, err := delivery.NewRouter(store, registry, cfg.CatchupLimit, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create delivery router")
	}

	// 6. Create the two main services
	apiService, err := notificationservice.New(
		cfg,
		router,
		store,
		authMiddleware,
		logger.With().Str("component", "ApiService").Logger(),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create API service")
	}

	connManager, err := realtime.NewConnectionManager(
		cfg.WebSocketPort,
		cfg.AllowedOrigins,
		authMiddleware,
		registry,
		router,
		presenceStore,
		logger.With().Str("component", "ConnManager").Logger(),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Connection Manager")
	}

	// 7. Run the application
	app.Run(ctx, logger, apiService, connManager)
}

// newAuthMiddleware creates the JWT-validating middleware. Local mode
// skips validation and injects a fixed identity.
func newAuthMiddleware(cfg *config.AppConfig) (func(http.Handler) http.Handler, error) {
	if cfg.RunMode == "local" {
		return middleware.NoopAuth(true, "local-user"), nil
	}
	return middleware.NewJWTAuthMiddleware([]byte(cfg.JWTSecret))
}

// newStore creates the configured notification store backend.
func newStore(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger) (notify.NotificationStore, error) {
	if cfg.RunMode == "local" {
		logger.Warn().Msg("Running in 'local' mode. The notification store is in-memory.")
		return fakes.NewNotificationStore(), nil
	}

	storeType := cfg.Store.Type
	logger.Info().Str("type", storeType).Msg("Initializing notification store...")

	switch storeType {
	case "mongo":
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.Store.Mongo.URI))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		if err := client.Ping(connectCtx, nil); err != nil {
			return nil, fmt.Errorf("failed to ping mongo: %w", err)
		}
		store, err := persistence.NewMongoStore(client, cfg.Store.Mongo.Database, logger)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure mongo indexes: %w", err)
		}
		return store, nil

	case "firestore":
		client, err := firestore.NewClient(ctx, cfg.Store.Firestore.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to firestore: %w", err)
		}
		return persistence.NewFirestoreStore(client, cfg.Store.Firestore.Collection, logger)

	default:
		return nil, fmt.Errorf("invalid store type: %s (must be 'mongo' or 'firestore')", storeType)
	}
}

// newPresence creates the configured cross-instance presence mirror.
// A nil-equivalent noop is returned when none is configured.
func newPresence(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger) (notify.PresenceStore, error) {
	switch cfg.Presence.Type {
	case "redis":
		redisAddr := cfg.Presence.Redis.Addr
		rdb := redis.NewClient(&redis.Options{
			Addr: redisAddr,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", redisAddr, err)
		}
		logger.Info().Str("addr", redisAddr).Msg("Connected to Redis presence mirror")
		ttl := time.Duration(cfg.Presence.TTLSeconds) * time.Second
		return presence.NewRedisPresence(rdb, ttl, logger)

	case "", "none":
		logger.Info().Msg("No presence mirror configured.")
		return fakes.NoopPresence{}, nil

	default:
		return nil, fmt.Errorf("invalid presence type: %s (must be 'redis' or 'none')", cfg.Presence.Type)
	}
}
