package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/galynx-chat/galynx-server/internal/access"
	"github.com/galynx-chat/galynx-server/internal/api"
	"github.com/galynx-chat/galynx-server/internal/apierrors"
	"github.com/galynx-chat/galynx-server/internal/attachment"
	"github.com/galynx-chat/galynx-server/internal/audit"
	"github.com/galynx-chat/galynx-server/internal/auth"
	"github.com/galynx-chat/galynx-server/internal/bootstrap"
	"github.com/galynx-chat/galynx-server/internal/config"
	"github.com/galynx-chat/galynx-server/internal/eventbus"
	"github.com/galynx-chat/galynx-server/internal/httputil"
	"github.com/galynx-chat/galynx-server/internal/identitytime"
	"github.com/galynx-chat/galynx-server/internal/message"
	"github.com/galynx-chat/galynx-server/internal/ratelimit"
	"github.com/galynx-chat/galynx-server/internal/realtime"
	"github.com/galynx-chat/galynx-server/internal/storage"
	"github.com/galynx-chat/galynx-server/internal/storage/memstore"
	"github.com/galynx-chat/galynx-server/internal/storage/mongostore"
)

// Build metadata injected via ldflags at compile time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// mongoDatabase is the database every collection lives in; MONGO_URI selects
// the deployment, not the database name.
const mongoDatabase = "galynx"

// uploadSweepInterval is how often expired PendingUploads are purged.
const uploadSweepInterval = time.Minute

func main() {
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.IsDevelopment() {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			With().Timestamp().Logger()
	}

	log.Info().
		Str("version", version).
		Str("commit", commit).
		Str("built", date).
		Str("env", cfg.Env).
		Msg("Starting Galynx Server")

	if cfg.CORSAllowOrigins == "*" {
		log.Warn().Msg("CORS_ALLOW_ORIGINS is set to a wildcard. Set an explicit origin when in production.")
	}

	ctx := context.Background()
	gen := identitytime.UUIDv7Generator{}
	clock := identitytime.SystemClock{}

	// Storage backend
	var store storage.Store
	switch cfg.Persistence {
	case config.BackendMemory:
		store = memstore.New()
		log.Info().Msg("In-memory storage initialised")
	case config.BackendMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		client, err := mongo.Connect(connectCtx, mongooptions.Client().ApplyURI(cfg.MongoURI))
		cancel()
		if err != nil {
			return fmt.Errorf("connect mongo: %w", err)
		}
		defer func() { _ = client.Disconnect(context.Background()) }()

		ms := mongostore.New(client.Database(mongoDatabase))
		if err := ms.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("ensure mongo indexes: %w", err)
		}
		store = ms
		log.Info().Str("database", mongoDatabase).Msg("MongoDB connected")
	default:
		return fmt.Errorf("unsupported persistence backend: %q", cfg.Persistence)
	}

	// Redis backs the rate limiter and the cross-replica event mirror.
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer func() { _ = rdb.Close() }()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = rdb.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	log.Info().Msg("Redis connected")

	limiter := ratelimit.New(rdb)

	subCtx, subCancel := context.WithCancel(ctx)
	defer subCancel()

	replicaID := uuid.NewString()
	bus := eventbus.New(log.Logger)
	bus.SetMirror(subCtx, eventbus.NewRedisMirror(rdb, replicaID, log.Logger))
	log.Info().Str("replica_id", replicaID).Msg("Event mirror attached")

	recorder := audit.New(store, gen, clock, log.Logger)

	argon2 := auth.Argon2Params{
		Memory:      cfg.Argon2Memory,
		Iterations:  cfg.Argon2Iterations,
		Parallelism: cfg.Argon2Parallelism,
		SaltLength:  cfg.Argon2SaltLength,
		KeyLength:   cfg.Argon2KeyLength,
	}
	authSvc := auth.New(store, gen, clock, auth.Config{
		JWTSecret:  cfg.JWTSecret,
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
		Argon2:     argon2,
	}, recorder, log.Logger)

	ctl := access.New(store)
	messages := message.New(store, ctl, gen, clock, bus, recorder, log.Logger)

	// Object store: galynx bundles only the local provider, which serves
	// every object whether or not S3_BUCKET is set; S3_BUCKET names the
	// bucket recorded on attachments, and S3_ENDPOINT is not used.
	bucket := cfg.S3Bucket
	if bucket == "" {
		bucket = "galynx"
	}
	localObjects := attachment.NewLocalProvider(
		cfg.LocalObjectsPath, cfg.ServerURL+"/local-objects", clock, log.Logger)
	if cfg.S3Configured() {
		log.Warn().Str("bucket", cfg.S3Bucket).
			Msg("S3_BUCKET is set but this build bundles no S3 signer; serving objects locally")
	} else {
		log.Info().Str("path", cfg.LocalObjectsPath).Msg("Local object store initialised")
	}

	attach := attachment.New(store, ctl, gen, clock, bus, localObjects, recorder, attachment.Config{
		Bucket: bucket,
		Region: cfg.S3Region,
	}, log.Logger)

	rtEngine, err := realtime.New(store, ctl, messages, bus, limiter, gen, clock, realtime.Config{
		JWTSecret: cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
	}, log.Logger)
	if err != nil {
		return fmt.Errorf("create realtime engine: %w", err)
	}

	if err := bootstrap.Run(ctx, store, gen, clock, cfg, log.Logger); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	// Sweep expired pending uploads (and, on the in-memory backend, stale
	// idempotency records) in the background so abandoned presigns and
	// replayed-command results do not accumulate.
	go func() {
		ticker := time.NewTicker(uploadSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-subCtx.Done():
				return
			case <-ticker.C:
				n, err := store.PurgeExpiredUploads(subCtx, clock.NowMS())
				if err != nil {
					log.Warn().Err(err).Msg("Failed to purge expired uploads")
				} else if n > 0 {
					log.Info().Int("purged", n).Msg("Purged expired pending uploads")
				}
				if ms, ok := store.(*memstore.Store); ok {
					if n := ms.Sweep(clock.NowMS()); n > 0 {
						log.Info().Int("purged", n).Msg("Purged expired idempotency records")
					}
				}
			}
		}
	}()

	app := fiber.New(fiber.Config{
		AppName:   "Galynx",
		BodyLimit: attachment.MaxSizeBytes,
		ErrorHandler: func(c fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return httputil.Fail(c, e.Code, fiberStatusToAPICode(e.Code), e.Message)
			}
			log.Error().Err(err).
				Str("method", c.Method()).
				Str("path", c.Path()).
				Msg("Unhandled error")
			return httputil.Fail(c, fiber.StatusInternalServerError, apierrors.CodeInternal, "An internal error occurred")
		},
	})

	app.Use(requestid.New())
	app.Use(httputil.RequestLogger(log.Logger, "/api/v1/health", "/api/v1/ready"))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Split(cfg.CORSAllowOrigins, ","),
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"X-Request-ID"},
	}))

	handler := api.New(
		store, ctl, authSvc, messages, attach, recorder, bus, rtEngine,
		gen, clock, argon2,
		api.BuildInfo{Version: version, Commit: commit, Date: date},
		rdb, limiter, log.Logger,
	)
	handler.RegisterRoutes(app, cfg.JWTSecret, cfg.JWTIssuer)

	app.Put("/local-objects/:bucket/*", localObjects.HandlePut)
	app.Get("/local-objects/:bucket/*", localObjects.HandleGet)

	// Fiber v3 treats app.Use() middleware as route matches, so unmatched
	// requests need a terminal 404 handler.
	app.Use(func(_ fiber.Ctx) error {
		return fiber.ErrNotFound
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info().Msg("Shutting down server")
		subCancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Info().Str("addr", addr).Msg("Server listening")

	if err := app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// fiberStatusToAPICode maps an HTTP status from Fiber's built-in errors
// (404, 405, etc.) to the closest wire error code.
func fiberStatusToAPICode(status int) apierrors.Code {
	switch status {
	case fiber.StatusUnauthorized:
		return apierrors.CodeUnauthorized
	case fiber.StatusNotFound:
		return apierrors.CodeNotFound
	case fiber.StatusTooManyRequests:
		return apierrors.CodeRateLimited
	default:
		if status >= 400 && status < 500 {
			return apierrors.CodeInvalidInput
		}
		return apierrors.CodeInternal
	}
}
