// Command effis runs the file service: content-addressed upload/fetch/download plus instance-owner static assets.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/eludris-go/eludris/internal/config"
	"github.com/eludris-go/eludris/internal/file"
	"github.com/eludris-go/eludris/internal/fileapi"
	"github.com/eludris-go/eludris/internal/httputil"
	"github.com/eludris-go/eludris/internal/media"
	"github.com/eludris-go/eludris/internal/postgres"
	"github.com/eludris-go/eludris/internal/ratelimit"
	"github.com/eludris-go/eludris/internal/snowflake"
	"github.com/eludris-go/eludris/internal/valkey"
)

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
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	log.Info().Str("instance", cfg.InstanceName).Str("env", cfg.ServerEnv).Msg("Starting effis")

	ctx := context.Background()
	subCtx, subCancel := context.WithCancel(ctx)
	defer subCancel()

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConn, cfg.DatabaseMinConn)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()
	log.Info().Msg("PostgreSQL connected")

	rdb, err := valkey.Connect(ctx, cfg.ValkeyURL, 5*time.Second)
	if err != nil {
		return fmt.Errorf("connect valkey: %w", err)
	}
	defer func() { _ = rdb.Close() }()
	log.Info().Msg("Valkey connected")

	ids := snowflake.NewGenerator(cfg.WorkerID)

	storagePath := envOr("EFFIS_STORAGE_PATH", "./data/files")
	staticDir := envOr("EFFIS_STATIC_PATH", "./data/static")
	storage := media.NewLocalStorage(storagePath, cfg.Effis.URL)
	log.Info().Str("path", storagePath).Msg("Local file storage initialised")

	fileRepo := file.NewRepository(db)
	fileService := file.NewService(fileRepo, ids, storage, rdb, log.Logger)

	probeWorker := media.NewProbeWorker(rdb, storage, fileRepo, log.Logger)
	probeWorker.EnsureStream(subCtx)
	go runWithBackoff(subCtx, "probe-worker", probeWorker.Run)

	limiter := ratelimit.New(rdb, cfg.Buckets())

	handler := &fileapi.FileHandler{
		Files:     fileService,
		Limiter:   limiter,
		StaticDir: staticDir,
	}

	app := fiber.New(fiber.Config{
		AppName:      "effis",
		BodyLimit:    int(cfg.Effis.AttachmentFileSize),
		ErrorHandler: httputil.ErrorHandler,
	})
	app.Use(requestid.New())
	app.Use(httputil.RequestLogger(log.Logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Split(corsOrigins(), ","),
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"X-RateLimit-Reset", "X-RateLimit-Max", "X-RateLimit-Last-Reset", "X-RateLimit-Request-Count"},
	}))

	fileapi.RegisterRoutes(app, handler, limiter)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Info().Msg("Shutting down effis")
		subCancel()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Shutdown error")
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	log.Info().Str("addr", addr).Msg("effis listening")
	if err := app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func corsOrigins() string {
	if v := os.Getenv("CORS_ALLOW_ORIGINS"); v != "" {
		return v
	}
	return "*"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// runWithBackoff runs fn until ctx is cancelled, restarting it with exponential backoff (capped at 2 minutes) if it
// returns a non-cancellation error.
func runWithBackoff(ctx context.Context, name string, fn func(context.Context) error) {
	const (
		initialDelay = time.Second
		maxDelay     = 2 * time.Minute
	)
	delay := initialDelay
	for {
		if err := fn(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error().Err(err).Str("service", name).Dur("retry_in", delay).
				Msg("Background service stopped, restarting after delay")
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay = min(delay*2, maxDelay)
			continue
		}
		return
	}
}
