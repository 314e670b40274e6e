// Command pandemonium runs the gateway: long-lived WebSocket connections delivering events, heartbeats, and
// presence fan-out.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/eludris-go/eludris/internal/auth"
	"github.com/eludris-go/eludris/internal/config"
	"github.com/eludris-go/eludris/internal/events"
	"github.com/eludris-go/eludris/internal/gatewayapi"
	"github.com/eludris-go/eludris/internal/gateway"
	"github.com/eludris-go/eludris/internal/httputil"
	"github.com/eludris-go/eludris/internal/instance"
	"github.com/eludris-go/eludris/internal/postgres"
	"github.com/eludris-go/eludris/internal/presence"
	"github.com/eludris-go/eludris/internal/ratelimit"
	"github.com/eludris-go/eludris/internal/secret"
	"github.com/eludris-go/eludris/internal/snowflake"
	"github.com/eludris-go/eludris/internal/user"
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

	log.Info().Str("instance", cfg.InstanceName).Str("env", cfg.ServerEnv).Msg("Starting pandemonium")

	ctx := context.Background()

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

	instanceSecret, err := secret.NewStore(db).Get(ctx)
	if err != nil {
		return fmt.Errorf("load instance secret: %w", err)
	}

	ids := snowflake.NewGenerator(cfg.WorkerID)
	password := auth.PasswordParams(cfg.Argon2)
	authService := auth.NewService(auth.NewRepository(db), ids, instanceSecret, password)

	publisher := events.NewPublisher(rdb)
	presenceStore := presence.NewStore(rdb)
	hasher := auth.NewPasswordHasher(password)
	userRepo := user.NewRepository(db, log.Logger)
	userService := user.NewService(userRepo, ids, rdb, publisher, hasher, noopMailer{}, cfg.Oprish.BioLimit)

	limiter := ratelimit.New(rdb, cfg.Buckets())

	instanceInfo, err := json.Marshal(instance.Build(cfg, false))
	if err != nil {
		return fmt.Errorf("marshal instance info: %w", err)
	}

	hub := gateway.NewHub(rdb, authService, userService, presenceStore, publisher, limiter, instanceInfo, 0, log.Logger)

	app := fiber.New(fiber.Config{
		AppName:      "pandemonium",
		ErrorHandler: httputil.ErrorHandler,
	})
	app.Use(httputil.RequestLogger(log.Logger))

	gatewayapi.RegisterRoutes(app, &gatewayapi.Handler{Hub: hub})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Info().Msg("Shutting down pandemonium")
		hub.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Shutdown error")
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	log.Info().Str("addr", addr).Msg("pandemonium listening")
	if err := app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// noopMailer satisfies user.Mailer for the gateway binary, which never triggers account mail itself but still needs
// a user.Service to read profiles for Hello/Authenticated frames.
type noopMailer struct{}

func (noopMailer) Configured() bool { return false }
func (noopMailer) SendVerification(context.Context, string, string, int) error {
	return fmt.Errorf("pandemonium does not send mail")
}
func (noopMailer) SendUserUpdated(context.Context, string, string, *string, *string, bool) error {
	return fmt.Errorf("pandemonium does not send mail")
}
func (noopMailer) SendDeleted(context.Context, string, string) error {
	return fmt.Errorf("pandemonium does not send mail")
}
func (noopMailer) SendPasswordReset(context.Context, string, string, int) error {
	return fmt.Errorf("pandemonium does not send mail")
}
