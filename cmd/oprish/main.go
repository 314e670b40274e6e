// Command oprish runs the REST API service: accounts, sessions, and message fan-out.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/eludris-go/eludris/internal/api"
	"github.com/eludris-go/eludris/internal/auth"
	"github.com/eludris-go/eludris/internal/config"
	"github.com/eludris-go/eludris/internal/email"
	"github.com/eludris-go/eludris/internal/events"
	"github.com/eludris-go/eludris/internal/httputil"
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

	log.Info().Str("instance", cfg.InstanceName).Str("env", cfg.ServerEnv).Msg("Starting oprish")

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
	authRepo := auth.NewRepository(db)
	authService := auth.NewService(authRepo, ids, instanceSecret, password)

	var mailer *email.Mailer
	if cfg.Email != nil {
		host, port, err := splitRelay(cfg.Email.Relay)
		if err != nil {
			return fmt.Errorf("parse email.relay: %w", err)
		}
		from := fmt.Sprintf("%s <%s>", cfg.Email.Name, cfg.Email.Address)
		client := email.NewClient(host, port, credUsername(cfg.Email), credPassword(cfg.Email), from)
		mailer = email.NewMailer(client, email.Subjects(cfg.Email.Subjects))
		log.Info().Str("relay", cfg.Email.Relay).Msg("Email configured")
	} else {
		mailer = email.NewMailer(nil, email.Subjects{})
		log.Warn().Msg("No [email] table configured; verification and password reset are disabled")
	}

	publisher := events.NewPublisher(rdb)
	presenceStore := presence.NewStore(rdb)
	hasher := auth.NewPasswordHasher(password)

	userRepo := user.NewRepository(db, log.Logger)
	userService := user.NewService(userRepo, ids, rdb, publisher, hasher, mailer, cfg.Oprish.BioLimit)

	limiter := ratelimit.New(rdb, cfg.Buckets())

	handlers := &api.Handlers{
		Instance: &api.InstanceHandler{Config: cfg},
		User:     &api.UserHandler{Users: userService, Presence: presenceStore},
		Session:  &api.SessionHandler{Sessions: authService, Presence: presenceStore, Events: publisher},
		Message:  &api.MessageHandler{Users: userService, Events: publisher, ContentSize: cfg.Oprish.MessageLimit},
		Health:   &api.HealthHandler{DB: db, Cache: rdb},
	}

	app := fiber.New(fiber.Config{
		AppName:      "oprish",
		ErrorHandler: httputil.ErrorHandler,
	})

	app.Use(requestid.New())
	app.Use(httputil.RequestLogger(log.Logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Split(corsOrigins(), ","),
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"X-RateLimit-Reset", "X-RateLimit-Max", "X-RateLimit-Last-Reset", "X-RateLimit-Request-Count"},
	}))

	api.RegisterRoutes(app, handlers, limiter, authService)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Info().Msg("Shutting down oprish")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Shutdown error")
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	log.Info().Str("addr", addr).Msg("oprish listening")
	if err := app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// corsOrigins reads CORS_ALLOW_ORIGINS, defaulting to "*" for development instances. Production deployments should
// set this explicitly.
func corsOrigins() string {
	if v := os.Getenv("CORS_ALLOW_ORIGINS"); v != "" {
		return v
	}
	return "*"
}

// splitRelay parses a "host:port" email.relay value.
func splitRelay(relay string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(relay)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	return host, port, nil
}

func credUsername(e *config.EmailConf) string {
	if e.Credentials == nil {
		return ""
	}
	return e.Credentials.Username
}

func credPassword(e *config.EmailConf) string {
	if e.Credentials == nil {
		return ""
	}
	return e.Credentials.Password
}
