package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"messaging/internal/authz"
	"messaging/internal/channel"
	"messaging/internal/config"
	"messaging/internal/observability/logging"
	"messaging/internal/observability/metrics"
	"messaging/internal/push"
	"messaging/internal/service"
	"messaging/internal/store"
	transport "messaging/internal/transport/http"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}

	logger := logging.NewLogger(logging.Config{
		ServiceName: "messaging",
		Environment: env,
		Level:       os.Getenv("LOG_LEVEL"),
	})

	slog.SetDefault(logger)
	metrics.MustRegister()

	logger.Info("starting service")

	cfg := config.Load()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		logger.Error("gorm open", "error", err)
		os.Exit(1)
	}

	st := store.New(db)
	if err := st.AutoMigrate(context.Background()); err != nil {
		logger.Error("auto migrate", "error", err)
		os.Exit(1)
	}

	svc := service.New(st, cfg.HistoryLimit)
	registry := service.NewRegistry(st, logger)

	dispatcher := buildDispatcher(cfg, logger)
	notifier := channel.NewPushNotifier(registry, dispatcher, logger)

	auth := authz.NewHMACValidator(cfg.SigningKey, cfg.Issuer)
	hub := channel.NewHub(logger)
	ws := channel.NewHandler(hub, svc, notifier, auth, logger)

	mux := transport.NewRouter(svc, registry, ws, auth, transport.Options{
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("messaging service listening", "addr", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func buildDispatcher(cfg config.Config, logger *slog.Logger) *push.Dispatcher {
	if cfg.PushGatewayURL == "" {
		logger.Warn("push gateway not configured, offline notifications disabled")
		return push.NewDispatcher(logger)
	}
	gateways := push.PlatformGateways(cfg.PushGatewayURL, cfg.PushAPIKey, cfg.PushTimeout)
	return push.NewDispatcher(logger, gateways...)
}
