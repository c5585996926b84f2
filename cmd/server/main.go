package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	accountrepo "sso-reconciler/internal/account/repository"
	"sso-reconciler/internal/audit"
	audithandler "sso-reconciler/internal/audit/handler"
	auditrepo "sso-reconciler/internal/audit/repository"
	"sso-reconciler/internal/config"
	"sso-reconciler/internal/db"
	"sso-reconciler/internal/events"
	"sso-reconciler/internal/events/producer"
	healthhandler "sso-reconciler/internal/health/handler"
	"sso-reconciler/internal/hooks"
	"sso-reconciler/internal/logger"
	profilefieldrepo "sso-reconciler/internal/profilefield/repository"
	"sso-reconciler/internal/reconcile"
	reconcilehandler "sso-reconciler/internal/reconcile/handler"
	"sso-reconciler/internal/security"
	"sso-reconciler/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zlog := logger.New(cfg.Env)
	defer func() { _ = zlog.Sync() }()

	if cfg.DatabaseURL == "" {
		zlog.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		zlog.Fatal("db", zap.Error(err))
	}
	defer conn.Close()

	accounts := accountrepo.NewPostgresRepository(conn)
	fields := profilefieldrepo.NewPostgresRepository(conn)
	auditRepo := auditrepo.NewPostgresRepository(conn)
	auditLogger := audit.NewLogger(auditRepo, server.ClientIP, zlog)

	var emitter reconcile.EventEmitter = events.Noop{}
	kafkaProducer := producer.NewKafkaProducer(cfg.EventsKafkaBrokersList(), cfg.EventsKafkaTopic, zlog)
	if kafkaProducer != nil {
		emitter = kafkaProducer
		defer func() { _ = kafkaProducer.Close() }()
		zlog.Info("account events enabled", zap.String("topic", cfg.EventsKafkaTopic))
	}

	svc := reconcile.NewService(
		accounts, fields, emitter, auditLogger,
		security.NewHasher(cfg.BcryptCost),
		cfg.AccountMatcher,
		reconcile.Policy{
			AutoCreate:    cfg.AutoCreate,
			AutoUpdate:    cfg.AutoUpdate,
			TriggerEvents: cfg.TriggerEvents,
		},
		cfg.EnabledAuthMethodsList(),
		zlog,
	)

	methods := make([]hooks.AuthMethod, 0, len(cfg.EnabledAuthMethodsList()))
	for _, name := range cfg.EnabledAuthMethodsList() {
		methods = append(methods, hooks.NewLoggingMethod(name, zlog))
	}
	hookRegistry := hooks.NewRegistry(zlog, methods...)

	router := server.NewRouter(server.Deps{
		Reconcile: reconcilehandler.NewHandler(svc, hookRegistry, zlog),
		Health:    healthhandler.NewHandler(conn),
		Audit:     audithandler.NewHandler(auditRepo),
		Log:       zlog,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("shutdown", zap.Error(err))
	}
	zlog.Info("HTTP server stopped")
}
