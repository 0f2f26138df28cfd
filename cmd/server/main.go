// Command server runs the reminder backend: the HTTP API with the WhatsApp
// webhook, the reminder dispatcher, and the recurring-event instance
// generator, all over a managed database connection pool.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/remindly/go-reminder-backend/internal/config"
	"github.com/remindly/go-reminder-backend/internal/dbpool"
	httpapi "github.com/remindly/go-reminder-backend/internal/http"
	"github.com/remindly/go-reminder-backend/internal/logging"
	"github.com/remindly/go-reminder-backend/internal/observability"
	"github.com/remindly/go-reminder-backend/internal/repo"
	"github.com/remindly/go-reminder-backend/internal/services"
	"github.com/remindly/go-reminder-backend/internal/whatsapp"
	"github.com/remindly/go-reminder-backend/internal/worker"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	// Load .env in development; absence is fine in production.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	root := logging.Setup(cfg)
	log := logging.Module(root, "main")
	log.Info().Msgf("starting go-reminder-backend %s on port %s", version, cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing (no-op unless OTEL_ENABLED).
	shutdownTracing, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Warn().Msgf("tracing setup failed: %v", err)
		shutdownTracing = func(context.Context) error { return nil }
	}

	// Database: shared GORM handle for migrations, then the managed pool
	// every request and worker borrows from.
	db, err := repo.Open(ctx, &cfg, logging.Module(root, "database"))
	if err != nil {
		logging.Critical(&log).Msgf("database open failed: %v", err)
		os.Exit(1)
	}
	if err := repo.AutoMigrate(db); err != nil {
		logging.Critical(&log).Msgf("migration failed: %v", err)
		os.Exit(1)
	}

	var factory dbpool.Factory
	if cfg.UseMySQL() {
		sqlDB, err := db.DB()
		if err != nil {
			logging.Critical(&log).Msgf("database handle unavailable: %v", err)
			os.Exit(1)
		}
		defer sqlDB.Close()
		factory = repo.NewMySQLFactory(sqlDB)
	} else {
		factory = repo.NewSQLiteFactory(cfg.DBPath)
	}

	pool := dbpool.New(factory, dbpool.Options{
		Capacity:       cfg.Pool.Size + cfg.Pool.Overflow,
		AcquireTimeout: cfg.Pool.AcquireTimeout,
		ConnMaxAge:     cfg.Pool.ConnMaxAge,
		PingRetries:    cfg.Pool.PingRetries,
	}, logging.Module(root, "dbpool"))
	defer pool.Close()

	uow := repo.NewUnitOfWork(pool, logging.Module(root, "repo"))

	// WhatsApp client. The webhook registration is best-effort: the service
	// still comes up when Green API is unreachable at boot.
	wa, err := whatsapp.NewClient(cfg.GreenAPI, logging.Module(root, "whatsapp"))
	if err != nil {
		logging.Critical(&log).Msgf("whatsapp client: %v", err)
		os.Exit(1)
	}
	if cfg.WebhookURL != "" {
		setupCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		if err := wa.SetupWebhook(setupCtx, cfg.WebhookURL, cfg.WebhookToken); err != nil {
			log.Warn().Msgf("webhook registration failed: %v", err)
		}
		cancel()
	}

	// HTTP transport.
	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, uow, wa, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	// Background loops.
	reminders := services.NewReminderService(uow, wa, cfg.Reminder, logging.Module(root, "reminders"))
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		worker.NewReminderWorker(reminders, cfg.Reminder.Interval, logging.Module(root, "worker")).Run(ctx)
	}()
	go func() {
		defer wg.Done()
		events := services.NewEventService(uow)
		worker.NewInstanceWorker(uow, events, 24*time.Hour, cfg.Reminder.InstanceHorizon, logging.Module(root, "worker")).Run(ctx)
	}()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Critical(&log).Msgf("http server: %v", err)
			stop()
		}
	}()
	log.Info().Msgf("listening on :%s", cfg.Port)

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Msgf("http shutdown: %v", err)
	}
	wg.Wait()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn().Msgf("tracing shutdown: %v", err)
	}
	log.Info().Msg("stopped")
}
