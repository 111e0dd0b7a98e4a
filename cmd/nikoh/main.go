package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/nikohapp/nikoh-api/api"
	"github.com/nikohapp/nikoh-api/internal/admin"
	"github.com/nikohapp/nikoh-api/internal/config"
	"github.com/nikohapp/nikoh-api/internal/database"
	"github.com/nikohapp/nikoh-api/internal/events"
	"github.com/nikohapp/nikoh-api/internal/identities"
	"github.com/nikohapp/nikoh-api/internal/interests"
	"github.com/nikohapp/nikoh-api/internal/matches"
	"github.com/nikohapp/nikoh-api/internal/messages"
	"github.com/nikohapp/nikoh-api/internal/payments"
	"github.com/nikohapp/nikoh-api/internal/preferences"
	"github.com/nikohapp/nikoh-api/internal/profiles"
	"github.com/nikohapp/nikoh-api/internal/reports"
	"github.com/nikohapp/nikoh-api/internal/verifications"
	"github.com/nikohapp/nikoh-api/pkg/logger"
	"github.com/nikohapp/nikoh-api/pkg/metrics"
)

func main() {
	// Load .env if present
	_ = godotenv.Load()

	log, err := logger.NewLogger(os.Getenv("LOG_LEVEL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := database.NewPostgresDB(
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime,
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	rdb, err := database.NewRedisClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		// Redis only backs caches and throttles; run without it.
		log.Warn("Redis unavailable, continuing without cache", zap.Error(err))
		rdb = nil
	}

	bus := events.NewNopBus()
	if cfg.Kafka.Enabled {
		bus = events.NewKafkaBus(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
	}
	defer bus.Close()

	identitySvc, err := identities.NewService(log, db, rdb, bus, cfg.JWT.Secret, cfg.JWT.ExpirationHours)
	if err != nil {
		log.Fatal("Failed to create identity service", zap.Error(err))
	}
	profileSvc, err := profiles.NewService(log, db)
	if err != nil {
		log.Fatal("Failed to create profile service", zap.Error(err))
	}
	interestSvc, err := interests.NewService(log, db, rdb, bus)
	if err != nil {
		log.Fatal("Failed to create interest service", zap.Error(err))
	}
	matchSvc, err := matches.NewService(log, db, rdb)
	if err != nil {
		log.Fatal("Failed to create match service", zap.Error(err))
	}
	chatHub := messages.NewHub(log)
	messageSvc, err := messages.NewService(log, db, chatHub)
	if err != nil {
		log.Fatal("Failed to create message service", zap.Error(err))
	}
	preferenceSvc, err := preferences.NewService(log, db)
	if err != nil {
		log.Fatal("Failed to create preference service", zap.Error(err))
	}

	storage, err := verifications.NewStorage(cfg.Uploads.Dir, cfg.Uploads.MaxFileSize)
	if err != nil {
		log.Fatal("Failed to create document storage", zap.Error(err))
	}
	verificationSvc, err := verifications.NewService(
		log, db, storage,
		verifications.NewHTTPOCRProvider(cfg.Verification.OCRProviderURL, cfg.Verification.OCRProviderAPIKey),
		verifications.NewHTTPFaceEngine(cfg.Verification.FaceProviderURL, cfg.Verification.FaceProviderAPIKey),
		bus,
		verifications.Settings{
			AutoEnabled:          cfg.Verification.AutoEnabled,
			AutoApproveThreshold: cfg.Verification.AutoApproveThreshold,
			AutoRejectThreshold:  cfg.Verification.AutoRejectThreshold,
			ValidityDays:         cfg.Verification.ValidityDays,
		},
	)
	if err != nil {
		log.Fatal("Failed to create verification service", zap.Error(err))
	}

	var intentProvider payments.IntentProvider
	if cfg.Payments.APIKey != "" {
		intentProvider = payments.NewHTTPIntentProvider("", cfg.Payments.APIKey)
	}
	paymentSvc, err := payments.NewService(
		log, db,
		intentProvider,
		bus,
		payments.PriceTable{
			Currency:      cfg.Payments.Currency,
			StandardPrice: cfg.Payments.StandardPrice,
			PriorityPrice: cfg.Payments.PriorityPrice,
			RenewalPrice:  cfg.Payments.RenewalPrice,
		},
		cfg.Payments.PublishableKey,
		cfg.Payments.WebhookSecret,
	)
	if err != nil {
		log.Fatal("Failed to create payment service", zap.Error(err))
	}
	reportSvc, err := reports.NewService(log, db)
	if err != nil {
		log.Fatal("Failed to create report service", zap.Error(err))
	}
	adminSvc, err := admin.NewService(log, db)
	if err != nil {
		log.Fatal("Failed to create admin service", zap.Error(err))
	}

	services := []interface{ Start() error }{
		identitySvc, profileSvc, interestSvc, matchSvc, messageSvc,
		preferenceSvc, verificationSvc, paymentSvc, reportSvc, adminSvc,
	}
	for _, svc := range services {
		if err := svc.Start(); err != nil {
			log.Fatal("Failed to start service", zap.Error(err))
		}
	}

	// Hourly sweep expiring stale interests
	expiryCtx, cancelExpiry := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				expired, err := interestSvc.ExpireOldInterests(expiryCtx)
				if err != nil {
					log.Error("Interest expiry sweep failed", zap.Error(err))
				} else if expired > 0 {
					log.Info("Expired stale interests", zap.Int64("count", expired))
				}
			case <-expiryCtx.Done():
				return
			}
		}
	}()

	// DB pool gauges
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			sqlDB, err := db.DB()
			if err != nil {
				continue
			}
			stats := sqlDB.Stats()
			metrics.DBOpenConns.WithLabelValues("postgres").Set(float64(stats.OpenConnections))
			metrics.DBIdleConns.WithLabelValues("postgres").Set(float64(stats.Idle))
			metrics.DBInUseConns.WithLabelValues("postgres").Set(float64(stats.InUse))
		}
	}()

	server, err := api.NewServer(log, cfg, api.Services{
		Identities:    identitySvc,
		Profiles:      profileSvc,
		Interests:     interestSvc,
		Matches:       matchSvc,
		Messages:      messageSvc,
		ChatHub:       chatHub,
		Preferences:   preferenceSvc,
		Verifications: verificationSvc,
		Payments:      paymentSvc,
		Reports:       reportSvc,
		Admin:         adminSvc,
	})
	if err != nil {
		log.Fatal("Failed to create API server", zap.Error(err))
	}

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := server.Start(addr); err != nil {
			log.Fatal("API server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	cancelExpiry()

	stoppers := []interface{ Stop() error }{
		adminSvc, reportSvc, paymentSvc, verificationSvc, preferenceSvc,
		messageSvc, matchSvc, interestSvc, profileSvc, identitySvc,
	}
	for _, svc := range stoppers {
		if err := svc.Stop(); err != nil {
			log.Error("Failed to stop service", zap.Error(err))
		}
	}

	log.Info("Shutdown complete")
}
