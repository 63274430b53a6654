package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"payout-gateway/config"
	httpHandler "payout-gateway/internal/adapter/http/handler"
	"payout-gateway/internal/adapter/rates"
	pgStorage "payout-gateway/internal/adapter/storage/postgres"
	redisStorage "payout-gateway/internal/adapter/storage/redis"
	"payout-gateway/internal/adapter/telegram"
	"payout-gateway/internal/core/ports"
	"payout-gateway/internal/service"
	"payout-gateway/pkg/logger"

	"github.com/shopspring/decimal"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Payout Gateway")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	if err := pgStorage.RunMigrations(cfg.Database, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	accountRepo := pgStorage.NewAccountRepo(pool)
	requestRepo := pgStorage.NewPaymentRequestRepo(pool)
	depositRepo := pgStorage.NewDepositRepo(pool)
	notifRepo := pgStorage.NewNotificationRepo(pool)
	operatorRepo := pgStorage.NewOperatorRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize outbound adapters
	rateCache := redisStorage.NewRateCache(rdb)
	rateSource := rates.NewSource(
		&http.Client{Timeout: cfg.Rates.Timeout},
		cfg.Rates.URL,
		rateCache,
		cfg.Rates.CacheTTL,
		decimal.NewFromFloat(cfg.Rates.FallbackRate),
		log,
	)
	notifier := telegram.NewNotifier(&http.Client{Timeout: 10 * time.Second}, cfg.Telegram.BotToken, log)

	// Initialize core services
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	adminVerify := service.NewConfigAdminVerifier(cfg.Admin.Password)

	// Initialize business services
	accountSvc := service.NewAccountService(accountRepo, notifRepo, notifier, transactor, log)
	paymentSvc := service.NewPaymentRequestService(
		requestRepo,
		accountRepo,
		notifRepo,
		rateSource,
		notifier,
		transactor,
		log,
	)
	depositSvc := service.NewDepositService(
		depositRepo,
		accountRepo,
		notifRepo,
		notifier,
		transactor,
		service.DepositConfig{
			MinAmount:     decimal.NewFromFloat(cfg.Deposit.MinAmount),
			MaxAmount:     decimal.NewFromFloat(cfg.Deposit.MaxAmount),
			Expiration:    cfg.Deposit.Expiration,
			WalletAddress: cfg.Deposit.WalletAddress,
		},
		log,
	)
	notifSvc := service.NewNotificationService(notifRepo)
	authSvc := service.NewAuthService(operatorRepo, hashSvc, tokenSvc, adminVerify, log)

	// Initialize rate limit store
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AccountSvc:     accountSvc,
		PaymentSvc:     paymentSvc,
		DepositSvc:     depositSvc,
		NotifSvc:       notifSvc,
		AuthSvc:        authSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		ObserverToken:  cfg.Observer.Token,
		Logger:         log,
	})

	// Deposit expiration sweeper
	sweepCtx, stopSweep := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(cfg.Deposit.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if _, err := depositSvc.ExpireOverdue(sweepCtx); err != nil {
					log.Error().Err(err).Msg("deposit expiration sweep failed")
				}
			}
		}
	}()

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
