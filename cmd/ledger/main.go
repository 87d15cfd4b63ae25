package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/auth"
	"ledger/internal/cache"
	"ledger/internal/cli"
	"ledger/internal/config"
	"ledger/internal/core"
	apphttp "ledger/internal/http"
	"ledger/internal/log"
	"ledger/internal/services"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup always happens.
func run() int {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig((*config.Config).ValidateServer)
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	logger.Info("Starting ledger API", log.FieldOperation, log.OpStartup)

	startCtx, cancelStart := context.WithTimeout(context.Background(), time.Minute)
	store := cli.OpenStore(startCtx, logger, cfg)
	cancelStart()
	defer store.Close()

	verifier, err := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
	if err != nil {
		logger.Error("Failed to initialize token verifier", log.FieldError, err)
		return 1
	}

	// User identities are cached in Redis when it is configured so every
	// replica shares them; otherwise in process.
	cacheManager := cache.NewManager()
	var userCache cache.Cache[core.User]
	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(context.Background(), cfg.RedisURL)
		if err != nil {
			logger.Error("Failed to connect to Redis", log.FieldError, err)
			return 1
		}
		defer client.Close()
		userCache = cache.NewRedisCache[core.User](client, "ledger:user:", cfg.UserCacheTTL)
		logger.Info("User cache backed by Redis")
	} else {
		lru := cache.NewLRUCache[core.User](cfg.UserCacheSize, cfg.UserCacheTTL)
		cacheManager.Register(lru)
		userCache = lru
	}
	cacheManager.StartCleanup(time.Minute)
	defer cacheManager.Stop()

	// Events are optional for the API: without a broker nothing is mirrored.
	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - transaction events will not be published")
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:     ":" + cfg.Port,
		Logger:   logger,
		Verifier: verifier,
		DB:       store,
		Services: apphttp.Services{
			Users:        services.NewUserService(store, userCache),
			Wallets:      services.NewWalletService(store),
			Transactions: services.NewTransactionService(store, publisher),
			Categories:   services.NewTaxonomyService(store, core.KindCategory),
			Tags:         services.NewTaxonomyService(store, core.KindTag),
		},
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	})

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Listening", "addr", srv.Addr, "driver", cfg.DBDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		return 1
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
	return 0
}
