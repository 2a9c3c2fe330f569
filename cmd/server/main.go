// Package main is the entry point for the application.
// It initializes all dependencies, sets up the HTTP server,
// and starts the application.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cardledger/internal/config"
	"cardledger/internal/handlers"
	"cardledger/internal/middleware"
	"cardledger/internal/repositories"
	"cardledger/internal/repositories/cache"
	"cardledger/internal/routes"
	"cardledger/internal/scheduler"
	"cardledger/internal/services/auth"
	"cardledger/internal/services/card"
	"cardledger/internal/services/ledger"
	"cardledger/internal/services/limit"
	"cardledger/internal/services/query"
	"cardledger/internal/services/user"
	"cardledger/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	log := config.NewLogger(cfg)

	db, err := repositories.InitDB(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("database initialization failed")
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.WithError(err).Fatal("failed to get database instance")
	}

	cacheService := cache.NewCacheService(cache.NewRedisClient(&cache.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}), cfg.CacheTTL, cfg.CardCacheTTL)
	if err := cacheService.HealthCheck(context.Background()); err != nil {
		log.WithError(err).Warn("redis unavailable, card reads fall back to postgres")
	}

	tokens, err := utils.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)
	if err != nil {
		log.WithError(err).Fatal("token issuer")
	}
	cipher, err := utils.NewCardCipher(cfg.CardEncryptionKey)
	if err != nil {
		log.WithError(err).Fatal("card cipher")
	}

	// Repositories
	cardRepo := repositories.NewCardRepository(db, cfg.LockTimeout)
	txRepo := repositories.NewTransactionRepository(db)
	userRepo := repositories.NewUserRepository(db, cacheService, log)

	// Services
	limitService := limit.NewService(cardRepo, cacheService, limit.Config{
		Policy:    limit.Policy(cfg.LimitResetPolicy),
		BatchSize: cfg.ResetBatchSize,
	}, log)
	ledgerService := ledger.NewService(
		cardRepo,
		limitService,
		cacheService,
		ledger.Config{},
		&ledger.LogMetricsCollector{Log: log.WithField("component", "metrics")},
		log,
	)
	queryService := query.NewService(cardRepo, txRepo)
	cardService := card.NewService(cardRepo, userRepo, cipher, cacheService, nil, log.WithField("component", "card"))
	authService := auth.NewService(userRepo, tokens, log.WithField("component", "auth"))
	userService := user.NewService(userRepo, cardRepo, cacheService, log)

	sweeps, err := scheduler.New(limitService, scheduler.Config{
		DailySpec:   cfg.DailyResetCron,
		MonthlySpec: cfg.MonthlyResetCron,
	}, log.WithField("component", "scheduler"))
	if err != nil {
		log.WithError(err).Fatal("scheduler setup failed")
	}
	sweeps.Start()

	app := fiber.New(fiber.Config{
		AppName:      "cardledger",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 40 * time.Second,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: config.GetEnv("CORS_ORIGINS", "http://localhost:5173"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
	}))
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	authLimiter := limiter.New(limiter.Config{
		Max:        5,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		},
	})
	app.Use("/api/auth/register", authLimiter)
	app.Use("/api/auth/login", authLimiter)

	routes.SetupRoutes(app, routes.Handlers{
		Auth:        handlers.NewAuthHandler(authService, log.WithField("component", "http")),
		Cards:       handlers.NewCardHandler(cardService, queryService),
		Transaction: handlers.NewTransactionHandler(ledgerService, queryService),
		Transfer:    handlers.NewTransferHandler(ledgerService),
		Admin:       handlers.NewAdminHandler(userService, queryService, limitService, sweeps),
		Health: handlers.NewHealthHandler(map[string]handlers.Check{
			"database": sqlDB.PingContext,
			"redis":    cacheService.HealthCheck,
		}),
	}, middleware.NewAuthMiddleware(authService, log.WithField("component", "auth")))

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.WithError(err).Fatal("server stopped")
		}
	}()
	log.WithField("port", cfg.Port).Info("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	shutdown(app, sweeps, cacheService, sqlDB.Close, log)
}

func shutdown(app *fiber.App, sweeps *scheduler.Scheduler, cacheService *cache.CacheService, closeDB func() error, log logrus.FieldLogger) {
	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	if err := sweeps.Stop(ctx); err != nil {
		log.WithError(err).Warn("scheduler did not stop in time")
	}
	if err := cacheService.Close(); err != nil {
		log.WithError(err).Warn("failed to close redis connection")
	}
	if err := closeDB(); err != nil {
		log.WithError(err).Warn("failed to close database connection")
	}
}
