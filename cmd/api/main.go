package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/steamgems/backend/internal/api/handlers"
	"github.com/steamgems/backend/internal/cache/redis"
	"github.com/steamgems/backend/internal/classifier"
	"github.com/steamgems/backend/internal/metrics"
	"github.com/steamgems/backend/internal/middleware/ratelimit"
	"github.com/steamgems/backend/internal/middleware/security"
	"github.com/steamgems/backend/internal/middleware/validation"
	"github.com/steamgems/backend/internal/rankings"
	"github.com/steamgems/backend/internal/similarity"
	"github.com/steamgems/backend/internal/steam"
	"github.com/steamgems/backend/internal/storage/sqlite"
	"github.com/steamgems/backend/pkg/config"
	appLogger "github.com/steamgems/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Steam Gems API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var responseCache handlers.ResponseCache
	var invalidator handlers.CacheInvalidator
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis unavailable, similarity responses will not be cached", zap.Error(err))
		} else {
			defer redisClient.Close()
			responseCache = redisClient
			invalidator = redisClient
		}
	}

	steamClient := steam.NewClient(
		cfg.Steam.StoreBaseURL,
		cfg.Steam.ReviewsBaseURL,
		time.Duration(cfg.Steam.TimeoutSec)*time.Second,
		cfg.Steam.FreshnessMinutes,
		sqliteClient,
	)

	classifierClient := classifier.NewClient(
		cfg.Classifier.BaseURL,
		cfg.Classifier.APIKey,
		cfg.Classifier.Model,
		cfg.Classifier.Temperature,
		cfg.Classifier.MaxTokens,
		cfg.Classifier.TimeoutSec,
	)

	aggregator := rankings.NewAggregator(
		sqliteClient,
		steamClient,
		classifierClient,
		rankings.DefaultCandidates(),
		cfg.Rankings.CacheMaxAgeHours,
	)

	engine := similarity.NewEngine(sqliteClient)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.Server.RateLimit,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.Headers())
	app.Use(validation.RequireJSON())
	app.Use(limiter.Middleware())

	rankingsHandler := handlers.NewRankingsHandler(aggregator, invalidator)
	similarHandler := handlers.NewSimilarHandler(engine, responseCache, time.Duration(cfg.Redis.TTLSec)*time.Second)
	gamesHandler := handlers.NewGamesHandler(steamClient)
	analyzeHandler := handlers.NewAnalyzeHandler(classifierClient)

	api := app.Group("/api/v1")

	api.Get("/rankings", rankingsHandler.GetRankings)
	api.Post("/similar", similarHandler.FindSimilar)
	api.Post("/games", gamesHandler.GetOrCreate)
	api.Post("/analyze", analyzeHandler.Analyze)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		if err := sqliteClient.Ping(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unavailable",
			})
		}
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
