package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"

	"recipe-service/internal/api/handlers"
	"recipe-service/internal/api/routes"
	"recipe-service/internal/middleware"
	"recipe-service/internal/utils"
	applog "recipe-service/internal/utils/logger"
	"recipe-service/internal/utils/queue"
	"recipe-service/internal/utils/storage"
	"recipe-service/internal/utils/webhook"
	"recipe-service/pkg/feed"
	"recipe-service/pkg/health"
	"recipe-service/pkg/media"
	"recipe-service/pkg/recipe"
	"recipe-service/pkg/upload"
)

// Dependencies are the shared clients built once per process and handed to
// the HTTP app and the media worker.
type Dependencies struct {
	Config         utils.Config
	DB             *gorm.DB
	Log            *applog.Logger
	RawStore       *storage.AwsS3
	ProcessedStore *storage.AwsS3
	Queue          queue.JobQueue
}

func NewDependencies(ctx context.Context, cfg utils.Config, db *gorm.DB, log *applog.Logger) (*Dependencies, error) {
	rawStore, err := storage.NewAwsS3(ctx, s3Options(cfg, cfg.AWSS3RawBucket))
	if err != nil {
		return nil, fmt.Errorf("raw bucket: %w", err)
	}
	processedStore, err := storage.NewAwsS3(ctx, s3Options(cfg, cfg.AWSS3ProcessedBucket))
	if err != nil {
		return nil, fmt.Errorf("processed bucket: %w", err)
	}
	jobs, err := queue.NewRedisQueue(ctx, queue.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Name:     cfg.QueueName,
	})
	if err != nil {
		return nil, err
	}

	return &Dependencies{
		Config:         cfg,
		DB:             db,
		Log:            log,
		RawStore:       rawStore,
		ProcessedStore: processedStore,
		Queue:          jobs,
	}, nil
}

func NewApp(deps *Dependencies) (*fiber.App, error) {
	cfg := deps.Config
	utils.InitValidator()
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	middlewares := middleware.NewMiddleware(cfg.CORSOrigins)
	validator := utils.Validate

	// setting up access log and limiter; both run after the request id middleware
	var out io.Writer = os.Stdout
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), os.ModePerm); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		file, err := os.OpenFile(cfg.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out = file
	}
	accessLog := logger.New(logger.Config{
		Format:     "${time} | ${locals:" + middleware.CorrelationLocalsKey + "} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "UTC",
		Output:     out,
	})

	var rateLimit fiber.Handler
	if cfg.RateLimit > 0 {
		rateLimit = limiter.New(limiter.Config{
			Max:        cfg.RateLimit,
			Expiration: 1 * time.Second,
		})
	}

	// moderation webhook is optional
	var notifier recipe.ModerationNotifier
	if cfg.ModerationWebhookURL != "" {
		n, err := webhook.NewNotifier(webhook.Options{
			URL:     cfg.ModerationWebhookURL,
			Timeout: cfg.WebhookTimeout,
		}, deps.Log)
		if err != nil {
			return nil, err
		}
		notifier = n
	}

	// Repository
	recipeRepository := recipe.NewRecipeRepository(deps.DB)
	feedRepository := feed.NewFeedRepository(deps.DB)

	// Service
	recipeService := recipe.NewRecipeService(
		recipeRepository,
		feedRepository,
		deps.Queue,
		deps.RawStore,
		deps.ProcessedStore,
		notifier,
		deps.Log,
	)
	feedService := feed.NewFeedService(feedRepository)
	uploadService := upload.NewUploadService(deps.RawStore, cfg.UploadURLTTL)
	healthService := health.NewHealthService(map[string]health.Check{
		"database": health.DatabaseCheck(deps.DB),
		"queue":    health.PingCheck(deps.Queue),
	}, cfg.AppVersion, cfg.CommitSHA, cfg.BuildTime)

	// Handler
	recipeHandler := handlers.NewRecipeHandler(recipeService, validator)
	feedHandler := handlers.NewFeedHandler(feedService, validator)
	uploadHandler := handlers.NewUploadHandler(uploadService, validator)
	healthHandler := handlers.NewHealthHandler(healthService)

	// routes
	routesConfig := routes.Config{
		App:           app,
		RecipeHandler: recipeHandler,
		FeedHandler:   feedHandler,
		UploadHandler: uploadHandler,
		HealthHandler: healthHandler,
		Middleware:    middlewares,
		AccessLog:     accessLog,
		RateLimit:     rateLimit,
	}
	routesConfig.Setup()
	return app, nil
}

func NewWorker(deps *Dependencies) *media.MediaWorker {
	cfg := deps.Config
	processor := media.NewMediaProcessor(
		deps.RawStore,
		deps.ProcessedStore,
		media.NewImageDeriver(),
		recipe.NewRecipeRepository(deps.DB),
		feed.NewFeedRepository(deps.DB),
		deps.Log,
	)
	return media.NewMediaWorker(deps.Queue, processor, deps.Log, media.WorkerOptions{
		Concurrency:    cfg.WorkerConcurrency,
		MaxAttempts:    cfg.WorkerMaxAttempts,
		JobTimeout:     cfg.JobTimeout,
		DequeueTimeout: cfg.DequeueTimeout,
	})
}

func s3Options(cfg utils.Config, bucket string) storage.S3Options {
	return storage.S3Options{
		Bucket:    bucket,
		Region:    cfg.AWSS3Region,
		Endpoint:  cfg.AWSS3Endpoint,
		PublicURL: cfg.AWSS3PublicURL,
		AccessKey: cfg.AWSAccessKey,
		SecretKey: cfg.AWSSecretKey,
	}
}
