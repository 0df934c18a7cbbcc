package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"editorcore/internal/adapter/repo"
	"editorcore/internal/cache"
	"editorcore/internal/domain"
	"editorcore/internal/events"
	"editorcore/internal/http/handlers"
	httpapi "editorcore/internal/http/httpapi"
	"editorcore/internal/infra"
	"editorcore/internal/ledger"
	"editorcore/internal/providers/compute"
	"editorcore/internal/reconcile"
	"editorcore/internal/segmentation"
	"editorcore/internal/storage"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Job store: PostgreSQL when DATABASE_URL is set, otherwise embedded SQLite.
	var store domain.JobStore
	if cfg.DatabaseURL != "" {
		var pool *pgxpool.Pool
		pool, err = infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()
		store = repo.NewJobRepository(infra.NewSQLRunner(pool, logger))
		logger.Info().Msg("job store: postgres")
	} else {
		var db *sql.DB
		db, err = infra.OpenSQLite(ctx, cfg.SQLitePath, logger)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.SQLitePath).Msg("failed to open sqlite")
		}
		defer db.Close()
		store = repo.NewJobRepositorySQLite(db)
		logger.Info().Str("path", cfg.SQLitePath).Msg("job store: sqlite")
	}

	ttl := cache.TTL{Pending: cfg.CachePendingTTL, Terminal: cfg.CacheTerminalTTL}
	var jobCache cache.JobCache = cache.NewMemory(cfg.CacheSize, ttl)
	if cfg.RedisAddr != "" {
		var rdb *redis.Client
		rdb, err = infra.NewRedisClient(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		defer rdb.Close()
		jobCache = cache.Tiered{Front: jobCache, Back: cache.NewRedis(rdb, ttl)}
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			logger.Fatal().Err(err).Strs("brokers", cfg.KafkaBrokers).Msg("failed to start kafka producer")
		}
		publisher = kafka
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn().Err(err).Msg("event publisher close")
		}
	}()

	client, err := compute.NewClient(compute.Options{
		APIKey:         cfg.ComputeAPIKey,
		BaseURL:        cfg.ComputeBaseURL,
		WebhookURL:     cfg.ComputeWebhookURL,
		Logger:         &logger,
		RequestTimeout: cfg.ComputeTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure compute provider")
	}

	jobs := ledger.New(store, client,
		ledger.WithCache(jobCache),
		ledger.WithPublisher(publisher),
		ledger.WithLogger(logger),
	)

	rules, err := reconcile.LoadRules(cfg.OutputRulesPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.OutputRulesPath).Msg("failed to load output rules")
	}
	if cfg.WebhookSecret == "" {
		logger.Warn().Msg("WEBHOOK_SECRET not set; webhook signatures are not verified")
	}
	gateway := reconcile.NewGateway(jobs, compute.NewValidator(cfg.WebhookSecret), rules, logger)

	files, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.StoragePath).Msg("failed to prepare storage")
	}

	app := &handlers.App{
		Jobs:           jobs,
		Reconciler:     gateway,
		Store:          files,
		Logger:         logger,
		SegmentSize:    cfg.SegmentInputSize,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Limits: handlers.Limits{
			MaxTensorElements: cfg.MaxTensorElements,
			MaxFrameCount:     cfg.MaxFrameCount,
			MaxRegions:        cfg.MaxRegions,
			MaxImagePixels:    cfg.MaxImagePixels,
		},
		Selections: segmentation.NewSelections(cfg.MaxSelections, cfg.MaxSelectionPixels, cfg.SelectionTTL),
	}
	router := httpapi.NewRouter(app, logger, httpapi.Options{
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		StaticDir:       cfg.StoragePath,
	})

	if err := infra.NewHTTPServer(cfg, router, logger).Run(ctx); err != nil {
		logger.Error().Err(err).Msg("http server failed")
		os.Exit(1)
	}
}
