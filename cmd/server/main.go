package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maneesh/filedrop/internal/chunker"
	"github.com/maneesh/filedrop/internal/config"
	"github.com/maneesh/filedrop/internal/handlers"
	"github.com/maneesh/filedrop/internal/storage"
	"github.com/maneesh/filedrop/internal/storage/memstore"
	"github.com/maneesh/filedrop/internal/tracing"
	"github.com/maneesh/filedrop/internal/validate"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := config.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting file API",
		slog.String("service", cfg.ServiceName),
		slog.String("port", cfg.ServicePort),
		slog.String("storage", cfg.StorageDriver),
	)

	shutdownTracer, err := tracing.InitTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint, cfg.TraceRatio)
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(ctx); err != nil {
			logger.Warn("error shutting down tracer", slog.String("error", err.Error()))
		}
	}()

	stores, closeStores, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStores()

	router := handlers.NewRouter(stores, handlers.RouterConfig{
		Chunker:      chunker.NewChunker(cfg.GetChunkSizeBytes(), validate.MaxFileSize),
		URLs:         handlers.URLs{Base: cfg.PublicBaseURL},
		FetchWorkers: cfg.FetchWorkers,
		ShareTTLDays: cfg.ShareTTLDays,
	}, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.ServicePort,
		Handler:      router,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server exited")
	return nil
}

// openStores connects the configured storage backends.
func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (handlers.Stores, func(), error) {
	if cfg.StorageDriver == "memory" {
		logger.Warn("using in-memory storage; data is lost on exit")
		mem := memstore.New()
		return handlers.Stores{Blobs: mem, Meta: mem, Cache: mem}, func() {}, nil
	}

	minioClient, err := storage.NewMinioClient(ctx, storage.MinioOptions{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		Bucket:    cfg.MinIOBucketName,
		UseSSL:    cfg.MinIOUseSSL,
	}, logger)
	if err != nil {
		return handlers.Stores{}, nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}
	logger.Info("MinIO client initialized", slog.String("endpoint", cfg.MinIOEndpoint))

	tidbClient, err := storage.NewTiDBClient(ctx, cfg.GetDSN())
	if err != nil {
		return handlers.Stores{}, nil, fmt.Errorf("failed to initialize TiDB client: %w", err)
	}
	logger.Info("TiDB client initialized", slog.String("host", cfg.TiDBHost))

	redisClient, err := storage.NewRedisClient(ctx, storage.RedisOptions{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.CacheTTL,
	})
	if err != nil {
		tidbClient.Close()
		return handlers.Stores{}, nil, fmt.Errorf("failed to initialize Redis client: %w", err)
	}
	logger.Info("Redis client initialized", slog.String("addr", cfg.GetRedisAddr()))

	closeAll := func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("error closing Redis", slog.String("error", err.Error()))
		}
		if err := tidbClient.Close(); err != nil {
			logger.Warn("error closing TiDB", slog.String("error", err.Error()))
		}
	}
	return handlers.Stores{Blobs: minioClient, Meta: tidbClient, Cache: redisClient}, closeAll, nil
}
