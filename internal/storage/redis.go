package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/maneesh/filedrop/internal/models"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultCacheTTL bounds how long a file's metadata is served from Redis.
const DefaultCacheTTL = 5 * time.Minute

// RedisOptions configures the metadata cache.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// TTL defaults to DefaultCacheTTL.
	TTL time.Duration
}

// RedisClient is the read-through cache in front of TiDB file lookups.
// Entries are JSON-encoded models.File under filedrop:file:{id}.
type RedisClient struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient connects to Redis and pings it.
func NewRedisClient(ctx context.Context, opts RedisOptions) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis at %s: %w", opts.Addr, err)
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisClient{client: client, ttl: ttl}, nil
}

// Close closes the connection pool.
func (rc *RedisClient) Close() error {
	return rc.client.Close()
}

func cacheKey(fileID string) string {
	return "filedrop:file:" + fileID
}

// GetFileMetadata returns the cached file, or (nil, nil) on a miss.
func (rc *RedisClient) GetFileMetadata(ctx context.Context, fileID string) (file *models.File, err error) {
	ctx, span := tracer.Start(ctx, "redis.get_file", trace.WithAttributes(attribute.String("file_id", fileID)))
	defer func() { endSpan(span, err) }()

	data, err := rc.client.Get(ctx, cacheKey(fileID)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		span.SetAttributes(attribute.Bool("cache_hit", false))
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read cached file %s: %w", fileID, err)
	}

	file = &models.File{}
	if err := json.Unmarshal(data, file); err != nil {
		// Drop entries written by an incompatible version.
		rc.client.Del(ctx, cacheKey(fileID))
		return nil, fmt.Errorf("failed to decode cached file %s: %w", fileID, err)
	}
	span.SetAttributes(attribute.Bool("cache_hit", true))
	return file, nil
}

// SetFileMetadata caches file for the configured TTL.
func (rc *RedisClient) SetFileMetadata(ctx context.Context, fileID string, file *models.File) (err error) {
	ctx, span := tracer.Start(ctx, "redis.set_file", trace.WithAttributes(
		attribute.String("file_id", fileID),
		attribute.String("ttl", rc.ttl.String()),
	))
	defer func() { endSpan(span, err) }()

	data, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to encode file %s: %w", fileID, err)
	}
	if err := rc.client.Set(ctx, cacheKey(fileID), data, rc.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache file %s: %w", fileID, err)
	}
	return nil
}

// InvalidateFileMetadata drops the cached entry for fileID.
func (rc *RedisClient) InvalidateFileMetadata(ctx context.Context, fileID string) (err error) {
	ctx, span := tracer.Start(ctx, "redis.invalidate_file", trace.WithAttributes(attribute.String("file_id", fileID)))
	defer func() { endSpan(span, err) }()

	if err := rc.client.Del(ctx, cacheKey(fileID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate file %s: %w", fileID, err)
	}
	return nil
}
