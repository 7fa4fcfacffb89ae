package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the file API server configuration
type Config struct {
	// Service configuration
	ServicePort   string
	ServiceName   string
	PublicBaseURL string
	ChunkSizeMB   int
	ShareTTLDays  int
	FetchWorkers  int
	LogLevel      string
	LogFormat     string
	StorageDriver string

	// MinIO configuration
	MinIOEndpoint   string
	MinIOAccessKey  string
	MinIOSecretKey  string
	MinIOBucketName string
	MinIOUseSSL     bool

	// TiDB configuration
	TiDBHost     string
	TiDBPort     string
	TiDBUser     string
	TiDBPassword string
	TiDBDatabase string

	// Redis configuration
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// Tracing configuration
	OTLPEndpoint string
	TraceRatio   float64
}

// LoadConfig loads configuration from environment variables with sensible
// defaults. A .env file in the working directory is read first when present.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	config := &Config{
		ServicePort:   getEnv("SERVICE_PORT", "8000"),
		ServiceName:   getEnv("SERVICE_NAME", "filedrop-api"),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),
		ChunkSizeMB:   getEnvAsInt("CHUNK_SIZE_MB", 1),
		ShareTTLDays:  getEnvAsInt("SHARE_TTL_DAYS", 7),
		FetchWorkers:  getEnvAsInt("FETCH_WORKERS", 8),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
		StorageDriver: getEnv("STORAGE_DRIVER", "tidb"),

		MinIOEndpoint:   getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinIOAccessKey:  getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinIOSecretKey:  getEnv("MINIO_SECRET_KEY", "minioadmin"),
		MinIOBucketName: getEnv("MINIO_BUCKET_NAME", "filedrop"),
		MinIOUseSSL:     getEnvAsBool("MINIO_USE_SSL", false),

		TiDBHost:     getEnv("TIDB_HOST", "localhost"),
		TiDBPort:     getEnv("TIDB_PORT", "4000"),
		TiDBUser:     getEnv("TIDB_USER", "root"),
		TiDBPassword: getEnv("TIDB_PASSWORD", ""),
		TiDBDatabase: getEnv("TIDB_DATABASE", "filedrop"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		CacheTTL:      time.Duration(getEnvAsInt("CACHE_TTL_SECONDS", 300)) * time.Second,

		OTLPEndpoint: getEnv("OTLP_ENDPOINT", "localhost:4318"),
		TraceRatio:   getEnvAsFloat("TRACE_SAMPLE_RATIO", 1.0),
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.ChunkSizeMB <= 0 {
		return fmt.Errorf("CHUNK_SIZE_MB must be positive, got %d", c.ChunkSizeMB)
	}
	if c.FetchWorkers <= 0 {
		return fmt.Errorf("FETCH_WORKERS must be positive, got %d", c.FetchWorkers)
	}
	switch c.StorageDriver {
	case "tidb", "memory":
	default:
		return fmt.Errorf("STORAGE_DRIVER must be tidb or memory, got %q", c.StorageDriver)
	}
	if c.TraceRatio < 0 || c.TraceRatio > 1 {
		return fmt.Errorf("TRACE_SAMPLE_RATIO must be within [0,1], got %v", c.TraceRatio)
	}
	return nil
}

// GetDSN returns the TiDB connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.TiDBUser,
		c.TiDBPassword,
		c.TiDBHost,
		c.TiDBPort,
		c.TiDBDatabase,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// GetChunkSizeBytes returns chunk size in bytes
func (c *Config) GetChunkSizeBytes() int64 {
	return int64(c.ChunkSizeMB) * 1024 * 1024
}

// SetupLogger builds the process logger from LogLevel and LogFormat.
func SetupLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}
