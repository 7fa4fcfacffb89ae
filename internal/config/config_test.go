package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.ServicePort)
	assert.Equal(t, int64(1024*1024), cfg.GetChunkSizeBytes())
	assert.Equal(t, 7, cfg.ShareTTLDays)
	assert.Equal(t, "localhost:6379", cfg.GetRedisAddr())
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "root:@tcp(localhost:4000)/filedrop?charset=utf8mb4&parseTime=True&loc=UTC", cfg.GetDSN())
}

func TestLoadConfig_Env(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVICE_PORT", "9090")
	t.Setenv("CHUNK_SIZE_MB", "4")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("PUBLIC_BASE_URL", "https://files.example.com/")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.ServicePort)
	assert.Equal(t, int64(4*1024*1024), cfg.GetChunkSizeBytes())
	assert.Equal(t, "memory", cfg.StorageDriver)
	assert.Equal(t, "https://files.example.com", cfg.PublicBaseURL)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SHARE_TTL_DAYS=3\n"), 0o600))
	t.Setenv("SHARE_TTL_DAYS", "")
	os.Unsetenv("SHARE_TTL_DAYS")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.ShareTTLDays)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("STORAGE_DRIVER", "sqlite")
	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("TRACE_SAMPLE_RATIO", "1.5")
	_, err = LoadConfig()
	assert.Error(t, err)
}

func TestClientConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server_url: http://files.local:8000/\ntimeout: 30s\nusername: ann\n"), 0o600))
	t.Setenv("FILEDROP_TOKEN", "secret")

	v, err := NewClientViper(path)
	require.NoError(t, err)
	cfg, err := LoadClient(v)
	require.NoError(t, err)

	assert.Equal(t, "http://files.local:8000", cfg.ServerURL)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, "ann", cfg.Username)
	assert.Equal(t, "secret", cfg.Token)
	assert.Equal(t, "table", cfg.Output)
}

func TestClientConfig_MissingFile(t *testing.T) {
	v, err := NewClientViper(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	cfg, err := LoadClient(v)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.ServerURL)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
}
