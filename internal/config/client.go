package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ClientConfig configures the terminal client.
type ClientConfig struct {
	ServerURL string        `mapstructure:"server_url"`
	Token     string        `mapstructure:"token"`
	UserID    string        `mapstructure:"user_id"`
	Username  string        `mapstructure:"username"`
	Email     string        `mapstructure:"email"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Output    string        `mapstructure:"output"`
	Debug     bool          `mapstructure:"debug"`
	NoColor   bool          `mapstructure:"no_color"`
}

// DefaultClientPath returns $HOME/.filedrop/config.yaml, or a relative path
// when the home directory cannot be resolved.
func DefaultClientPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".filedrop", "config.yaml")
	}
	return filepath.Join(home, ".filedrop", "config.yaml")
}

// NewClientViper returns a viper instance with client defaults and
// FILEDROP_ environment binding. A missing config file is not an error.
func NewClientViper(path string) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault("server_url", "http://localhost:8000")
	v.SetDefault("timeout", "2m")
	v.SetDefault("output", "table")
	v.SetDefault("debug", false)
	v.SetDefault("no_color", false)

	v.SetEnvPrefix("FILEDROP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"token", "user_id", "username", "email"} {
		_ = v.BindEnv(key)
	}

	if path == "" {
		path = DefaultClientPath()
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return nil, err
		}
	}
	return v, nil
}

// LoadClient decodes the client configuration from v.
func LoadClient(v *viper.Viper) (*ClientConfig, error) {
	cfg := &ClientConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	return cfg, nil
}
