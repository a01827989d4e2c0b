package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the console.
type Config struct {
	Backend   Backend   `mapstructure:"backend"`
	Store     Store     `mapstructure:"store"`
	Dashboard Dashboard `mapstructure:"dashboard"`
	Logger    Logger    `mapstructure:"logger"`
}

// Backend holds the configuration for the bot service API.
type Backend struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
}

// Store holds the configuration for the local state store.
// The store keeps session tokens and the last-used bot configuration,
// exchange secret included, so the file is created owner-only.
type Store struct {
	Path string `mapstructure:"path"`
}

// Dashboard holds the configuration for the dashboard poll loop.
type Dashboard struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
// A missing config file is not an error; defaults apply.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("backend.base_url", "http://127.0.0.1:8000/api/v1")
	viper.SetDefault("backend.request_timeout", "10s")
	viper.SetDefault("backend.rate_limit", 10) // requests per second
	viper.SetDefault("backend.rate_limit_burst", 5)
	viper.SetDefault("store.path", "./data/console.db")
	viper.SetDefault("dashboard.poll_interval", "3s")
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")

	err = viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	err = viper.Unmarshal(&config)
	return
}
