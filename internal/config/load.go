package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g.
// YERBA_DATABASE_URL for database.url.
const EnvPrefix = "YERBA"

// Load configuration from environment variables and optionally a
// config.yaml in the working directory or /etc/yerba.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/yerba")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// setDefaults registers every key so AutomaticEnv can resolve it during
// Unmarshal, even keys without a meaningful default.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", "")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_lifetime_minutes", 1440)

	v.SetDefault("storage.spaces_dir", "./spaces")
	v.SetDefault("storage.max_upload_mb", 512)

	v.SetDefault("events.backlog", 1024)

	v.SetDefault("task.permits", 100)
	v.SetDefault("task.poll_interval_ms", 100)
	v.SetDefault("task.stable_for_ms", 1000)
	v.SetDefault("task.history_window", 10)
	v.SetDefault("task.prune_finished", true)

	v.SetDefault("inference.provider", "http")
	v.SetDefault("inference.base_url", "http://localhost:5001")
	v.SetDefault("inference.timeout_seconds", 120)
	v.SetDefault("inference.gemini_api_key", "")
	v.SetDefault("inference.gemini_model", "gemini-2.0-flash")
	v.SetDefault("inference.max_retries", 3)
	v.SetDefault("inference.retry_delay_seconds", 2)
	v.SetDefault("inference.ollama_host", "http://localhost:11434")
	v.SetDefault("inference.ollama_model", "llama3.2")
}
