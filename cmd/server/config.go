package main

import (
	"fmt"
	"log/slog"

	"github.com/yerba/yerba-api/internal/config"
)

// loadAppConfig loads the configuration from config.yaml and YERBA_*
// environment variables.
func loadAppConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// logConfig records the effective settings without secrets.
func logConfig(cfg *config.Config, logger *slog.Logger) {
	logger.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"database_driver", cfg.Database.Driver,
		"spaces_dir", cfg.Storage.SpacesDir,
		"inference_provider", cfg.Inference.Provider,
		"task_permits", cfg.Task.Permits)

	logger.Debug("secrets configured",
		"database_url_present", cfg.Database.URL != "",
		"jwt_secret_present", cfg.Auth.JWTSecret != "",
		"gemini_api_key_present", cfg.Inference.GeminiAPIKey != "")
}
