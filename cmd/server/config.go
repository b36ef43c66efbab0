package main

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-cue/internal/config"
)

// loadAppConfig loads the application configuration from path, or from
// ./config.yaml and the environment when path is empty. A ./.env file, if
// present, seeds the environment first.
func loadAppConfig(path string) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"storage_backend", cfg.Storage.Backend,
		"algorithm", cfg.Review.Algorithm)

	if cfg.Auth.JWTSecret != "" {
		slog.Debug("Auth configuration", "jwt_secret_present", true)
	}

	return cfg, nil
}
