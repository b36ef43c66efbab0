package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// defaults lists every configuration key with its default value. Setting a
// default for every key also lets viper's AutomaticEnv resolve nested keys
// during Unmarshal.
var defaults = map[string]any{
	"server.port":                     8080,
	"server.log_level":                "info",
	"server.shutdown_timeout_seconds": 15,

	"auth.token_lifetime_minutes": 60 * 24,

	"storage.backend":      "file",
	"storage.dir":          "data/progress",
	"storage.sqlite_path":  "data/scry-cue.db",
	"storage.postgres_url": "",

	"catalog.user_deck_dir": "data/decks",

	"review.algorithm":     "sm2",
	"review.max_due_cards": 100,
	"review.max_new_cards": 10,

	"triggers.global_cooldown_seconds": 10,
	"triggers.timer_interval_minutes":  15,
	"triggers.tick_interval_seconds":   30,

	"triggers.death.enabled":   true,
	"triggers.death.threshold": 2,

	"triggers.timer.enabled":   true,
	"triggers.timer.threshold": 1,

	"triggers.achievement.enabled":          true,
	"triggers.achievement.threshold":        1,
	"triggers.achievement.cooldown_seconds": 60,

	"triggers.block_break.enabled":   false,
	"triggers.block_break.threshold": 100,
	"triggers.block_break.whitelist": []string{"stone", "dirt", "oak_log", "iron_ore", "diamond_ore"},

	"triggers.block_place.enabled":   false,
	"triggers.block_place.threshold": 50,

	"triggers.entity_kill.enabled":   false,
	"triggers.entity_kill.threshold": 10,
	"triggers.entity_kill.whitelist": []string{"zombie", "skeleton", "creeper", "spider", "enderman"},

	"triggers.chat.enabled":   false,
	"triggers.chat.threshold": 10,
	"triggers.chat.pattern":   "edit",
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return load(v)
}

// LoadFile loads configuration from the given YAML file, still letting
// environment variables override it.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return load(v)
}

// LoadDotEnv copies variables from the given .env files (default ".env")
// into the process environment without overriding variables already set.
// Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

func load(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Configure environment variables
	v.SetEnvPrefix("SCRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind the secrets, which have no default
	bindEnvs := []struct {
		key    string
		envVar string
	}{
		{"auth.jwt_secret", "SCRY_AUTH_JWT_SECRET"},
		{"storage.postgres_url", "SCRY_STORAGE_POSTGRES_URL"},
	}

	for _, env := range bindEnvs {
		if err := v.BindEnv(env.key, env.envVar); err != nil {
			return nil, fmt.Errorf("error binding environment variable %s: %w", env.envVar, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}
