package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	Storage  StorageConfig  `mapstructure:"storage" validate:"required"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Review   ReviewConfig   `mapstructure:"review" validate:"required"`
	Triggers TriggersConfig `mapstructure:"triggers" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"gte=1"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gte=1"`
}

// StorageConfig selects and configures the progress persistence backend.
type StorageConfig struct {
	Backend     string `mapstructure:"backend" validate:"required,oneof=memory file sqlite postgres"`
	Dir         string `mapstructure:"dir" validate:"required_if=Backend file"`
	SQLitePath  string `mapstructure:"sqlite_path" validate:"required_if=Backend sqlite"`
	PostgresURL string `mapstructure:"postgres_url" validate:"required_if=Backend postgres"`
}

// CatalogConfig locates user-managed decks and catalog metadata.
// An empty UserDeckDir serves only the built-in decks, read-only.
type CatalogConfig struct {
	UserDeckDir string `mapstructure:"user_deck_dir"`
}

// ReviewConfig contains review scheduling settings.
type ReviewConfig struct {
	Algorithm string `mapstructure:"algorithm" validate:"required,oneof=sm2 ladder"`
	// MaxDueCards caps due-card listings, MaxNewCards caps new-card listings.
	MaxDueCards int `mapstructure:"max_due_cards" validate:"gte=0"`
	MaxNewCards int `mapstructure:"max_new_cards" validate:"gte=0"`
}

// TriggersConfig configures when gameplay events interrupt play with a review.
type TriggersConfig struct {
	GlobalCooldownSeconds int `mapstructure:"global_cooldown_seconds" validate:"gte=0"`
	TimerIntervalMinutes  int `mapstructure:"timer_interval_minutes" validate:"gte=1"`
	// TickIntervalSeconds is how often the background runner checks timers.
	TickIntervalSeconds int `mapstructure:"tick_interval_seconds" validate:"gte=1"`

	Death       TriggerKindConfig `mapstructure:"death"`
	Timer       TriggerKindConfig `mapstructure:"timer"`
	Achievement TriggerKindConfig `mapstructure:"achievement"`
	BlockBreak  TriggerKindConfig `mapstructure:"block_break"`
	BlockPlace  TriggerKindConfig `mapstructure:"block_place"`
	EntityKill  TriggerKindConfig `mapstructure:"entity_kill"`
	Chat        TriggerKindConfig `mapstructure:"chat"`
}

// TriggerKindConfig configures a single event kind.
type TriggerKindConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	Threshold       int      `mapstructure:"threshold" validate:"gte=1"`
	CooldownSeconds int      `mapstructure:"cooldown_seconds" validate:"gte=0"`
	Whitelist       []string `mapstructure:"whitelist"`
	Pattern         string   `mapstructure:"pattern"`
}
