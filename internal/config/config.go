package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth" validate:"required"`
	Storage   StorageConfig   `mapstructure:"storage" validate:"required"`
	Events    EventsConfig    `mapstructure:"events" validate:"required"`
	Task      TaskConfig      `mapstructure:"task" validate:"required"`
	Inference InferenceConfig `mapstructure:"inference" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"gte=0"`
	// AllowedOrigins lists the origins accepted on websocket upgrades.
	// Empty means same-origin only; "*" accepts any origin.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig selects and configures the record store.
// The memory driver keeps everything in-process and needs no URL.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=postgres memory"`
	URL    string `mapstructure:"url" validate:"required_if=Driver postgres"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"gte=0"`
}

// StorageConfig locates uploaded files and per-space vector indexes.
type StorageConfig struct {
	SpacesDir   string `mapstructure:"spaces_dir" validate:"required"`
	MaxUploadMB int    `mapstructure:"max_upload_mb" validate:"gt=0"`
}

// EventsConfig sizes the event bus.
type EventsConfig struct {
	Backlog int `mapstructure:"backlog" validate:"required,gt=0"`
}

// TaskConfig tunes the dispatcher and the task kinds it runs.
type TaskConfig struct {
	// Permits is the number of run phases allowed at the same time.
	Permits        int  `mapstructure:"permits" validate:"required,gt=0"`
	PollIntervalMS int  `mapstructure:"poll_interval_ms" validate:"required,gt=0"`
	StableForMS    int  `mapstructure:"stable_for_ms" validate:"required,gt=0"`
	HistoryWindow  int  `mapstructure:"history_window" validate:"gte=0"`
	PruneFinished  bool `mapstructure:"prune_finished"`
}

// InferenceConfig selects the answer backend. Ingestion always goes
// through the HTTP service at BaseURL.
type InferenceConfig struct {
	Provider       string `mapstructure:"provider" validate:"required,oneof=http gemini ollama"`
	BaseURL        string `mapstructure:"base_url" validate:"required,url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"gt=0"`
	GeminiAPIKey   string `mapstructure:"gemini_api_key" validate:"required_if=Provider gemini"`
	GeminiModel    string `mapstructure:"gemini_model"`
	// MaxRetries and RetryDelaySeconds tune the Gemini backoff.
	MaxRetries        int    `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=0"`
	OllamaHost        string `mapstructure:"ollama_host" validate:"required_if=Provider ollama"`
	OllamaModel       string `mapstructure:"ollama_model"`
}
