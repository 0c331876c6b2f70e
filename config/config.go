package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Realtime   RealtimeConfig   `yaml:"realtime"`
	List       ListConfig       `yaml:"list"`
	LoadRetry  LoadRetryConfig  `yaml:"load_retry"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds the HTTP front end configuration.
type ServerConfig struct {
	Port               int     `yaml:"port"`
	RateLimitPerSec    float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst     int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds    int     `yaml:"cache_ttl_seconds"`
	SessionIdleMinutes int     `yaml:"session_idle_minutes"`

	CacheTTL    time.Duration `yaml:"-"`
	SessionIdle time.Duration `yaml:"-"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	// Driver is either "postgres" or "sqlite".
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	// RunMigrations installs the change-notification trigger (postgres only).
	RunMigrations bool `yaml:"run_migrations"`
}

// RealtimeConfig holds the change-feed configuration. The notification
// channel itself is fixed by the database trigger.
type RealtimeConfig struct {
	Buffer              int    `yaml:"buffer"`
	MinReconnectSeconds int    `yaml:"min_reconnect_seconds"`
	MaxReconnectSeconds int    `yaml:"max_reconnect_seconds"`

	MinReconnect time.Duration `yaml:"-"`
	MaxReconnect time.Duration `yaml:"-"`
}

// ListConfig holds the list view tunables.
type ListConfig struct {
	ToastSeconds     int `yaml:"toast_seconds"`
	UndoToastSeconds int `yaml:"undo_toast_seconds"`
	SuggestionLimit  int `yaml:"suggestion_limit"`

	Toast     time.Duration `yaml:"-"`
	UndoToast time.Duration `yaml:"-"`
}

// LoadRetryConfig bounds the initial-load retry loop.
type LoadRetryConfig struct {
	Attempts         int `yaml:"attempts"`
	InitialBackoffMS int `yaml:"initial_backoff_ms"`
	MaxBackoffMS     int `yaml:"max_backoff_ms"`

	InitialBackoff time.Duration `yaml:"-"`
	MaxBackoff     time.Duration `yaml:"-"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	Enabled    bool   `yaml:"enabled"`
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the push worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level string `yaml:"level"`
	// File is used by the terminal client, which cannot log to stdout.
	File string `yaml:"file"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied, used when no
// config file is present.
func Default() *Config {
	var cfg Config
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg
}

func (cfg *Config) applyEnv() {
	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		cfg.Database.DSN = dsn
		if cfg.Database.Driver == "" {
			cfg.Database.Driver = "postgres"
		}
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 20
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}
	if cfg.Server.SessionIdleMinutes <= 0 {
		cfg.Server.SessionIdleMinutes = 30
	}
	cfg.Server.CacheTTL = time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cfg.Server.SessionIdle = time.Duration(cfg.Server.SessionIdleMinutes) * time.Minute

	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.Driver == "sqlite" && cfg.Database.DSN == "" {
		cfg.Database.DSN = "groceries.db"
	}

	if cfg.Realtime.Buffer <= 0 {
		cfg.Realtime.Buffer = 64
	}
	if cfg.Realtime.MinReconnectSeconds <= 0 {
		cfg.Realtime.MinReconnectSeconds = 1
	}
	if cfg.Realtime.MaxReconnectSeconds <= 0 {
		cfg.Realtime.MaxReconnectSeconds = 30
	}
	if cfg.Realtime.MaxReconnectSeconds < cfg.Realtime.MinReconnectSeconds {
		cfg.Realtime.MaxReconnectSeconds = cfg.Realtime.MinReconnectSeconds
	}
	cfg.Realtime.MinReconnect = time.Duration(cfg.Realtime.MinReconnectSeconds) * time.Second
	cfg.Realtime.MaxReconnect = time.Duration(cfg.Realtime.MaxReconnectSeconds) * time.Second

	if cfg.List.ToastSeconds <= 0 {
		cfg.List.ToastSeconds = 3
	}
	if cfg.List.UndoToastSeconds <= 0 {
		cfg.List.UndoToastSeconds = 5
	}
	if cfg.List.SuggestionLimit <= 0 {
		cfg.List.SuggestionLimit = 6
	}
	cfg.List.Toast = time.Duration(cfg.List.ToastSeconds) * time.Second
	cfg.List.UndoToast = time.Duration(cfg.List.UndoToastSeconds) * time.Second

	if cfg.LoadRetry.Attempts <= 0 {
		cfg.LoadRetry.Attempts = 3
	}
	if cfg.LoadRetry.InitialBackoffMS <= 0 {
		cfg.LoadRetry.InitialBackoffMS = 500
	}
	if cfg.LoadRetry.MaxBackoffMS <= 0 {
		cfg.LoadRetry.MaxBackoffMS = 5000
	}
	if cfg.LoadRetry.MaxBackoffMS < cfg.LoadRetry.InitialBackoffMS {
		cfg.LoadRetry.MaxBackoffMS = cfg.LoadRetry.InitialBackoffMS
	}
	cfg.LoadRetry.InitialBackoff = time.Duration(cfg.LoadRetry.InitialBackoffMS) * time.Millisecond
	cfg.LoadRetry.MaxBackoff = time.Duration(cfg.LoadRetry.MaxBackoffMS) * time.Millisecond

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}
	if cfg.Push.Enabled && (cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "") {
		slog.Warn("push.enabled is set but VAPID keys are missing; disabling push")
		cfg.Push.Enabled = false
	}

	if cfg.WorkerPool.Size <= 0 {
		slog.Info("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
