package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bassista/go_relboard/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "RELBOARD"

// Storage backends.
const (
	BackendGist   = "gist"
	BackendDir    = "dir"
	BackendMemory = "memory"
)

// Store modes.
const (
	ModeLive    = "live"
	ModeOffline = "offline"
)

// Config is the full application configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Store  StoreConfig  `mapstructure:"store"`
	Poller PollerConfig `mapstructure:"poller"`
	Misc   MiscConfig   `mapstructure:"misc"`
}

type ServerConfig struct {
	Port               int           `mapstructure:"port"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	IdleTimeout        time.Duration `mapstructure:"idle_timeout"`
	ShutDownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	CORSAllowedOrigins string        `mapstructure:"cors_allowed_origins"`
}

// StoreConfig describes the remote document store and the caching layered over it.
type StoreConfig struct {
	Backend           string        `mapstructure:"backend"`
	Mode              string        `mapstructure:"mode"`
	GistID            string        `mapstructure:"gist_id"`
	Token             string        `mapstructure:"token"`
	APIBaseURL        string        `mapstructure:"api_base_url"`
	DirPath           string        `mapstructure:"dir_path"`
	HTTPTimeout       time.Duration `mapstructure:"http_timeout"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	FallbackTTL       time.Duration `mapstructure:"fallback_ttl"`
	SnapshotWindow    time.Duration `mapstructure:"snapshot_window"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Burst             int           `mapstructure:"burst"`
}

type PollerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	SelfRepo     string        `mapstructure:"self_repo"`
	Token        string        `mapstructure:"token"`
}

type MiscConfig struct {
	LogLevel string `mapstructure:"log_level"`
	GinMode  string `mapstructure:"gin_mode"`
}

// LoadConfig reads ./config/config.yaml (or RELBOARD_CONFIG_PATH), a local .env
// file and RELBOARD_* environment variables, in increasing priority.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WithComponent("config").Warnf("cannot read .env file: %v", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getEnvOrDefault(envPrefix+"_CONFIG_PATH", "./config"))

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Names kept from the original deployment docs.
	_ = v.BindEnv("store.token", envPrefix+"_STORE_TOKEN", "GITHUB_ACCESS_TOKEN")
	_ = v.BindEnv("store.gist_id", envPrefix+"_STORE_GIST_ID", "GIST_ID")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config file error: %w", err)
		}
		logger.WithComponent("config").Debug("no config file found, using defaults and env vars")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	port, err := getEnvOrViperPort(v, "PORT", "server.port")
	if err != nil {
		return nil, err
	}
	cfg.Server.Port = port

	if cfg.Poller.Token == "" {
		cfg.Poller.Token = cfg.Store.Token
	}
	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	cfg.Store.Mode = strings.ToLower(strings.TrimSpace(cfg.Store.Mode))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.request_timeout", 20*time.Second)
	v.SetDefault("server.cors_allowed_origins", "*")

	v.SetDefault("store.backend", BackendGist)
	v.SetDefault("store.mode", ModeLive)
	v.SetDefault("store.gist_id", "")
	v.SetDefault("store.token", "")
	v.SetDefault("store.api_base_url", "")
	v.SetDefault("store.dir_path", "./config/data")
	v.SetDefault("store.http_timeout", 15*time.Second)
	v.SetDefault("store.cache_ttl", 30*time.Second)
	v.SetDefault("store.fallback_ttl", 24*time.Hour)
	v.SetDefault("store.snapshot_window", 500*time.Millisecond)
	v.SetDefault("store.sweep_interval", 10*time.Minute)
	v.SetDefault("store.requests_per_minute", 60)
	v.SetDefault("store.burst", 5)

	v.SetDefault("poller.enabled", true)
	v.SetDefault("poller.initial_delay", 5*time.Second)
	v.SetDefault("poller.self_repo", "")
	v.SetDefault("poller.token", "")

	v.SetDefault("misc.log_level", "info")
	v.SetDefault("misc.gin_mode", "release")
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 || c.Server.IdleTimeout <= 0 {
		return errors.New("server timeouts must be positive")
	}
	if c.Server.ShutDownTimeout <= 0 {
		return errors.New("server shutdown timeout must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.New("server request timeout must be positive")
	}

	switch c.Store.Backend {
	case BackendGist, BackendMemory:
	case BackendDir:
		if c.Store.DirPath == "" {
			return errors.New("store.dir_path is required for the dir backend")
		}
	default:
		return fmt.Errorf("unknown store backend: %q (supported: %s, %s, %s)", c.Store.Backend, BackendGist, BackendDir, BackendMemory)
	}
	switch c.Store.Mode {
	case ModeLive, ModeOffline:
	default:
		return fmt.Errorf("unknown store mode: %q (supported: %s, %s)", c.Store.Mode, ModeLive, ModeOffline)
	}
	if c.Store.CacheTTL <= 0 {
		return errors.New("store.cache_ttl must be positive")
	}
	if c.Store.FallbackTTL < c.Store.CacheTTL {
		return errors.New("store.fallback_ttl must not be shorter than store.cache_ttl")
	}
	if c.Store.SnapshotWindow < 0 {
		return errors.New("store.snapshot_window must not be negative")
	}
	if c.Store.SweepInterval <= 0 {
		return errors.New("store.sweep_interval must be positive")
	}
	if c.Store.HTTPTimeout <= 0 {
		return errors.New("store.http_timeout must be positive")
	}
	if c.Store.RequestsPerMinute <= 0 || c.Store.Burst <= 0 {
		return errors.New("store rate limit must be positive")
	}
	if c.Poller.SelfRepo != "" && strings.Count(c.Poller.SelfRepo, "/") != 1 {
		return fmt.Errorf("poller.self_repo must be owner/name, got %q", c.Poller.SelfRepo)
	}
	return nil
}

func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvOrViperPort(v *viper.Viper, envKey, viperKey string) (int, error) {
	if raw := os.Getenv(envKey); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", envKey, raw, err)
		}
		return port, nil
	}
	return v.GetInt(viperKey), nil
}
