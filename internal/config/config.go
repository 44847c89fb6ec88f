// Package config loads settings from defaults, an optional config.yaml and
// PROMPTS_-prefixed environment variables, in increasing precedence.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable.
const EnvPrefix = "PROMPTS"

type Config struct {
	Env          string             `mapstructure:"env"`
	Server       ServerConfig       `mapstructure:"server"`
	Remote       RemoteConfig       `mapstructure:"remote"`
	Local        LocalConfig        `mapstructure:"local"`
	NATS         NATSConfig         `mapstructure:"nats"`
	Search       SearchConfig       `mapstructure:"search"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// ReadHeaderTimeout is in seconds. There is no write timeout: the
	// WebSocket and MCP streams stay open indefinitely.
	ReadHeaderTimeout int `mapstructure:"readHeaderTimeout"`
}

// RemoteConfig holds the hosted database credentials. URL is either a
// postgres:// connection string or the https:// base of a PostgREST API.
type RemoteConfig struct {
	URL string `mapstructure:"url"`
	Key string `mapstructure:"key"`
}

// LocalConfig selects the KV the local backend persists into.
type LocalConfig struct {
	Driver string `mapstructure:"driver"` // sqlite | memory
	Path   string `mapstructure:"path"`
}

// NATSConfig enables the cross-process event bus when URL is set.
type NATSConfig struct {
	URL      string `mapstructure:"url"`
	ClientID string `mapstructure:"clientId"`
}

type SearchConfig struct {
	DelayMs int `mapstructure:"delayMs"`
}

type NotificationConfig struct {
	TTLMs int `mapstructure:"ttlMs"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ServerConfig) ReadHeaderTimeoutDuration() time.Duration {
	return time.Duration(s.ReadHeaderTimeout) * time.Second
}

func (s *SearchConfig) Delay() time.Duration {
	return time.Duration(s.DelayMs) * time.Millisecond
}

func (n *NotificationConfig) TTL() time.Duration {
	return time.Duration(n.TTLMs) * time.Millisecond
}

// Production reports a deployed build. Without valid remote credentials a
// production build refuses to fall back to local storage.
func (c *Config) Production() bool {
	env := strings.ToLower(c.Env)
	return env == "production" || env == "prod"
}

// Scheme returns the lower-cased URL scheme, or "" if the URL does not parse.
func (r *RemoteConfig) Scheme() string {
	u, err := url.Parse(r.URL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Scheme)
}

// Valid reports whether both credentials are present and the URL names a
// supported remote with a host.
func (r *RemoteConfig) Valid() bool {
	if strings.TrimSpace(r.URL) == "" || strings.TrimSpace(r.Key) == "" {
		return false
	}
	u, err := url.Parse(r.URL)
	if err != nil || u.Host == "" {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql", "http", "https":
		return true
	default:
		return false
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readHeaderTimeout", 10)

	v.SetDefault("remote.url", "")
	v.SetDefault("remote.key", "")

	v.SetDefault("local.driver", "sqlite")
	v.SetDefault("local.path", "data/prompts.db")

	// Empty URL means use the in-memory event bus.
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.clientId", "prompt-manager")

	v.SetDefault("search.delayMs", 300)
	v.SetDefault("notification.ttlMs", 2000)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func Load() (*Config, error) {
	return LoadWithPath("")
}

// LoadWithPath reads config.yaml from configPath (if given) or the working
// directory, then applies environment overrides.
func LoadWithPath(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv does not split camelCase keys.
	_ = v.BindEnv("server.readHeaderTimeout", "PROMPTS_SERVER_READ_HEADER_TIMEOUT")
	_ = v.BindEnv("nats.clientId", "PROMPTS_NATS_CLIENT_ID")
	_ = v.BindEnv("search.delayMs", "PROMPTS_SEARCH_DELAY_MS")
	_ = v.BindEnv("notification.ttlMs", "PROMPTS_NOTIFICATION_TTL_MS")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// validate collects every problem into one error. Missing or malformed remote
// credentials are not an error: they select the local or misconfigured backend.
func validate(cfg *Config) error {
	var errs []string

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	switch cfg.Local.Driver {
	case "sqlite":
		if cfg.Local.Path == "" {
			errs = append(errs, "local.path is required when local.driver is sqlite")
		}
	case "memory":
	default:
		errs = append(errs, "local.driver must be one of: sqlite, memory")
	}

	if cfg.Search.DelayMs < 0 {
		errs = append(errs, "search.delayMs must not be negative")
	}
	if cfg.Notification.TTLMs <= 0 {
		errs = append(errs, "notification.ttlMs must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, "logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, "logging.format must be one of: json, text")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// NewLogger builds the process logger from the logging section.
func (l *LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(l.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(l.Format) == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
