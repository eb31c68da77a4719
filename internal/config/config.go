// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/lockss-laaws/internal/paging"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Paging    PagingConfig    `mapstructure:"paging"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Database  DatabaseConfig  `mapstructure:"database"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Keys    []APIKey `mapstructure:"keys"`
}

// APIKey grants roles to one key. Keys are listed rather than mapped since
// Viper lowercases map keys.
type APIKey struct {
	Key   string   `mapstructure:"key"`
	Roles []string `mapstructure:"roles"`
}

// Roles indexes the configured keys.
func (a AuthConfig) Roles() map[string][]string {
	out := make(map[string][]string, len(a.Keys))
	for _, k := range a.Keys {
		out[k.Key] = append(out[k.Key], k.Roles...)
	}
	return out
}

// PagingConfig bounds page sizes for both paging modes.
type PagingConfig struct {
	// MaxLimit caps the limit of cursor requests, which have no default.
	MaxLimit        int    `mapstructure:"max_limit"`
	DefaultPageSize int    `mapstructure:"default_page_size"`
	MaxPageSize     int    `mapstructure:"max_page_size"`
	LinkStyle       string `mapstructure:"link_style"`
}

// JobsConfig sizes the metadata update worker pool.
type JobsConfig struct {
	Workers    int `mapstructure:"workers"`
	QueueDepth int `mapstructure:"queue_depth"`
}

// RateLimitConfig throttles API clients.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

// DatabaseConfig selects the Postgres metadata store. An empty DSN keeps
// metadata in memory.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	ItemsTable      string        `mapstructure:"items_table"`
	AuTable         string        `mapstructure:"au_table"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// TelemetryConfig controls tracing. An empty OTLP endpoint keeps spans in
// process, where they still carry trace context into published job events.
type TelemetryConfig struct {
	ServiceName  string  `mapstructure:"service_name"`
	Version      string  `mapstructure:"version"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LAAWS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("logging.development", true)
	v.SetDefault("paging.max_limit", paging.DefaultLimits.Max)
	v.SetDefault("paging.default_page_size", 10)
	v.SetDefault("paging.max_page_size", 100)
	v.SetDefault("paging.link_style", string(paging.LinkStyleNumbers))
	v.SetDefault("jobs.workers", 2)
	v.SetDefault("jobs.queue_depth", 64)
	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.rps", 20.0)
	v.SetDefault("ratelimit.burst", 40)
	v.SetDefault("database.items_table", "md_items")
	v.SetDefault("database.au_table", "aus")
	v.SetDefault("pubsub.topic_name", "mdupdates")
	v.SetDefault("telemetry.service_name", "laaws")
	v.SetDefault("telemetry.sample_ratio", 1.0)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Paging.MaxLimit <= 0 {
		return fmt.Errorf("paging.max_limit must be > 0")
	}
	if c.Paging.DefaultPageSize <= 0 || c.Paging.MaxPageSize < c.Paging.DefaultPageSize {
		return fmt.Errorf("paging.default_page_size must be > 0 and <= paging.max_page_size")
	}
	if _, err := paging.ParseLinkStyle(c.Paging.LinkStyle); err != nil {
		return fmt.Errorf("paging.link_style: %w", err)
	}
	if c.Jobs.Workers <= 0 {
		return fmt.Errorf("jobs.workers must be > 0")
	}
	if c.Jobs.QueueDepth <= 0 {
		return fmt.Errorf("jobs.queue_depth must be > 0")
	}
	if c.RateLimit.Enabled && c.RateLimit.RPS <= 0 {
		return fmt.Errorf("ratelimit.rps must be > 0 when rate limiting is enabled")
	}
	if c.Auth.Enabled && len(c.Auth.Keys) == 0 {
		return fmt.Errorf("auth.keys must be set when auth is enabled")
	}
	for i, k := range c.Auth.Keys {
		if k.Key == "" {
			return fmt.Errorf("auth.keys[%d].key must not be empty", i)
		}
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be between 0 and 1")
	}
	return nil
}

// CursorLimits converts the paging section into cursor limits.
func (c Config) CursorLimits() paging.Limits {
	return paging.Limits{Max: c.Paging.MaxLimit}
}

// PageSizeLimits converts the paging section into offset page size limits.
func (c Config) PageSizeLimits() paging.Limits {
	return paging.Limits{Default: c.Paging.DefaultPageSize, Max: c.Paging.MaxPageSize}
}
