// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Tokenizer TokenizerConfig `yaml:"tokenizer" mapstructure:"tokenizer"`
	Lookup    LookupConfig    `yaml:"lookup" mapstructure:"lookup"`
	Assist    AssistConfig    `yaml:"assist" mapstructure:"assist"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" | "postgres" | "none"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// TokenizerConfig holds the external citation-tokenizer service settings.
type TokenizerConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// LookupConfig holds the case-law verification service settings.
type LookupConfig struct {
	Enabled        bool    `yaml:"enabled" mapstructure:"enabled"`
	Key            string  `yaml:"key" mapstructure:"key"`
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	RatePerSecond  float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	MaxInflight    int     `yaml:"max_inflight" mapstructure:"max_inflight"`
}

// AssistConfig holds the optional LLM name-extraction fallback settings.
// Disabled unless a key and model are configured.
type AssistConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Key     string `yaml:"key" mapstructure:"key"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// PipelineConfig tunes the extraction pipeline.
type PipelineConfig struct {
	// AttributionWorkers bounds the per-citation attribution fan-out.
	// 0 means GOMAXPROCS.
	AttributionWorkers int `yaml:"attribution_workers" mapstructure:"attribution_workers"`
}

// ServerConfig configures the HTTP wrapper.
type ServerConfig struct {
	Addr           string `yaml:"addr" mapstructure:"addr"`
	RequestTimeout int    `yaml:"request_timeout_seconds" mapstructure:"request_timeout_seconds"`
	MaxBodyBytes   int64  `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // "json" | "console"
}

// Validate checks that the configuration is usable for the given mode
// ("extract", "serve"). All problems are reported at once.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	case "none":
	default:
		problems = append(problems, fmt.Sprintf("store.driver %q is not one of sqlite, postgres, none", c.Store.Driver))
	}

	if c.Lookup.Enabled {
		if c.Lookup.RatePerSecond <= 0 {
			problems = append(problems, "lookup.rate_per_second must be > 0")
		}
		if c.Lookup.MaxInflight < 1 || c.Lookup.MaxInflight > 32 {
			problems = append(problems, "lookup.max_inflight must be between 1 and 32")
		}
	}
	if c.Tokenizer.Enabled && c.Tokenizer.BaseURL == "" {
		problems = append(problems, "tokenizer.base_url is required")
	}
	if c.Assist.Enabled && c.Assist.Key == "" {
		problems = append(problems, "assist.key is required")
	}
	if c.Pipeline.AttributionWorkers < 0 {
		problems = append(problems, "pipeline.attribution_workers must be >= 0")
	}

	switch mode {
	case "extract":
	case "serve":
		if c.Server.Addr == "" {
			problems = append(problems, "server.addr is required")
		}
		if c.Server.RequestTimeout <= 0 {
			problems = append(problems, "server.request_timeout_seconds must be > 0")
		}
		if c.Server.MaxBodyBytes <= 0 {
			problems = append(problems, "server.max_body_bytes must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Load reads configuration from citelink.yaml (working directory or
// ~/.citelink/) and CITELINK_* environment variables.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("citelink")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.citelink")

	v.SetEnvPrefix("CITELINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
		// No config file is fine; env and defaults carry.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "citelink.db")
	v.SetDefault("tokenizer.enabled", false)
	v.SetDefault("tokenizer.base_url", "http://localhost:8090")
	v.SetDefault("lookup.enabled", true)
	v.SetDefault("lookup.rate_per_second", 5)
	v.SetDefault("lookup.max_inflight", 3)
	v.SetDefault("assist.enabled", false)
	v.SetDefault("pipeline.attribution_workers", 0)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.request_timeout_seconds", 60)
	v.SetDefault("server.max_body_bytes", 16<<20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
