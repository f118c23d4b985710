// Package config loads service settings with viper: defaults, then an
// optional YAML file, then environment variables (APP_PORT, REDIS_URL, ...).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type AppConfig struct {
	Port           string        `mapstructure:"port"`
	Env            string        `mapstructure:"env"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type MongoConfig struct {
	URL      string `mapstructure:"url"`
	Database string `mapstructure:"database"`
}

type RedisConfig struct {
	URL      string `mapstructure:"url"`
	Prefix   string `mapstructure:"prefix"`
	QueueKey string `mapstructure:"queue_key"`
}

type MeiliConfig struct {
	URL           string        `mapstructure:"url"`
	MasterKey     string        `mapstructure:"master_key"`
	Index         string        `mapstructure:"index"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxCandidates int           `mapstructure:"max_candidates"`
}

type CacheConfig struct {
	Backend string        `mapstructure:"backend"` // memory | redis | mongo | hybrid
	L1Size  int           `mapstructure:"l1_size"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type ExtractorConfig struct {
	GazetteerSource string `mapstructure:"gazetteer_source"` // embedded | file | mongo
	GazetteerPath   string `mapstructure:"gazetteer_path"`   // CSV used by the file source
	Workers         int    `mapstructure:"workers"`
	BatchLimit      int    `mapstructure:"batch_limit"`
	MaxTextBytes    int    `mapstructure:"max_text_bytes"`
	Hints           bool   `mapstructure:"hints"`
}

// Config is the full service configuration
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Mongo       MongoConfig     `mapstructure:"mongo"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Meilisearch MeiliConfig     `mapstructure:"meilisearch"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Extractor   ExtractorConfig `mapstructure:"extractor"`
}

var defaults = map[string]interface{}{
	"app.port":                   "8080",
	"app.env":                    "development",
	"app.request_timeout":        "15s",
	"mongo.url":                  "mongodb://localhost:27017",
	"mongo.database":             "address_extractor",
	"redis.url":                  "redis://localhost:6379",
	"redis.prefix":               "extract:",
	"redis.queue_key":            "extract:queue",
	"meilisearch.url":            "http://localhost:7700",
	"meilisearch.master_key":     "",
	"meilisearch.index":          "places",
	"meilisearch.timeout":        "30s",
	"meilisearch.max_candidates": 20,
	"cache.backend":              "memory",
	"cache.l1_size":              10000,
	"cache.ttl":                  "24h",
	"extractor.gazetteer_source": "embedded",
	"extractor.gazetteer_path":   "",
	"extractor.workers":          0,
	"extractor.batch_limit":      100,
	"extractor.max_text_bytes":   1 << 20,
	"extractor.hints":            true,
}

// Load reads configuration. With an empty path, config/app.yaml and
// ./app.yaml are tried and a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("app")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot start with.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "memory", "redis", "mongo", "hybrid":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	switch c.Extractor.GazetteerSource {
	case "embedded", "mongo":
	case "file":
		if c.Extractor.GazetteerPath == "" {
			return errors.New("extractor.gazetteer_path must be set for the file source")
		}
	default:
		return fmt.Errorf("unknown gazetteer source %q", c.Extractor.GazetteerSource)
	}
	if c.App.Port == "" {
		return errors.New("app.port must be set")
	}
	if c.Extractor.BatchLimit <= 0 {
		return errors.New("extractor.batch_limit must be positive")
	}
	return nil
}

// IsProduction reports whether app.env is production.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// NewLogger builds the production logger for env "production" and the
// development logger otherwise.
func NewLogger(env string) (*zap.Logger, error) {
	var zc zap.Config
	if env == "production" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	return zc.Build()
}
