package models

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

const (
	defaultServerAddr     = ":8080"
	defaultKafkaTopic     = "plant-detections"
	defaultKafkaGroupID   = "thumbnail-group"
	defaultGeminiModel    = "gemini-1.5-flash"
	defaultUpstreamTO     = 30 * time.Second
	defaultMaxUploadBytes = 10 << 20
	defaultThumbnailSize  = 256
	defaultCacheTTL       = 10 * time.Minute
)

type Config struct {
	ServerAddr     string        `yaml:"server_addr"`
	DatabaseDriver string        `yaml:"database_driver"`
	DatabaseURL    string        `yaml:"database_url"`
	KafkaBroker    string        `yaml:"kafka_broker"`
	KafkaTopic     string        `yaml:"kafka_topic"`
	KafkaGroupID   string        `yaml:"kafka_group_id"`
	GeminiAPIKey   string        `yaml:"gemini_api_key"`
	GeminiModel    string        `yaml:"gemini_model"`
	UpstreamTO     time.Duration `yaml:"upstream_timeout"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	ThumbnailSize  int           `yaml:"thumbnail_size"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	LogLevel       string        `yaml:"log_level"`
	LogFormat      string        `yaml:"log_format"`
}

// LoadConfig reads the YAML file at path, applies environment overrides and
// defaults, and validates the result. A missing file is not an error as long
// as the environment provides the required settings.
func LoadConfig(path string) (*Config, error) {
	const op = "models.LoadConfig"

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	override(&c.ServerAddr, "SERVER_ADDR")
	override(&c.DatabaseDriver, "DATABASE_DRIVER")
	override(&c.DatabaseURL, "DATABASE_URL")
	override(&c.KafkaBroker, "KAFKA_BROKER")
	override(&c.GeminiAPIKey, "GEMINI_API_KEY")
	override(&c.GeminiModel, "GEMINI_MODEL")
	override(&c.LogLevel, "LOG_LEVEL")
}

func override(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() {
	if c.ServerAddr == "" {
		c.ServerAddr = defaultServerAddr
	}
	if c.DatabaseDriver == "" {
		c.DatabaseDriver = DriverPostgres
	}
	if c.KafkaTopic == "" {
		c.KafkaTopic = defaultKafkaTopic
	}
	if c.KafkaGroupID == "" {
		c.KafkaGroupID = defaultKafkaGroupID
	}
	if c.GeminiModel == "" {
		c.GeminiModel = defaultGeminiModel
	}
	if c.UpstreamTO <= 0 {
		c.UpstreamTO = defaultUpstreamTO
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = defaultMaxUploadBytes
	}
	if c.ThumbnailSize <= 0 {
		c.ThumbnailSize = defaultThumbnailSize
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = defaultCacheTTL
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
}

// Validate reports the first setting that prevents the service from starting.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database_url is required for driver %q", c.DatabaseDriver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown database_driver %q", c.DatabaseDriver)
	}
	if c.GeminiAPIKey == "" {
		return errors.New("gemini_api_key is required")
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log_format %q", c.LogFormat)
	}
	return nil
}

// KafkaEnabled reports whether detection events should be published.
func (c *Config) KafkaEnabled() bool {
	return c.KafkaBroker != ""
}
