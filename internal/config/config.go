// Package config loads and validates ingest configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/LukSky123/Prices.ai/internal/source"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig           `mapstructure:"server"`
	Batch   BatchConfig            `mapstructure:"batch"`
	Upload  UploadConfig           `mapstructure:"upload"`
	DB      DBConfig               `mapstructure:"db"`
	Archive ArchiveConfig          `mapstructure:"archive"`
	Notify  NotifyConfig           `mapstructure:"notify"`
	Cleanup CleanupConfig          `mapstructure:"cleanup"`
	Logging LoggingConfig          `mapstructure:"logging"`
	Sources map[string]source.Spec `mapstructure:"sources"`
}

// ServerConfig controls the catalog ingest HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// BatchConfig governs directory discovery and the batch driver.
type BatchConfig struct {
	Directory    string `mapstructure:"directory"`
	Concurrency  int    `mapstructure:"concurrency"`
	GroupDelayMs int    `mapstructure:"group_delay_ms"`
	ProcessedLog string `mapstructure:"processed_log"`
	SkipExisting bool   `mapstructure:"skip_existing"`
}

// UploadConfig configures the boundary client.
type UploadConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// DBConfig controls access to the catalog database.
type DBConfig struct {
	DSN string `mapstructure:"dsn"`
}

// ArchiveConfig selects the batch archive backend.
type ArchiveConfig struct {
	Provider  string `mapstructure:"provider"` // "noop", "local" or "gcs"
	Directory string `mapstructure:"directory"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// NotifyConfig selects the ingest-event backend.
type NotifyConfig struct {
	Provider  string `mapstructure:"provider"` // "noop" or "pubsub"
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// CleanupConfig paces the consistency repairer.
type CleanupConfig struct {
	BatchSize    int `mapstructure:"batch_size"`
	BatchDelayMs int `mapstructure:"batch_delay_ms"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PRICESAI")
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
	v.SetDefault("server.port", 3000)
	v.SetDefault("batch.directory", "./scraped-data")
	v.SetDefault("batch.concurrency", 2)
	v.SetDefault("batch.group_delay_ms", 2000)
	v.SetDefault("batch.processed_log", "./processed-files.json")
	v.SetDefault("batch.skip_existing", true)
	v.SetDefault("upload.endpoint", "http://localhost:3000/api/scrape")
	v.SetDefault("upload.timeout_seconds", 30)
	v.SetDefault("archive.provider", "local")
	v.SetDefault("archive.directory", "./archive")
	v.SetDefault("notify.provider", "noop")
	v.SetDefault("cleanup.batch_size", 50)
	v.SetDefault("cleanup.batch_delay_ms", 200)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Batch.Concurrency <= 0 {
		return fmt.Errorf("batch.concurrency must be > 0")
	}
	if c.Batch.Directory == "" {
		return fmt.Errorf("batch.directory must be set")
	}
	if c.Upload.Endpoint == "" {
		return fmt.Errorf("upload.endpoint must be set")
	}
	if c.Upload.TimeoutSeconds <= 0 {
		return fmt.Errorf("upload.timeout_seconds must be > 0")
	}
	switch c.Archive.Provider {
	case "noop", "local", "gcs":
	default:
		return fmt.Errorf("archive.provider must be one of noop, local, gcs")
	}
	if c.Archive.Provider == "gcs" && c.Archive.GCSBucket == "" {
		return fmt.Errorf("archive.gcs_bucket must be set when archive.provider is gcs")
	}
	switch c.Notify.Provider {
	case "noop", "pubsub":
	default:
		return fmt.Errorf("notify.provider must be one of noop, pubsub")
	}
	if c.Notify.Provider == "pubsub" && (c.Notify.ProjectID == "" || c.Notify.TopicName == "") {
		return fmt.Errorf("notify.project_id and notify.topic_name must be set when notify.provider is pubsub")
	}
	if c.Cleanup.BatchSize <= 0 {
		return fmt.Errorf("cleanup.batch_size must be > 0")
	}
	return nil
}

// GroupDelay converts the batch pacing knob into a duration.
func (c Config) GroupDelay() time.Duration {
	return time.Duration(c.Batch.GroupDelayMs) * time.Millisecond
}

// UploadTimeout converts the client timeout knob into a duration.
func (c Config) UploadTimeout() time.Duration {
	return time.Duration(c.Upload.TimeoutSeconds) * time.Second
}

// CleanupDelay converts the repairer pacing knob into a duration.
func (c Config) CleanupDelay() time.Duration {
	return time.Duration(c.Cleanup.BatchDelayMs) * time.Millisecond
}
