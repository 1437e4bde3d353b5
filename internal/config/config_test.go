package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 3000, cfg.Server.Port)
	require.Equal(t, "./scraped-data", cfg.Batch.Directory)
	require.Equal(t, 2, cfg.Batch.Concurrency)
	require.Equal(t, 2*time.Second, cfg.GroupDelay())
	require.Equal(t, "./processed-files.json", cfg.Batch.ProcessedLog)
	require.True(t, cfg.Batch.SkipExisting)
	require.Equal(t, "http://localhost:3000/api/scrape", cfg.Upload.Endpoint)
	require.Equal(t, 30*time.Second, cfg.UploadTimeout())
	require.Equal(t, "local", cfg.Archive.Provider)
	require.Equal(t, "./archive", cfg.Archive.Directory)
	require.Equal(t, "noop", cfg.Notify.Provider)
	require.Equal(t, 50, cfg.Cleanup.BatchSize)
	require.Equal(t, 200*time.Millisecond, cfg.CleanupDelay())
	require.True(t, cfg.Logging.Development)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 8080
batch:
  directory: /data/scrapes
  concurrency: 4
upload:
  endpoint: https://prices.example.com/api/scrape
archive:
  provider: local
  directory: /data/archive
sources:
  shoprite:
    title_fields: [product, name]
    price_fields: [amount]
    market: Shoprite
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "/data/scrapes", cfg.Batch.Directory)
	require.Equal(t, 4, cfg.Batch.Concurrency)
	require.Equal(t, "https://prices.example.com/api/scrape", cfg.Upload.Endpoint)
	require.Equal(t, "local", cfg.Archive.Provider)

	spec, ok := cfg.Sources["shoprite"]
	require.True(t, ok)
	require.Equal(t, []string{"product", "name"}, spec.TitleFields)
	require.Equal(t, []string{"amount"}, spec.PriceFields)
	require.Equal(t, "Shoprite", spec.Market)
}

func TestValidate(t *testing.T) {
	base, err := Load("")
	require.NoError(t, err)

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"zero concurrency", func(c *Config) { c.Batch.Concurrency = 0 }},
		{"empty directory", func(c *Config) { c.Batch.Directory = "" }},
		{"empty endpoint", func(c *Config) { c.Upload.Endpoint = "" }},
		{"unknown archive provider", func(c *Config) { c.Archive.Provider = "s3" }},
		{"gcs without bucket", func(c *Config) { c.Archive.Provider = "gcs" }},
		{"unknown notify provider", func(c *Config) { c.Notify.Provider = "kafka" }},
		{"pubsub without project", func(c *Config) { c.Notify.Provider = "pubsub" }},
		{"zero cleanup batch size", func(c *Config) { c.Cleanup.BatchSize = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
