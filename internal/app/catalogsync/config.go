package catalogsync

import (
	"time"

	"github.com/g33ktony/hot-wheels-manager-sub006/internal/config"
)

// Config holds pipeline settings.
type Config struct {
	BatchSize       int
	MaxFetchRetries int
	BackoffInitial  time.Duration
	BackoffMax      time.Duration
	ParseWorkers    int
	ImageHost       string

	// DryRun parses and validates without writing the catalog or the
	// progress file.
	DryRun bool
}

// ConfigFrom derives the pipeline settings from the application config.
func ConfigFrom(cfg *config.Config, dryRun bool) Config {
	return Config{
		BatchSize:       cfg.Wiki.BatchSize,
		MaxFetchRetries: cfg.Sync.MaxFetchRetries,
		BackoffInitial:  cfg.Sync.BackoffInitial,
		BackoffMax:      cfg.Sync.BackoffMax,
		ParseWorkers:    cfg.Sync.ParseWorkers,
		ImageHost:       cfg.Wiki.ImageHost,
		DryRun:          dryRun,
	}
}

func (c Config) normalized() Config {
	if c.BatchSize <= 0 || c.BatchSize > config.MaxBatchSize {
		c.BatchSize = config.MaxBatchSize
	}
	if c.MaxFetchRetries < 0 {
		c.MaxFetchRetries = 0
	}
	if c.BackoffInitial <= 0 {
		c.BackoffInitial = time.Second
	}
	if c.BackoffMax < c.BackoffInitial {
		c.BackoffMax = c.BackoffInitial
	}
	if c.ParseWorkers < 1 {
		c.ParseWorkers = 1
	}
	return c
}
