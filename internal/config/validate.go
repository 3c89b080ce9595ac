package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/g33ktony/hot-wheels-manager-sub006/internal/domain"
)

// MaxBatchSize is the largest number of titles the wiki accepts in one query.
const MaxBatchSize = 50

// MinRequestInterval is the floor between successive wiki request starts.
const MinRequestInterval = 400 * time.Millisecond

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if err := c.Wiki.validate(); err != nil {
		return fmt.Errorf("wiki: %w", err)
	}
	if err := c.Sync.validate(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	switch c.Sync.StoreDriver() {
	case domain.StorePostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for store %q", c.Sync.Store)
		}
	case domain.StoreMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("mongo.uri is required for store %q", c.Sync.Store)
		}
	}

	return nil
}

func (w *WikiConfig) validate() error {
	u, err := url.Parse(w.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api_url must be an absolute URL (got %q)", w.APIURL)
	}
	if w.BatchSize < 1 || w.BatchSize > MaxBatchSize {
		return fmt.Errorf("batch_size must be in [1, %d] (got %d)", MaxBatchSize, w.BatchSize)
	}
	if w.MinInterval < MinRequestInterval {
		return fmt.Errorf("min_interval must be >= %v (got %v)", MinRequestInterval, w.MinInterval)
	}
	if w.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0 (got %v)", w.Timeout)
	}
	return nil
}

func (s *SyncConfig) validate() error {
	if !s.StoreDriver().IsValid() {
		return fmt.Errorf("store must be one of postgres, mongo, memory (got %q)", s.Store)
	}
	if s.MaxFetchRetries < 0 {
		return fmt.Errorf("max_fetch_retries must be >= 0 (got %d)", s.MaxFetchRetries)
	}
	if s.ParseWorkers < 1 {
		return fmt.Errorf("parse_workers must be >= 1 (got %d)", s.ParseWorkers)
	}
	if s.BackoffInitial <= 0 {
		return fmt.Errorf("backoff_initial must be > 0 (got %v)", s.BackoffInitial)
	}
	if s.BackoffMax < s.BackoffInitial {
		return fmt.Errorf("backoff_max must be >= backoff_initial (got %v < %v)", s.BackoffMax, s.BackoffInitial)
	}
	if s.ProgressPath == "" {
		return fmt.Errorf("progress_path is required")
	}
	return nil
}
