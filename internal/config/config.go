package config

import (
	"time"

	"github.com/g33ktony/hot-wheels-manager-sub006/internal/domain"
)

// Config is the root application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Log      LogConfig      `yaml:"log"`
	Wiki     WikiConfig     `yaml:"wiki"`
	Sync     SyncConfig     `yaml:"sync"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"10"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI            string        `yaml:"uri"             env:"MONGO_URI"`
	Database       string        `yaml:"database"        env:"MONGO_DATABASE"        env-default:"hotwheels"`
	Collection     string        `yaml:"collection"      env:"MONGO_COLLECTION"      env-default:"vehicles"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"MONGO_CONNECT_TIMEOUT" env-default:"10s"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// WikiConfig holds MediaWiki API client settings.
type WikiConfig struct {
	APIURL      string        `yaml:"api_url"      env:"WIKI_API_URL"      env-default:"https://hotwheels.fandom.com/api.php"`
	ImageHost   string        `yaml:"image_host"   env:"WIKI_IMAGE_HOST"   env-default:"https://static.wikia.nocookie.net/hotwheels/images/"`
	UserAgent   string        `yaml:"user_agent"   env:"WIKI_USER_AGENT"   env-default:"hot-wheels-catalogsync/1.0"`
	Timeout     time.Duration `yaml:"timeout"      env:"WIKI_TIMEOUT"      env-default:"30s"`
	BatchSize   int           `yaml:"batch_size"   env:"WIKI_BATCH_SIZE"   env-default:"50"`
	MinInterval time.Duration `yaml:"min_interval" env:"WIKI_MIN_INTERVAL" env-default:"400ms"`
}

// SyncConfig holds orchestrator settings.
type SyncConfig struct {
	Store           string        `yaml:"store"             env:"SYNC_STORE"             env-default:"postgres"`
	MaxFetchRetries int           `yaml:"max_fetch_retries" env:"SYNC_MAX_FETCH_RETRIES" env-default:"3"`
	BackoffInitial  time.Duration `yaml:"backoff_initial"   env:"SYNC_BACKOFF_INITIAL"   env-default:"1s"`
	BackoffMax      time.Duration `yaml:"backoff_max"       env:"SYNC_BACKOFF_MAX"       env-default:"30s"`
	ParseWorkers    int           `yaml:"parse_workers"     env:"SYNC_PARSE_WORKERS"     env-default:"4"`
	ProgressPath    string        `yaml:"progress_path"     env:"SYNC_PROGRESS_PATH"     env-default:"./catalogsync-progress.json"`
	TitlesPath      string        `yaml:"titles_path"       env:"SYNC_TITLES_PATH"`
	Categories      []string      `yaml:"categories"        env:"SYNC_CATEGORIES"        env-separator:","`
}

// MetricsConfig holds Prometheus push settings. An empty PushgatewayURL
// disables the push.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url" env:"METRICS_PUSHGATEWAY_URL"`
	Job            string `yaml:"job"             env:"METRICS_JOB"             env-default:"catalogsync"`
}

// StoreDriver returns the configured catalog store backend.
func (c SyncConfig) StoreDriver() domain.StoreDriver {
	return domain.StoreDriver(c.Store)
}
