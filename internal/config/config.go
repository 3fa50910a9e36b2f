package config

import "time"

// Config is the root configuration shared by the capture binaries.
type Config struct {
	Instance  InstanceConfig  `yaml:"instance"`
	API       APIConfig       `yaml:"api"`
	Database  DBConfig        `yaml:"database"`
	Stream    StreamConfig    `yaml:"stream"`
	Poller    PollerConfig    `yaml:"poller"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// InstanceConfig identifies this capture instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// APIConfig holds the Polymarket endpoint set.
type APIConfig struct {
	GammaURL    string        `yaml:"gamma_url"`    // Market directory (REST)
	ClobURL     string        `yaml:"clob_url"`     // Order book fetch (REST)
	WSURL       string        `yaml:"ws_url"`       // Market channel push feed
	SubgraphURL string        `yaml:"subgraph_url"` // Fill history (GraphQL)
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
}

// DBConfig holds the PostgreSQL connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// StreamConfig holds stream collector settings.
type StreamConfig struct {
	MarketLimit        int           `yaml:"market_limit"`         // Markets to discover tokens from
	SubscribeBatchSize int           `yaml:"subscribe_batch_size"` // Tokens per subscribe request
	SubscribeDelay     time.Duration `yaml:"subscribe_delay"`      // Delay between subscribe batches
	ReadTimeout        time.Duration `yaml:"read_timeout"`         // Silence window before a liveness probe
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	StatsInterval      time.Duration `yaml:"stats_interval"`
}

// PollerConfig holds snapshot poller settings.
type PollerConfig struct {
	Interval     time.Duration `yaml:"interval"`      // Target cycle cadence
	MarketLimit  int           `yaml:"market_limit"`  // Max targets per cycle
	BatchSize    int           `yaml:"batch_size"`    // Concurrent fetches per batch
	BatchDelay   time.Duration `yaml:"batch_delay"`   // Delay between batches
	FetchTimeout time.Duration `yaml:"fetch_timeout"` // Per-target timeout
	MinMid       float64       `yaml:"min_mid"`       // Inclusive lower mid-price bound
	MaxMid       float64       `yaml:"max_mid"`       // Inclusive upper mid-price bound
}

// ExtractorConfig holds bulk backfill settings.
type ExtractorConfig struct {
	PageSize       int           `yaml:"page_size"`
	PageDelay      time.Duration `yaml:"page_delay"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
	ProgressEvery  int           `yaml:"progress_every"` // Pages between progress lines
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
