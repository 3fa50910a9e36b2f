package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultGammaURL    = "https://gamma-api.polymarket.com"
	DefaultClobURL     = "https://clob.polymarket.com"
	DefaultWSURL       = "wss://ws-subscriptions-clob.polymarket.com/ws/market"
	DefaultSubgraphURL = "https://api.goldsky.com/api/public/project_cl6mb8i9h0003e201j6li0diw/subgraphs/orderbook-subgraph/prod/gn"

	DefaultAPITimeout = 30 * time.Second
	DefaultMaxRetries = 3

	DefaultDBPort    = 5432
	DefaultDBSSLMode = "prefer"
	DefaultMaxConns  = 10
	DefaultMinConns  = 2

	DefaultStreamMarketLimit  = 200
	DefaultSubscribeBatchSize = 50
	DefaultSubscribeDelay     = 500 * time.Millisecond
	DefaultReadTimeout        = 60 * time.Second
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 60 * time.Second
	DefaultStatsInterval      = 60 * time.Second

	DefaultPollInterval     = 60 * time.Second
	DefaultPollMarketLimit  = 100
	DefaultPollBatchSize    = 20
	DefaultPollBatchDelay   = 2 * time.Second
	DefaultPollFetchTimeout = 10 * time.Second
	DefaultPollMinMid       = 0.10
	DefaultPollMaxMid       = 0.90

	DefaultPageSize       = 1000
	DefaultPageDelay      = 100 * time.Millisecond
	DefaultRetryBaseDelay = 1 * time.Second
	DefaultProgressEvery  = 10

	DefaultMetricsPort = 9090
	DefaultMetricsPath = "/metrics"
)

func (c *Config) applyDefaults() {
	// API defaults
	if c.API.GammaURL == "" {
		c.API.GammaURL = DefaultGammaURL
	}
	if c.API.ClobURL == "" {
		c.API.ClobURL = DefaultClobURL
	}
	if c.API.WSURL == "" {
		c.API.WSURL = DefaultWSURL
	}
	if c.API.SubgraphURL == "" {
		c.API.SubgraphURL = DefaultSubgraphURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}

	// Database defaults
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	// Stream defaults
	if c.Stream.MarketLimit == 0 {
		c.Stream.MarketLimit = DefaultStreamMarketLimit
	}
	if c.Stream.SubscribeBatchSize == 0 {
		c.Stream.SubscribeBatchSize = DefaultSubscribeBatchSize
	}
	if c.Stream.SubscribeDelay == 0 {
		c.Stream.SubscribeDelay = DefaultSubscribeDelay
	}
	if c.Stream.ReadTimeout == 0 {
		c.Stream.ReadTimeout = DefaultReadTimeout
	}
	if c.Stream.ReconnectBaseDelay == 0 {
		c.Stream.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Stream.ReconnectMaxDelay == 0 {
		c.Stream.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Stream.StatsInterval == 0 {
		c.Stream.StatsInterval = DefaultStatsInterval
	}

	// Poller defaults
	if c.Poller.Interval == 0 {
		c.Poller.Interval = DefaultPollInterval
	}
	if c.Poller.MarketLimit == 0 {
		c.Poller.MarketLimit = DefaultPollMarketLimit
	}
	if c.Poller.BatchSize == 0 {
		c.Poller.BatchSize = DefaultPollBatchSize
	}
	if c.Poller.BatchDelay == 0 {
		c.Poller.BatchDelay = DefaultPollBatchDelay
	}
	if c.Poller.FetchTimeout == 0 {
		c.Poller.FetchTimeout = DefaultPollFetchTimeout
	}
	if c.Poller.MinMid == 0 {
		c.Poller.MinMid = DefaultPollMinMid
	}
	if c.Poller.MaxMid == 0 {
		c.Poller.MaxMid = DefaultPollMaxMid
	}

	// Extractor defaults
	if c.Extractor.PageSize == 0 {
		c.Extractor.PageSize = DefaultPageSize
	}
	if c.Extractor.PageDelay == 0 {
		c.Extractor.PageDelay = DefaultPageDelay
	}
	if c.Extractor.MaxRetries == 0 {
		c.Extractor.MaxRetries = DefaultMaxRetries
	}
	if c.Extractor.RetryBaseDelay == 0 {
		c.Extractor.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if c.Extractor.ProgressEvery == 0 {
		c.Extractor.ProgressEvery = DefaultProgressEvery
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}
