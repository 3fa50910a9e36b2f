package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if err := c.Database.validate("database"); err != nil {
		return err
	}

	if c.Stream.SubscribeBatchSize < 1 {
		return errors.New("stream.subscribe_batch_size must be >= 1")
	}
	if c.Stream.ReconnectBaseDelay > c.Stream.ReconnectMaxDelay {
		return fmt.Errorf("stream.reconnect_base_delay (%v) cannot exceed reconnect_max_delay (%v)",
			c.Stream.ReconnectBaseDelay, c.Stream.ReconnectMaxDelay)
	}

	if c.Poller.BatchSize < 1 {
		return errors.New("poller.batch_size must be >= 1")
	}
	if c.Poller.MinMid < 0 || c.Poller.MaxMid > 1 || c.Poller.MinMid >= c.Poller.MaxMid {
		return fmt.Errorf("poller mid-price bounds invalid: min=%v max=%v", c.Poller.MinMid, c.Poller.MaxMid)
	}

	if c.Extractor.PageSize < 1 {
		return errors.New("extractor.page_size must be >= 1")
	}
	if c.Extractor.MaxRetries < 1 {
		return errors.New("extractor.max_retries must be >= 1")
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
