package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWorker(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateWorker() error {
	if strings.TrimSpace(c.Worker.Binary) == "" {
		return errors.New("worker.binary must be set")
	}
	if c.Worker.FetchMaxAttempts < 1 {
		return errors.New("worker.fetch_max_attempts must be at least 1")
	}
	if c.Worker.FetchBackoffSeconds < 0 {
		return errors.New("worker.fetch_backoff_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if c.Analysis.ChunkChars < 1 {
		return errors.New("analysis.chunk_chars must be positive")
	}
	if c.Analysis.MapConcurrency < 1 {
		return errors.New("analysis.map_concurrency must be at least 1")
	}
	return nil
}

func (c *Config) validateBatch() error {
	if c.Batch.MaxConcurrent < 1 {
		return errors.New("batch.max_concurrent must be at least 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
