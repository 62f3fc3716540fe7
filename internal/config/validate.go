package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBatch(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateBatch() error {
	if c.Batch.Parallelism < 0 {
		return errors.New("batch.parallelism must be zero (auto) or positive")
	}
	if c.Batch.Divisor < 1 {
		return errors.New("batch.divisor must be at least 1")
	}
	if c.Batch.Balance < 0 || c.Batch.Balance > 100 {
		return fmt.Errorf("batch.balance must be between 0 and 100, got %d", c.Batch.Balance)
	}
	if strings.ContainsAny(c.Batch.OutputPrefix, `/\`) {
		return fmt.Errorf("batch.output_prefix must not contain path separators, got %q", c.Batch.OutputPrefix)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
