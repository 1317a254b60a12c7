package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDownload(); err != nil {
		return err
	}
	if err := c.validateWatchlist(); err != nil {
		return err
	}
	if err := c.validateTransfer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateDownload() error {
	if c.Download.MaxConcurrent < 1 {
		return errors.New("download.max_concurrent must be at least 1")
	}
	if c.Download.MaxRetries < 1 {
		return errors.New("download.max_retries must be at least 1")
	}
	if c.Download.RetryDelaySeconds < 1 {
		return errors.New("download.retry_delay_seconds must be at least 1")
	}
	if strings.TrimSpace(c.Download.OutputTemplate) == "" {
		return errors.New("download.output_template must be set")
	}
	return nil
}

func (c *Config) validateWatchlist() error {
	if strings.TrimSpace(c.Watchlist.Path) == "" {
		return errors.New("watchlist.path must be set")
	}
	if c.Watchlist.PollIntervalSeconds < 1 {
		return errors.New("watchlist.poll_interval_seconds must be at least 1")
	}
	return nil
}

func (c *Config) validateTransfer() error {
	if strings.TrimSpace(c.Transfer.AMQPURL) == "" {
		// Transfer is optional; remote-sync actions fall back to the noop
		// submitter when no broker is configured.
		return nil
	}
	if strings.TrimSpace(c.Transfer.Exchange) == "" {
		return errors.New("transfer.exchange must be set when transfer.amqp_url is configured")
	}
	if strings.TrimSpace(c.Transfer.RoutingKey) == "" {
		return errors.New("transfer.routing_key must be set when transfer.amqp_url is configured")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
