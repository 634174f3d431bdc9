package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateProviders(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateKoSync(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateProviders() error {
	if c.Audiobookshelf.URL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/tandem/config.toml"
		}
		return fmt.Errorf("audiobookshelf.url is required. Edit %s (create with 'tandem config init')", defaultPath)
	}
	if c.Audiobookshelf.Token == "" {
		return errors.New("audiobookshelf.token is required. Set ABS_TOKEN env var or edit the config file")
	}
	if c.KoSync.URL == "" {
		return errors.New("kosync.url is required")
	}
	if c.KoSync.User == "" {
		return errors.New("kosync.user is required")
	}
	if c.KoSync.Key == "" {
		return errors.New("kosync.key is required. Set KOSYNC_KEY env var or edit the config file")
	}
	return nil
}

func (c *Config) validateKoSync() error {
	switch c.KoSync.HashMethod {
	case HashMethodContent, HashMethodFilename:
		return nil
	default:
		return fmt.Errorf("kosync.hash_method must be %q or %q", HashMethodContent, HashMethodFilename)
	}
}

func (c *Config) validateSync() error {
	if c.Sync.ReadingDeltaPercent > 100 {
		return errors.New("sync.reading_delta_percent must be at most 100")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not a recognized level", c.Logging.Level)
	}
}
