package config

import (
	"errors"
	"fmt"

	"github.com/lazypower/culler/internal/logging"
	"github.com/lazypower/culler/internal/similarity"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateGrouping(); err != nil {
		return err
	}
	if err := c.validateFaces(); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	return nil
}

func (c *Config) validateGrouping() error {
	g := c.Grouping
	if g.WindowMinutes < 1 {
		return errors.New("grouping.window_minutes must be at least 1")
	}
	if g.DailyQuota < 1 {
		return errors.New("grouping.daily_quota must be at least 1")
	}
	if g.FirstBatch < 1 || g.NextBatch < 1 {
		return errors.New("grouping.first_batch and grouping.next_batch must be positive")
	}
	if g.LookAhead < 1 {
		return errors.New("grouping.look_ahead must be at least 1")
	}
	if g.ReplenishBelow < 0 || g.ReplenishBelow > g.LookAhead {
		return errors.New("grouping.replenish_below must be between 0 and look_ahead")
	}
	if g.BitmapSize < 32 {
		return errors.New("grouping.bitmap_size must be at least 32")
	}
	if g.CacheTTLMinutes < 0 {
		return errors.New("grouping.cache_ttl_minutes must not be negative")
	}
	if g.Preset != "" {
		if _, err := similarity.ParsePreset(g.Preset); err != nil {
			return fmt.Errorf("grouping.preset: %w", err)
		}
	}
	return nil
}

func (c *Config) validateFaces() error {
	if c.Faces.Threshold < 0 || c.Faces.Threshold > 1 {
		return errors.New("faces.threshold must be between 0 and 1")
	}
	if c.Faces.RequestsPerSecond < 0 {
		return errors.New("faces.requests_per_second must not be negative")
	}
	if c.Faces.TimeoutSeconds < 0 {
		return errors.New("faces.timeout_seconds must not be negative")
	}
	return nil
}

// RequireLibrary reports an error when no library root is configured.
func (c *Config) RequireLibrary() error {
	if c.Library.Root == "" {
		path, err := DefaultConfigPath()
		if err != nil {
			path = "~/.config/culler/config.toml"
		}
		return fmt.Errorf("library.root is required. Pass --library or edit %s (create with 'culler config sample')", path)
	}
	return nil
}
