package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateCleanup(); err != nil {
		return err
	}
	if err := c.validateAlbums(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateScan() error {
	if c.Scan.MaxDepth < 0 {
		return errors.New("scan.max_depth must not be negative")
	}
	return nil
}

func (c *Config) validateCleanup() error {
	if c.Cleanup.MaxPasses < 1 || c.Cleanup.MaxPasses > defaultMaxPasses {
		return fmt.Errorf("cleanup.max_passes must be between 1 and %d", defaultMaxPasses)
	}
	if strings.ContainsAny(c.Cleanup.FallbackName, `<>:"/\|?*`) {
		return errors.New("cleanup.fallback_name must be a valid file name")
	}
	return nil
}

func (c *Config) validateAlbums() error {
	if c.Albums.Threshold < 0 {
		return errors.New("albums.threshold must not be negative")
	}
	switch c.Albums.Placement {
	case PlacementSibling, PlacementInPlace:
	default:
		return fmt.Errorf("albums.placement must be %q or %q, got %q", PlacementSibling, PlacementInPlace, c.Albums.Placement)
	}
	if strings.ContainsAny(c.Albums.Quarantine, `/\`) {
		return errors.New("albums.quarantine must be a single directory name")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
}
