package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScan()
	c.normalizeCleanup()
	c.normalizeAlbums()
	if c.History.KeepRuns < 0 {
		c.History.KeepRuns = 0
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeScan() {
	if c.Scan.MaxDepth == 0 {
		c.Scan.MaxDepth = defaultMaxDepth
	}
	exts := dedupeLower(c.Scan.Extensions, func(v string) string {
		if !strings.HasPrefix(v, ".") {
			return "." + v
		}
		return v
	})
	if len(exts) == 0 {
		exts = append([]string(nil), defaultExtensions...)
	}
	c.Scan.Extensions = exts
}

func (c *Config) normalizeCleanup() {
	if c.Cleanup.MaxPasses == 0 {
		c.Cleanup.MaxPasses = defaultMaxPasses
	}
	c.Cleanup.FallbackName = strings.TrimSpace(c.Cleanup.FallbackName)
	if c.Cleanup.FallbackName == "" {
		c.Cleanup.FallbackName = defaultFallbackName
	}
	suffixes := dedupeLower(c.Cleanup.WebSuffixes, func(v string) string {
		return strings.TrimPrefix(v, ".")
	})
	if len(suffixes) == 0 {
		suffixes = append([]string(nil), defaultWebSuffixes...)
	}
	c.Cleanup.WebSuffixes = suffixes
}

func (c *Config) normalizeAlbums() {
	c.Albums.Quarantine = strings.TrimSpace(c.Albums.Quarantine)
	c.Albums.Placement = strings.ToLower(strings.TrimSpace(c.Albums.Placement))
	if c.Albums.Placement == "" {
		c.Albums.Placement = defaultPlacement
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	if value, ok := os.LookupEnv(logLevelEnvironment); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func dedupeLower(values []string, shape func(string) string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		normalized := strings.ToLower(strings.TrimSpace(value))
		if normalized == "" {
			continue
		}
		normalized = shape(normalized)
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}
