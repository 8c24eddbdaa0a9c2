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
	c.normalizeAuth()
	c.normalizeBookshelf()
	c.normalizeProviders()
	c.normalizeImageCache()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.MetadataDir) == "" {
		c.Paths.MetadataDir = defaultMetadataDir
	}
	if c.Paths.MetadataDir, err = expandPath(c.Paths.MetadataDir); err != nil {
		return fmt.Errorf("paths.metadata_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeAuth() {
	c.Auth.TokenSecret = strings.TrimSpace(c.Auth.TokenSecret)
	if c.Auth.TokenSecret == "" {
		if value, ok := os.LookupEnv("AUDIOSHELF_TOKEN_SECRET"); ok {
			c.Auth.TokenSecret = strings.TrimSpace(value)
		}
	}
	if c.Auth.TokenTTLHours <= 0 {
		c.Auth.TokenTTLHours = defaultTokenTTLHours
	}
	for i := range c.Auth.Users {
		c.Auth.Users[i].ID = strings.TrimSpace(c.Auth.Users[i].ID)
		c.Auth.Users[i].Username = strings.TrimSpace(c.Auth.Users[i].Username)
		if c.Auth.Users[i].Username == "" {
			c.Auth.Users[i].Username = c.Auth.Users[i].ID
		}
	}
}

func (c *Config) normalizeBookshelf() {
	c.Bookshelf.ViewMode = strings.ToLower(strings.TrimSpace(c.Bookshelf.ViewMode))
	if c.Bookshelf.ViewMode == "" {
		c.Bookshelf.ViewMode = defaultViewMode
	}
	if c.Bookshelf.CoverAspectRatio <= 0 {
		c.Bookshelf.CoverAspectRatio = defaultCoverAspectRatio
	}
}

func (c *Config) normalizeProviders() {
	if c.Providers.RequestTimeoutSeconds <= 0 {
		c.Providers.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
	c.Providers.AudnexusBaseURL = strings.TrimRight(strings.TrimSpace(c.Providers.AudnexusBaseURL), "/")
	if c.Providers.AudnexusBaseURL == "" {
		c.Providers.AudnexusBaseURL = defaultAudnexusBaseURL
	}
	c.Providers.AudnexusRegion = strings.ToLower(strings.TrimSpace(c.Providers.AudnexusRegion))
	if c.Providers.AudnexusRegion == "" {
		c.Providers.AudnexusRegion = defaultAudnexusRegion
	}
	if c.Providers.RequestsPerSecond <= 0 {
		c.Providers.RequestsPerSecond = defaultRequestsPerSecond
	}
}

func (c *Config) normalizeImageCache() {
	if c.ImageCache.MaxMiB <= 0 {
		c.ImageCache.MaxMiB = defaultImageCacheMaxMiB
	}
	if c.ImageCache.DefaultWidth <= 0 {
		c.ImageCache.DefaultWidth = defaultImageWidth
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
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
