package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir     string `toml:"data_dir"`
	LogDir      string `toml:"log_dir"`
	MetadataDir string `toml:"metadata_dir"`
	CacheDir    string `toml:"cache_dir"`
	APIBind     string `toml:"api_bind"`
}

// User describes an account allowed to call the HTTP API.
type User struct {
	ID        string `toml:"id"`
	Username  string `toml:"username"`
	CanUpdate bool   `toml:"can_update"`
	CanDelete bool   `toml:"can_delete"`
	CanUpload bool   `toml:"can_upload"`
}

// Auth contains bearer token settings and the configured users.
type Auth struct {
	TokenSecret   string `toml:"token_secret"`
	TokenTTLHours int    `toml:"token_ttl_hours"`
	Users         []User `toml:"users"`
}

// Bookshelf contains the shared card layout used by the shelf renderer.
type Bookshelf struct {
	EntitiesPerShelf    int     `toml:"entities_per_shelf"`
	CardWidth           int     `toml:"card_width"`
	CardHeight          int     `toml:"card_height"`
	CardGap             int     `toml:"card_gap"`
	MarginLeft          int     `toml:"margin_left"`
	CoverAspectRatio    float64 `toml:"cover_aspect_ratio"`
	ViewMode            string  `toml:"view_mode"`
	SortingIgnorePrefix bool    `toml:"sorting_ignore_prefix"`
	// MaxViewsPerUser bounds the open shelf views of one user in a library.
	MaxViewsPerUser int `toml:"max_views_per_user"`
}

// Providers contains settings for third-party metadata lookups.
type Providers struct {
	RequestTimeoutSeconds int     `toml:"request_timeout_seconds"`
	AudnexusBaseURL       string  `toml:"audnexus_base_url"`
	AudnexusRegion        string  `toml:"audnexus_region"`
	RequestsPerSecond     float64 `toml:"requests_per_second"`
}

// ImageCache contains settings for resized image caching.
type ImageCache struct {
	MaxMiB       int `toml:"max_mib"`
	DefaultWidth int `toml:"default_width"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for audioshelf.
//
// Configuration sections by subsystem:
//   - Paths: data, metadata, cache and log directories plus the API bind address
//   - Auth: token signing secret and API users with their permissions
//   - Bookshelf: card geometry shared by every shelf view
//   - Providers: Audnexus and custom metadata provider settings
//   - ImageCache: resized author image cache limits
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Auth       Auth       `toml:"auth"`
	Bookshelf  Bookshelf  `toml:"bookshelf"`
	Providers  Providers  `toml:"providers"`
	ImageCache ImageCache `toml:"image_cache"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("audioshelf.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.MetadataDir, c.Paths.CacheDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the SQLite library database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "library.db")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "audioshelfd.lock")
}

// AuthorImageDir returns the directory holding downloaded author images.
func (c *Config) AuthorImageDir() string {
	return filepath.Join(c.Paths.MetadataDir, "authors")
}

// UserByID returns the configured user with the given id.
func (c *Config) UserByID(id string) (User, bool) {
	for _, user := range c.Auth.Users {
		if user.ID == id {
			return user, true
		}
	}
	return User{}, false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
