package testsupport

import (
	"path/filepath"
	"testing"

	"audioshelf/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.MetadataDir = filepath.Join(base, "metadata")
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Auth.TokenSecret = "test-secret"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithUsers replaces the configured API users.
func WithUsers(users ...config.User) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Auth.Users = users
	}
}

// WithShelfCapacity overrides the number of cards per shelf.
func WithShelfCapacity(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Bookshelf.EntitiesPerShelf = n
	}
}

// WithMaxViews overrides how many shelf views one user may keep open.
func WithMaxViews(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Bookshelf.MaxViewsPerUser = n
	}
}

// WithProviderBaseURL points the Audnexus client at a test server.
func WithProviderBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Providers.AudnexusBaseURL = url
		b.cfg.Providers.RequestsPerSecond = 1000
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
