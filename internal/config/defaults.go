package config

const (
	defaultConfigPath            = "~/.config/audioshelf/config.toml"
	defaultDataDir               = "~/.local/share/audioshelf"
	defaultLogDir                = "~/.local/share/audioshelf/logs"
	defaultMetadataDir           = "~/.local/share/audioshelf/metadata"
	defaultCacheDir              = "~/.cache/audioshelf"
	defaultAPIBind               = "127.0.0.1:13378"
	defaultTokenTTLHours         = 24 * 30
	defaultEntitiesPerShelf      = 8
	defaultCardWidth             = 120
	defaultCardHeight            = 192
	defaultCardGap               = 24
	defaultMarginLeft            = 16
	defaultCoverAspectRatio      = 1.6
	defaultViewMode              = "standard"
	defaultMaxViewsPerUser       = 16
	defaultRequestTimeoutSeconds = 30
	defaultAudnexusBaseURL       = "https://api.audnex.us"
	defaultAudnexusRegion        = "us"
	defaultRequestsPerSecond     = 2
	defaultImageCacheMaxMiB      = 256
	defaultImageWidth            = 400
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:     defaultDataDir,
			LogDir:      defaultLogDir,
			MetadataDir: defaultMetadataDir,
			CacheDir:    defaultCacheDir,
			APIBind:     defaultAPIBind,
		},
		Auth: Auth{
			TokenTTLHours: defaultTokenTTLHours,
		},
		Bookshelf: Bookshelf{
			EntitiesPerShelf: defaultEntitiesPerShelf,
			CardWidth:        defaultCardWidth,
			CardHeight:       defaultCardHeight,
			CardGap:          defaultCardGap,
			MarginLeft:       defaultMarginLeft,
			CoverAspectRatio: defaultCoverAspectRatio,
			ViewMode:         defaultViewMode,
			MaxViewsPerUser:  defaultMaxViewsPerUser,
		},
		Providers: Providers{
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
			AudnexusBaseURL:       defaultAudnexusBaseURL,
			AudnexusRegion:        defaultAudnexusRegion,
			RequestsPerSecond:     defaultRequestsPerSecond,
		},
		ImageCache: ImageCache{
			MaxMiB:       defaultImageCacheMaxMiB,
			DefaultWidth: defaultImageWidth,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
