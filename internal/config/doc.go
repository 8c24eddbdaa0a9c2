// Package config loads, normalizes, and validates audioshelf configuration.
//
// Configuration is read from TOML (default ~/.config/audioshelf/config.toml,
// falling back to ./audioshelf.toml) and decoded onto Default(). Paths are
// expanded (including ~), secrets fall back to environment variables, and
// Validate rejects settings the daemon cannot run with.
//
// The bookshelf section is the shared card layout every shelf view starts
// from; entities_per_shelf must be positive because the shelf geometry
// divides by it.
package config
