package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAuth(); err != nil {
		return err
	}
	if err := c.validateBookshelf(); err != nil {
		return err
	}
	if err := c.validateProviders(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAuth() error {
	seen := make(map[string]struct{}, len(c.Auth.Users))
	for i, user := range c.Auth.Users {
		if user.ID == "" {
			return fmt.Errorf("auth.users[%d].id must be set", i)
		}
		if _, ok := seen[user.ID]; ok {
			return fmt.Errorf("auth.users[%d].id %q is duplicated", i, user.ID)
		}
		seen[user.ID] = struct{}{}
	}
	if len(c.Auth.Users) > 0 && c.Auth.TokenSecret == "" {
		return errors.New("auth.token_secret is required when auth.users are configured (or set AUDIOSHELF_TOKEN_SECRET)")
	}
	return nil
}

func (c *Config) validateBookshelf() error {
	if err := ensurePositiveMap(map[string]int{
		"bookshelf.entities_per_shelf": c.Bookshelf.EntitiesPerShelf,
		"bookshelf.card_width":         c.Bookshelf.CardWidth,
		"bookshelf.card_height":        c.Bookshelf.CardHeight,
		"bookshelf.max_views_per_user": c.Bookshelf.MaxViewsPerUser,
	}); err != nil {
		return err
	}
	if c.Bookshelf.CardGap < 0 {
		return errors.New("bookshelf.card_gap must be >= 0")
	}
	if c.Bookshelf.MarginLeft < 0 {
		return errors.New("bookshelf.margin_left must be >= 0")
	}
	switch c.Bookshelf.ViewMode {
	case "standard", "detail":
	default:
		return fmt.Errorf("bookshelf.view_mode: unsupported value %q", c.Bookshelf.ViewMode)
	}
	return nil
}

func (c *Config) validateProviders() error {
	if !strings.HasPrefix(c.Providers.AudnexusBaseURL, "http://") && !strings.HasPrefix(c.Providers.AudnexusBaseURL, "https://") {
		return fmt.Errorf("providers.audnexus_base_url must be an http(s) url, got %q", c.Providers.AudnexusBaseURL)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
