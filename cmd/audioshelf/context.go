package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"audioshelf/internal/api"
	"audioshelf/internal/config"
	"audioshelf/internal/events"
	"audioshelf/internal/imagecache"
	"audioshelf/internal/library"
	"audioshelf/internal/logging"
	"audioshelf/internal/store"
)

type commandContext struct {
	configFlag *string
	outputFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error

	storeOnce sync.Once
	store     *store.Store
	storeErr  error
}

func newCommandContext(configFlag, outputFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		outputFlag: outputFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configSeen = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) openStore() (*store.Store, error) {
	c.storeOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.storeErr = err
			return
		}
		c.store, c.storeErr = store.Open(cfg)
		if c.storeErr != nil {
			c.storeErr = fmt.Errorf("open library store: %w", c.storeErr)
		}
	})
	return c.store, c.storeErr
}

func (c *commandContext) close() {
	if c.store != nil {
		_ = c.store.Close()
	}
}

func (c *commandContext) output() outputFormat {
	if c.outputFlag == nil {
		return formatTable
	}
	format, err := parseOutputFormat(*c.outputFlag)
	if err != nil {
		return formatTable
	}
	return format
}

// logger is quiet so command output stays machine readable.
func (c *commandContext) logger() *slog.Logger {
	return logging.NewNop()
}

func (c *commandContext) authorService() (*api.AuthorService, error) {
	st, err := c.openStore()
	if err != nil {
		return nil, err
	}
	cfg := c.config
	return api.NewAuthorService(api.AuthorServiceOptions{
		Store:  st,
		Images: imagecache.New(cfg.Paths.CacheDir, cfg.ImageCache.MaxMiB, cfg.ImageCache.DefaultWidth, c.logger()),
		Events: events.Nop{},
		Logger: c.logger(),
	}), nil
}

// resolveLibrary returns the library named by flag (id or name). Without a
// flag the only library is used.
func (c *commandContext) resolveLibrary(ctx context.Context, flag string) (*library.Library, error) {
	st, err := c.openStore()
	if err != nil {
		return nil, err
	}
	libs, err := st.ListLibraries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list libraries: %w", err)
	}
	flag = strings.TrimSpace(flag)
	if flag == "" {
		switch len(libs) {
		case 0:
			return nil, errors.New("no libraries found")
		case 1:
			return libs[0], nil
		default:
			return nil, errors.New("multiple libraries found; select one with --library")
		}
	}
	for _, lib := range libs {
		if lib.ID == flag || strings.EqualFold(lib.Name, flag) {
			return lib, nil
		}
	}
	return nil, fmt.Errorf("library %q not found", flag)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
