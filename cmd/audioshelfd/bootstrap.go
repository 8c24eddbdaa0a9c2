package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"audioshelf/internal/config"
	"audioshelf/internal/daemon"
	"audioshelf/internal/logging"
	"audioshelf/internal/store"
)

const (
	envConfigPath = "AUDIOSHELF_CONFIG"
	envEnvFile    = "AUDIOSHELF_ENV_FILE"
)

// envFiles lists the dotenv files read at startup.
func envFiles() []string {
	if path := strings.TrimSpace(os.Getenv(envEnvFile)); path != "" {
		return []string{path}
	}
	return []string{".env"}
}

// loadEnvFiles applies dotenv files that exist. Variables already set in
// the environment win.
func loadEnvFiles(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

func configPathFromEnv() string {
	return strings.TrimSpace(os.Getenv(envConfigPath))
}

func run(ctx context.Context, configPath string) error {
	cfg, path, exists, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if !exists {
		logging.WarnWithContext(logger, "config file not found; using defaults", "config_missing",
			logging.String("path", path),
			logging.String(logging.FieldErrorHint, "run audioshelf config init to create one"),
		)
	}

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open library store", logging.Error(err))
		return err
	}

	d, err := daemon.New(cfg, st, logger)
	if err != nil {
		_ = st.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	<-ctx.Done()
	logger.Info("audioshelfd shutting down")
	return nil
}
