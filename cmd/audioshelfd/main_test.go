package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEnvFilesSkipsMissing(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "audioshelf.env")
	if err := os.WriteFile(envPath, []byte("AUDIOSHELF_TEST_DOTENV=from-file\n"), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("AUDIOSHELF_TEST_DOTENV") })

	if err := loadEnvFiles(filepath.Join(dir, "missing.env"), envPath); err != nil {
		t.Fatalf("loadEnvFiles: %v", err)
	}
	if got := os.Getenv("AUDIOSHELF_TEST_DOTENV"); got != "from-file" {
		t.Fatalf("expected value from env file, got %q", got)
	}
}

func TestLoadEnvFilesKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("AUDIOSHELF_TEST_KEEP=file\n"), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("AUDIOSHELF_TEST_KEEP", "shell")

	if err := loadEnvFiles(envPath); err != nil {
		t.Fatalf("loadEnvFiles: %v", err)
	}
	if got := os.Getenv("AUDIOSHELF_TEST_KEEP"); got != "shell" {
		t.Fatalf("expected shell value to win, got %q", got)
	}
}

func TestEnvFilesOverride(t *testing.T) {
	t.Setenv(envEnvFile, "")
	if got := envFiles(); len(got) != 1 || got[0] != ".env" {
		t.Fatalf("unexpected default env files %v", got)
	}
	t.Setenv(envEnvFile, "/etc/audioshelf.env")
	if got := envFiles(); len(got) != 1 || got[0] != "/etc/audioshelf.env" {
		t.Fatalf("unexpected env files %v", got)
	}
	t.Setenv(envConfigPath, "  /etc/audioshelf.toml ")
	if got := configPathFromEnv(); got != "/etc/audioshelf.toml" {
		t.Fatalf("unexpected config path %q", got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	base := t.TempDir()
	configPath := filepath.Join(base, "audioshelf.toml")
	content := "[paths]\n" +
		"data_dir = \"" + filepath.Join(base, "data") + "\"\n" +
		"log_dir = \"" + filepath.Join(base, "logs") + "\"\n" +
		"metadata_dir = \"" + filepath.Join(base, "metadata") + "\"\n" +
		"cache_dir = \"" + filepath.Join(base, "cache") + "\"\n" +
		"api_bind = \"127.0.0.1:0\"\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, configPath) }()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}
