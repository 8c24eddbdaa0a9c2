package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := loadEnvFiles(envFiles()...); err != nil {
		log.Fatalf("load env: %v", err)
	}
	if err := run(ctx, configPathFromEnv()); err != nil {
		log.Fatalf("audioshelfd: %v", err)
	}
}
