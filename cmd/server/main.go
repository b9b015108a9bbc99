package main

import (
	"log"

	"github.com/joho/godotenv"

	"evalhub/internal/app/server"
	"evalhub/internal/platform/config"
)

func main() {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	server.Run(cfg)
}
