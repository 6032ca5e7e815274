package main

import (
	"log"

	"github.com/joho/godotenv"

	"brainoutai/internal/cli"
)

func main() {
	// Missing .env is fine; keys can come from config or the environment.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		log.Fatalf("brainoutai: %v", err)
	}
}
