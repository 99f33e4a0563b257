package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/victorbash400/canary/canaryservice"
)

func main() {
	// .env is optional; real deployments configure through the environment
	_ = godotenv.Load()

	if err := canaryservice.Run(); err != nil {
		log.Error().Err(err).Msg("service exited with error")
		os.Exit(1)
	}
}
