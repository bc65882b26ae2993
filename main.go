package main

import (
	"log"

	"github.com/joho/godotenv"

	"rxscan/cmd"
	"rxscan/internal/config"
	"rxscan/internal/logger"
)

func main() {
	// A missing .env is fine; deployments can set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: no .env file loaded: %v", err)
	}

	// A broken configuration still gets a working logger so the failure
	// itself is visible.
	cfg, err := config.Load()
	if err != nil {
		log.Printf("Warning: could not load configuration: %v", err)
		if err := logger.Setup(logger.DefaultConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	} else {
		if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	}

	mainLog := logger.WithComponent("main")
	mainLog.Debug().Msg("Starting rxscan")

	cmd.Execute()
}
