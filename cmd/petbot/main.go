package main

import (
	"log"

	"github.com/joho/godotenv"

	corecmd "github.com/pettai/petbot/core/cmd"
	"github.com/pettai/petbot/internal/app"
)

func main() {
	// Optional .env for local development; real deployments use the environment.
	_ = godotenv.Load()

	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return app.LoadConfig(path)
		},
		Bootstrap: func(cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			return app.New(cfg.(*app.Config))
		},
	})
	if err != nil {
		log.Fatalf("petbot: %v", err)
	}
}
