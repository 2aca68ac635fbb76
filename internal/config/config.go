// Package config loads the bot configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"log"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds everything the process needs to start. DISCORD_TOKEN is the
// only required value; the rest defaults to something sensible.
type Config struct {
	DiscordToken      string `env:"DISCORD_TOKEN,required"`
	StoragePath       string `env:"STORAGE_PATH" envDefault:"data/guilds.json"`
	SchedulePath      string `env:"SCHEDULE_PATH" envDefault:"data/scheduled.json"`
	StatusAddr        string `env:"STATUS_ADDR" envDefault:":8787"`
	InitSlashCommands bool   `env:"INIT_SLASH_COMMANDS" envDefault:"true"`
}

// New loads .env (if present) and parses the environment.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] No .env file found, falling back to system environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}
