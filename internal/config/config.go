package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs from the environment.
type Config struct {
	Port         string
	DatabaseURL  string // empty means run on the in-memory store
	KafkaBrokers []string
	LogLevel     string
}

// Load reads .env when present, then the process environment. Missing
// values fall back to local-development defaults.
func Load() Config {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
