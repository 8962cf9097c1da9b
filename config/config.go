/*
Package config loads process configuration and builds the logger.

PURPOSE:
  Small configuration surface for the two entrypoints. Values come from
  environment variables, optionally seeded from a .env file in the
  working directory (godotenv). Flags in cmd/ override env values.

ENVIRONMENT:
  PORT        HTTP server port          (default 8080)
  DB_PATH     SQLite database path      (default recon.db)
  EXPORT_DIR  Directory for saved files (default .)
  LOG_LEVEL   logrus level name         (default info)
*/
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds process-level settings.
type Config struct {
	Port      int
	DBPath    string
	ExportDir string
	LogLevel  string
}

// Load reads configuration from the environment, seeding it from .env
// when present. A missing .env is not an error.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:      envInt("PORT", 8080),
		DBPath:    envString("DB_PATH", "recon.db"),
		ExportDir: envString("EXPORT_DIR", "."),
		LogLevel:  envString("LOG_LEVEL", "info"),
	}
}

// NewLogger builds a JSON-formatted logrus logger at the given level.
// Unknown level names fall back to info.
func NewLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	return log
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
