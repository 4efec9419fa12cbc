package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all environment configuration values for the doorbell
// binaries. Values are loaded from a .env file at startup when present.
type Config struct {
	// ServerPort is the port the relay HTTP server listens on
	ServerPort string

	// RelayURL is the websocket endpoint the consoles connect to
	RelayURL string

	// DirectoryURL is the base URL of the visitor directory service
	// (the relay itself, unless split out)
	DirectoryURL string

	// CORSOrigins is a comma-separated list of allowed origins for the
	// relay's HTTP surface
	CORSOrigins string

	// DataPath is an optional directory for the relay's message store.
	// Empty means history lives in memory only and is lost on restart.
	DataPath string

	// IdentityFile is where the visitor console persists the signed-in
	// email between runs
	IdentityFile string

	// LogLevel is the zerolog level name (debug, info, warn, error)
	LogLevel string
}

// Load reads environment variables and returns a populated Config.
// It will load from a .env file if present, then read from environment
// variables, falling back to defaults.
func Load() *Config {
	// Not an error if the .env file doesn't exist; in production the
	// real environment is already populated.
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment variables")
	}

	return &Config{
		ServerPort:   getEnv("PORT", "3000"),
		RelayURL:     getEnv("RELAY_URL", "ws://localhost:3000/ws"),
		DirectoryURL: getEnv("DIRECTORY_URL", "http://localhost:3000"),
		CORSOrigins:  getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000"),
		DataPath:     getEnv("DATA_PATH", ""),
		IdentityFile: getEnv("IDENTITY_FILE", defaultIdentityFile()),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}
}

// defaultIdentityFile places the persisted identity under the user's
// config directory, the console analog of browser local storage.
func defaultIdentityFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".doorbell-identity.json"
	}
	return filepath.Join(dir, "doorbell", "identity.json")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
