package env

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/nantokaworks/gamerguard/internal/shared/logger"
	"go.uber.org/zap"
)

// Env holds all runtime configuration resolved from the environment.
type Env struct {
	ServerPort int
	DebugMode  bool

	// Remote roast generation
	RoastAPIKey         string
	RoastModel          string
	RoastTimeoutSeconds int

	// Share link
	ShareBaseURL      string
	ShareHistoryLimit int
}

// Value is the process-wide configuration, populated by LoadEnv.
var Value Env

// LoadEnv reads .env (if present) and the process environment into Value.
// Missing keys fall back to defaults; nothing here is fatal.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file loaded", zap.Error(err))
	}

	Value = Env{
		ServerPort:          getInt("SERVER_PORT", 8080),
		DebugMode:           getBool("DEBUG_MODE", false),
		RoastAPIKey:         os.Getenv("ROAST_API_KEY"),
		RoastModel:          getString("ROAST_MODEL", "gemini-2.0-flash"),
		RoastTimeoutSeconds: getInt("ROAST_TIMEOUT_SECONDS", 8),
		ShareBaseURL:        getString("SHARE_BASE_URL", "http://localhost:8080/"),
		ShareHistoryLimit:   getInt("SHARE_HISTORY_LIMIT", 5),
	}
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn("Invalid integer in environment, using default",
			zap.String("key", key), zap.String("value", v), zap.Int("default", fallback))
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logger.Warn("Invalid boolean in environment, using default",
			zap.String("key", key), zap.String("value", v), zap.Bool("default", fallback))
		return fallback
	}
	return b
}
