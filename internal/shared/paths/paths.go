package paths

import (
	"os"
	"path/filepath"
)

const dbFileName = "gamerguard.db"

// GetDataDir returns the base directory for persisted data.
// GAMERGUARD_DATA_DIR overrides the default ./data directory.
func GetDataDir() string {
	if dir := os.Getenv("GAMERGUARD_DATA_DIR"); dir != "" {
		return dir
	}
	return "./data"
}

// GetDBPath returns the sqlite database path inside the data directory.
func GetDBPath() string {
	return filepath.Join(GetDataDir(), dbFileName)
}

// EnsureDataDirs creates the data directory tree if missing.
func EnsureDataDirs() error {
	return os.MkdirAll(GetDataDir(), 0755)
}
