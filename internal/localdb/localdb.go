package localdb

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/nantokaworks/gamerguard/internal/shared/logger"
	"go.uber.org/zap"
)

var DBClient *sql.DB

// SetupDB opens the sqlite database and creates the aggregates table.
func SetupDB(dbPath string) (*sql.DB, error) {
	if DBClient != nil {
		return DBClient, nil
	}

	// WAL mode and busy timeout to survive concurrent readers.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	// sqlite is a single writer; keep one connection.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS aggregates (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		logger.Error("Failed to create aggregates table", zap.Error(err))
		return nil, fmt.Errorf("failed to create aggregates table: %w", err)
	}

	DBClient = db
	return db, nil
}

// GetDB returns the current database connection.
func GetDB() *sql.DB {
	return DBClient
}

// Close closes the database connection.
func Close() error {
	if DBClient == nil {
		return nil
	}
	err := DBClient.Close()
	DBClient = nil
	return err
}

// Store is a ledger.Gateway backed by the aggregates table.
type Store struct {
	db *sql.DB
}

// NewStore wraps an opened database as an aggregate store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Get returns the stored aggregate value. ok is false when the key has never
// been written.
func (s *Store) Get(key string) (string, bool, error) {
	if s.db == nil {
		return "", false, fmt.Errorf("database not initialized")
	}

	var value string
	err := s.db.QueryRow(`SELECT value FROM aggregates WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		logger.Error("Failed to get aggregate", zap.Error(err), zap.String("key", key))
		return "", false, fmt.Errorf("failed to get aggregate %s: %w", key, err)
	}
	return value, true, nil
}

// Set upserts the aggregate value atomically.
func (s *Store) Set(key, value string) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	_, err := s.db.Exec(`
		INSERT INTO aggregates (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		logger.Error("Failed to set aggregate", zap.Error(err), zap.String("key", key))
		return fmt.Errorf("failed to set aggregate %s: %w", key, err)
	}
	return nil
}
