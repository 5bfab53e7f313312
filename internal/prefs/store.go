// Package prefs provides the SQLite-backed process preference store and
// the side-channel copy of workspace bundle preferences into it.
package prefs

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store is the preference store connection
type Store struct {
	db *sql.DB
}

// Open creates a preference store connection
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open preferences database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Initialize creates the preferences schema
func (s *Store) Initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS preferences (
		key TEXT PRIMARY KEY,
		value TEXT,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create preferences schema: %w", err)
	}

	return nil
}

// Get returns the stored value for a key, or "" when unset
func (s *Store) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM preferences WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// Set stores a value for a key, replacing any previous value
func (s *Store) Set(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO preferences (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = CURRENT_TIMESTAMP",
		key, value, value,
	)
	return err
}

// Preference is one stored setting
type Preference struct {
	Key   string
	Value string
}

// List returns all stored settings sorted by key
func (s *Store) List() ([]Preference, error) {
	rows, err := s.db.Query("SELECT key, value FROM preferences ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prefs []Preference
	for rows.Next() {
		var p Preference
		if err := rows.Scan(&p.Key, &p.Value); err != nil {
			return nil, err
		}
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}
