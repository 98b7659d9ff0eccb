package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB is a wrapper around sql.DB
type DB struct {
	*sql.DB
}

// SessionRow is a server-side record of a browser's Spotify tokens.
type SessionRow struct {
	ID           string
	AccessToken  string
	RefreshToken string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if dir != "." && dir != "/" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
			}
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// every :memory: connection is a separate database
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err = db.Ping(); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// Initialize sets up the database tables
func (db *DB) Initialize() error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		access_token TEXT NOT NULL,
		refresh_token TEXT,
		created_at TIMESTAMP,
		expires_at TIMESTAMP
	)`)
	return err
}

// SaveSession inserts or replaces a session row.
func (db *DB) SaveSession(s *SessionRow) error {
	_, err := db.Exec(`
	INSERT INTO sessions (id, access_token, refresh_token, created_at, expires_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		access_token = excluded.access_token,
		refresh_token = excluded.refresh_token,
		expires_at = excluded.expires_at`,
		s.ID, s.AccessToken, s.RefreshToken, s.CreatedAt, s.ExpiresAt)
	return err
}

// GetSession returns nil, nil when no row matches.
func (db *DB) GetSession(id string) (*SessionRow, error) {
	s := &SessionRow{ID: id}
	var refresh sql.NullString

	err := db.QueryRow(`
	SELECT access_token, refresh_token, created_at, expires_at
	FROM sessions WHERE id = ?`, id).Scan(&s.AccessToken, &refresh, &s.CreatedAt, &s.ExpiresAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.RefreshToken = refresh.String
	return s, nil
}

func (db *DB) DeleteSession(id string) error {
	_, err := db.Exec("DELETE FROM sessions WHERE id = ?", id)
	return err
}

// DeleteExpiredSessions removes rows past their expiry and reports how many
// were removed.
func (db *DB) DeleteExpiredSessions(now time.Time) (int64, error) {
	res, err := db.Exec("DELETE FROM sessions WHERE expires_at < ?", now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
