package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string
	db   *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{
		path: path,
	}
}

func (s *SQLiteStore) Init() error {
	// Create config directory if it doesn't exist
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db

	if err := s.createSchema(); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Load() error {
	if s.db != nil {
		return nil
	}

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return fmt.Errorf("storage not initialized, run 'b612 init' first")
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db

	// Schema statements are idempotent, so loading also picks up tables
	// added after the database was first initialized.
	if err := s.createSchema(); err != nil {
		return fmt.Errorf("failed to validate schema: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) GetConfigPath() string {
	return s.path
}

func (s *SQLiteStore) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS habits (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			icon TEXT NOT NULL DEFAULT '',
			frequency_type TEXT NOT NULL,
			custom_days TEXT NOT NULL DEFAULT '[]',
			streak INTEGER NOT NULL DEFAULT 0,
			last_completed TEXT,
			has_notification INTEGER NOT NULL DEFAULT 0,
			notification_time TEXT NOT NULL DEFAULT '',
			active INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			date TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			frequency_type TEXT NOT NULL DEFAULT 'once',
			custom_days TEXT NOT NULL DEFAULT '[]',
			has_notification INTEGER NOT NULL DEFAULT 0,
			notification_time TEXT NOT NULL DEFAULT '',
			is_recurring INTEGER NOT NULL DEFAULT 0,
			parent_event_id TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_date ON events(date)`,
		`CREATE TABLE IF NOT EXISTS progress (
			id TEXT PRIMARY KEY,
			habit_id TEXT NOT NULL,
			completed_at TEXT NOT NULL,
			day TEXT NOT NULL,
			UNIQUE(habit_id, day)
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			scheduled_time TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			active INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			payload BLOB NOT NULL,
			hash TEXT NOT NULL UNIQUE,
			created_at TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

func (s *SQLiteStore) Counts() (Counts, error) {
	var c Counts
	tables := []struct {
		name string
		dst  *int
	}{
		{"habits", &c.Habits},
		{"events", &c.Events},
		{"progress", &c.Progress},
		{"notifications", &c.Notifications},
	}

	for _, t := range tables {
		row := s.db.QueryRow("SELECT COUNT(*) FROM " + t.name)
		if err := row.Scan(t.dst); err != nil {
			return Counts{}, fmt.Errorf("failed to count %s: %w", t.name, err)
		}
	}

	return c, nil
}
