package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/teslashibe/go-wraith/internal/log"
	"github.com/teslashibe/go-wraith/pkg/notify"
	"github.com/teslashibe/go-wraith/pkg/sleep"
)

const (
	counterDrowsy = "drowsy"
	settingSleep  = "sleep_profile"

	// Fixed-width so timestamps sort lexically.
	timestampLayout = "2006-01-02T15:04:05.000000000Z"
)

// SQLiteStore is a Store backed by a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("store: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS counters (
		name TEXT PRIMARY KEY,
		value INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value JSON NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		payload JSON NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_timestamp ON notifications(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// IncrementDrowsy implements Store.
func (s *SQLiteStore) IncrementDrowsy(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO counters (name, value) VALUES (?, 1)
		ON CONFLICT(name) DO UPDATE SET value = value + 1, updated_at = CURRENT_TIMESTAMP
		RETURNING value`, counterDrowsy).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("store: increment counter: %w", err)
	}
	return v, nil
}

// DrowsyCount implements Store.
func (s *SQLiteStore) DrowsyCount(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, `SELECT value FROM counters WHERE name = ?`, counterDrowsy).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("store: read counter: %w", err)
	}
	return v, nil
}

// ResetDrowsy implements Store.
func (s *SQLiteStore) ResetDrowsy(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM counters WHERE name = ?`, counterDrowsy); err != nil {
		return fmt.Errorf("store: reset counter: %w", err)
	}
	return nil
}

// SaveSleep implements Store.
func (s *SQLiteStore) SaveSleep(ctx context.Context, p sleep.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("store: marshal sleep profile: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		settingSleep, string(data))
	if err != nil {
		return fmt.Errorf("store: save sleep profile: %w", err)
	}
	return nil
}

// LoadSleep implements Store.
func (s *SQLiteStore) LoadSleep(ctx context.Context) (sleep.Profile, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, settingSleep).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return sleep.DefaultProfile(), false, nil
	}
	if err != nil {
		return sleep.DefaultProfile(), false, fmt.Errorf("store: load sleep profile: %w", err)
	}
	p := sleep.DefaultProfile()
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return sleep.DefaultProfile(), false, fmt.Errorf("store: decode sleep profile: %w", err)
	}
	return p, true, nil
}

// SaveRecord implements Store.
func (s *SQLiteStore) SaveRecord(ctx context.Context, rec notify.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("store: marshal record: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO notifications (id, timestamp, payload) VALUES (?, ?, ?)`,
		rec.ID, rec.Timestamp.UTC().Format(timestampLayout), string(data))
	if err != nil {
		return fmt.Errorf("store: save record: %w", err)
	}
	return nil
}

// Records implements Store.
func (s *SQLiteStore) Records(ctx context.Context, limit int) ([]notify.Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM notifications ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query records: %w", err)
	}
	defer rows.Close()

	var out []notify.Record
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("store: scan record: %w", err)
		}
		var rec notify.Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			log.Warn("skipping corrupt notification record", "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Notify implements notify.Notifier by persisting the record.
func (s *SQLiteStore) Notify(rec notify.Record) {
	if err := s.SaveRecord(context.Background(), rec); err != nil {
		log.Error("failed to persist notification", "id", rec.ID, "error", err)
	}
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
