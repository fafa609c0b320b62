// Package sqlite persists the flower ledger in a local SQLite database.
// It is the default backend for development and tests, where a remote
// spreadsheet is unavailable or undesirable. Row order is the insertion
// id, which preserves ledger append order across restarts.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"flowerboard.live/fbd/internal/ledger"
	"flowerboard.live/fbd/internal/types"

	_ "modernc.org/sqlite"
)

const (
	defaultDBFile    = "flowerboard.db"
	maxBusyTimeoutMs = 5000
)

// Store implements ledger.Store on a SQLite database file.
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	file string
}

// NewStore opens (creating if necessary) the database at filePath.
func NewStore(filePath string) (*Store, error) {
	if filePath == "" {
		filePath = defaultDBFile
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s", filepath.Clean(absPath)))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", maxBusyTimeoutMs)); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &Store{db: db, file: absPath}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		country TEXT NOT NULL,
		total INTEGER NOT NULL DEFAULT 0
	)`)
	if err != nil {
		return fmt.Errorf("create entries table: %w", err)
	}

	_, err = s.db.Exec(`CREATE TABLE IF NOT EXISTS announcement (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		message TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create announcement table: %w", err)
	}

	var mode string
	if err := s.db.QueryRow("PRAGMA journal_mode=WAL").Scan(&mode); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	return nil
}

// Rows returns all ledger entries in insertion order.
func (s *Store) Rows(ctx context.Context) ([]types.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT name, country, total FROM entries ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: query entries: %v", ledger.ErrReadFailed, err)
	}
	defer rows.Close()

	var entries []types.Entry
	for rows.Next() {
		var (
			name, country sql.NullString
			total         sql.NullInt64
		)
		if err := rows.Scan(&name, &country, &total); err != nil {
			return nil, fmt.Errorf("%w: scan entry: %v", ledger.ErrReadFailed, err)
		}
		entries = append(entries, types.Entry{
			Name:    name.String,
			Country: country.String,
			Flowers: int(total.Int64),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate entries: %v", ledger.ErrReadFailed, err)
	}

	return entries, nil
}

// UpdateRow overwrites the entry at the given 0-based ledger position.
func (s *Store) UpdateRow(ctx context.Context, index int, e types.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM entries ORDER BY id LIMIT 1 OFFSET ?`, index).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: no row at index %d", ledger.ErrWriteFailed, index)
		}
		return fmt.Errorf("%w: locate row %d: %v", ledger.ErrWriteFailed, index, err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE entries SET name = ?, country = ?, total = ? WHERE id = ?`,
		e.Name, e.Country, e.Flowers, id)
	if err != nil {
		return fmt.Errorf("%w: update row %d: %v", ledger.ErrWriteFailed, index, err)
	}

	return nil
}

// AppendRow adds a new entry after all existing rows.
func (s *Store) AppendRow(ctx context.Context, e types.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (name, country, total) VALUES (?, ?, ?)`,
		e.Name, e.Country, e.Flowers)
	if err != nil {
		return fmt.Errorf("%w: insert entry: %v", ledger.ErrWriteFailed, err)
	}

	return nil
}

// Announcement returns the stored announcement, or "" when none was ever
// posted.
func (s *Store) Announcement(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var message string
	err := s.db.QueryRowContext(ctx, `SELECT message FROM announcement WHERE id = 1`).Scan(&message)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("%w: query announcement: %v", ledger.ErrReadFailed, err)
	}

	return message, nil
}

// SetAnnouncement overwrites the announcement wholesale.
func (s *Store) SetAnnouncement(ctx context.Context, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO announcement (id, message) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET message = excluded.message`, message)
	if err != nil {
		return fmt.Errorf("%w: store announcement: %v", ledger.ErrWriteFailed, err)
	}

	return nil
}
