package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/sitematch/backend/internal/recommend"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS query_log (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL,
	created_at TEXT NOT NULL,
	favorites  TEXT NOT NULL,
	program    TEXT NOT NULL,
	degree     TEXT NOT NULL
);`

// SQLiteStorage implements QueryLog on an SQLite database.
type SQLiteStorage struct {
	db     *sql.DB
	logger *logrus.Entry
}

// NewSQLiteStorage opens (or creates) the database at path with WAL
// journaling and creates the query_log table. ":memory:" opens a private
// in-memory database.
func NewSQLiteStorage(path string, logger *logrus.Entry) (*SQLiteStorage, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open query log database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range append(pragmas, sqliteSchema) {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize query log database: %w", err)
		}
	}

	return &SQLiteStorage{
		db:     db,
		logger: logger.WithField("component", "sqlite_query_log"),
	}, nil
}

// Append inserts one entry.
func (s *SQLiteStorage) Append(ctx context.Context, entry recommend.QueryLogEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO query_log (id, created_at, favorites, program, degree) VALUES (?, ?, ?, ?, ?)`,
		entry.ID,
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
		EncodeFavorites(entry.Favorites),
		entry.Program,
		entry.Degree,
	)
	if err != nil {
		return fmt.Errorf("failed to append query log entry: %w", err)
	}
	return nil
}

// Entries returns every entry in append order. Rows that cannot be parsed
// are skipped.
func (s *SQLiteStorage) Entries(ctx context.Context) ([]recommend.QueryLogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, favorites, program, degree FROM query_log ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query log entries: %w", err)
	}
	defer rows.Close()

	var entries []recommend.QueryLogEntry
	for rows.Next() {
		var id, createdAt, favorites, program, degree string
		if err := rows.Scan(&id, &createdAt, &favorites, &program, &degree); err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		entry, err := parseRow([]string{id, createdAt, favorites, program, degree})
		if err != nil {
			s.logger.WithError(err).WithField("id", id).Warn("Skipping malformed query log row")
			continue
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log entries: %w", err)
	}
	return entries, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
