package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sitematch/backend/internal/recommend"
)

var fileHeader = []string{"id", "created_at", "favorites", "program", "degree"}

// legacyHeader is the layout of logs written before entries had identifiers.
var legacyHeader = []string{"appic_numbers", "program", "degree"}

// FileStorage implements QueryLog as a CSV file on the local file system
type FileStorage struct {
	path   string
	logger *logrus.Entry
	mu     sync.RWMutex
}

// NewFileStorage creates a file-based query log, creating its directory.
func NewFileStorage(path string, logger *logrus.Entry) (*FileStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &FileStorage{
		path:   path,
		logger: logger.WithField("component", "file_query_log"),
	}, nil
}

// Append writes one entry at the end of the log, adding the header to a new file.
func (fs *FileStorage) Append(ctx context.Context, entry recommend.QueryLogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, err := os.OpenFile(fs.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open query log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat query log: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(fileHeader); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	row := []string{
		entry.ID,
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
		EncodeFavorites(entry.Favorites),
		entry.Program,
		entry.Degree,
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}
	return nil
}

// Entries reads the whole log. Rows that cannot be parsed are skipped.
// A missing file is an empty log.
func (fs *FileStorage) Entries(ctx context.Context) ([]recommend.QueryLogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	f, err := os.Open(fs.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open query log: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read query log header: %w", err)
	}
	legacy := len(header) == len(legacyHeader) && header[0] == legacyHeader[0]

	var entries []recommend.QueryLogEntry
	line := 1
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			fs.logger.WithError(err).WithField("line", line).Warn("Skipping unreadable query log row")
			continue
		}

		var entry recommend.QueryLogEntry
		if legacy {
			entry, err = parseLegacyRow(row)
		} else {
			entry, err = parseRow(row)
		}
		if err != nil {
			fs.logger.WithError(err).WithField("line", line).Warn("Skipping malformed query log row")
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Close is a no-op for file storage
func (fs *FileStorage) Close() error {
	return nil
}

func parseRow(row []string) (recommend.QueryLogEntry, error) {
	if len(row) != len(fileHeader) {
		return recommend.QueryLogEntry{}, fmt.Errorf("expected %d fields, got %d", len(fileHeader), len(row))
	}
	createdAt, err := time.Parse(time.RFC3339Nano, row[1])
	if err != nil {
		return recommend.QueryLogEntry{}, fmt.Errorf("invalid timestamp: %w", err)
	}
	favorites, err := ParseFavorites(row[2])
	if err != nil {
		return recommend.QueryLogEntry{}, err
	}
	return recommend.QueryLogEntry{
		ID:        row[0],
		CreatedAt: createdAt,
		Favorites: favorites,
		Program:   row[3],
		Degree:    row[4],
	}, nil
}

func parseLegacyRow(row []string) (recommend.QueryLogEntry, error) {
	if len(row) != len(legacyHeader) {
		return recommend.QueryLogEntry{}, fmt.Errorf("expected %d fields, got %d", len(legacyHeader), len(row))
	}
	favorites, err := ParseFavorites(row[0])
	if err != nil {
		return recommend.QueryLogEntry{}, err
	}
	return recommend.QueryLogEntry{
		Favorites: favorites,
		Program:   row[1],
		Degree:    row[2],
	}, nil
}
