// Package watermark persists the export progress date between runs.
// The file holds a single human-readable date line, e.g. "01 Jan 2000".
package watermark

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Format is the on-disk date layout.
const Format = "02 Jan 2006"

var (
	// ErrNoWatermark is returned when no stored value exists.
	ErrNoWatermark = errors.New("no watermark found")

	// ErrBadWatermark is returned when the stored text is not a valid date.
	ErrBadWatermark = errors.New("unparsable watermark")
)

// Sentinel is the floor date used when the store is empty or corrupt.
// First deployments are expected to seed the file explicitly; this is a
// recovery path, not a backfill mechanism.
var Sentinel = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Store persists the watermark date.
type Store interface {
	// Load reads the stored date.
	Load() (time.Time, error)

	// Save persists the date.
	Save(t time.Time) error
}

// FileStore keeps the watermark in a single local file.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed watermark store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads and parses the watermark file.
func (s *FileStore) Load() (time.Time, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, ErrNoWatermark
		}
		return time.Time{}, fmt.Errorf("read watermark file %s: %w", s.path, err)
	}

	text := strings.TrimSpace(string(data))
	t, err := time.Parse(Format, text)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadWatermark, text)
	}
	return t, nil
}

// Save writes the watermark atomically using temp file + rename.
func (s *FileStore) Save(t time.Time) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create watermark directory %s: %w", dir, err)
	}

	tempPath := s.path + ".tmp"
	data := []byte(t.Format(Format) + "\n")
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("write watermark temp file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename watermark file: %w", err)
	}

	return nil
}
