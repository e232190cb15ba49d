package audio

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"telegram-gather/internal/domain"
)

const filePrefix = "gather-"

// TempStore hands out scratch files for downloaded voice messages. All files
// live in one directory and carry a common prefix so that leftovers from a
// crashed process can be swept on the next start.
type TempStore struct {
	dir    string
	logger *slog.Logger
}

func NewTempStore(dir string, logger *slog.Logger) *TempStore {
	return &TempStore{dir: dir, logger: logger}
}

func (s *TempStore) Dir() string {
	return s.dir
}

// Prepare creates the directory and removes stale files older than maxAge.
// Zero maxAge removes every file with the store prefix.
func (s *TempStore) Prepare(maxAge time.Duration) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating temp dir: %w", err)
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("reading temp dir: %w", err)
	}

	now := time.Now()
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), filePrefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if maxAge > 0 && now.Sub(info.ModTime()) < maxAge {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			s.logger.Warn("removing stale temp file", "path", path, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("swept stale temp files", "dir", s.dir, "count", removed)
	}
	return nil
}

// Create opens a new uniquely named file for the given format.
func (s *TempStore) Create(format domain.AudioFormat) (*os.File, error) {
	f, err := os.CreateTemp(s.dir, filePrefix+"*"+format.Extension())
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	return f, nil
}
