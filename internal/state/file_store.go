package state

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// FileStore persists the cache as an indented JSON document on disk.
type FileStore struct {
	path   string
	logger zerolog.Logger
}

// NewFileStore returns a JSON-backed cache store.
func NewFileStore(path string, logger zerolog.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger,
	}
}

// Path returns the cache file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the cache from disk. Missing, unreadable or corrupt files return an
// empty cache with a warning.
func (s *FileStore) Load(ctx context.Context) (Cache, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Info().Str("path", s.path).Msg("cache file missing, starting fresh")
			return Cache{}, nil
		}
		s.logger.Warn().Str("path", s.path).Err(err).Msg("could not read cache, starting fresh")
		return Cache{}, nil
	}

	var cache Cache
	if err := json.Unmarshal(data, &cache); err != nil {
		s.logger.Warn().Str("path", s.path).Err(err).Msg("cache file corrupt, starting fresh")
		return Cache{}, nil
	}
	if cache == nil {
		cache = Cache{}
	}
	return cache, nil
}

// Save creates the containing directory and replaces the cache file atomically.
func (s *FileStore) Save(ctx context.Context, cache Cache) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cache == nil {
		cache = Cache{}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tempFile, err := os.CreateTemp(dir, ".status-*.json")
	if err != nil {
		return err
	}

	cleanup := func() {
		_ = os.Remove(tempFile.Name())
	}

	encoder := json.NewEncoder(tempFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cache); err != nil {
		_ = tempFile.Close()
		cleanup()
		return err
	}
	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		cleanup()
		return err
	}
	if err := tempFile.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tempFile.Name(), 0o644); err != nil {
		cleanup()
		return err
	}

	if err := os.Rename(tempFile.Name(), s.path); err != nil {
		cleanup()
		return err
	}

	if dirHandle, err := os.Open(dir); err == nil {
		_ = dirHandle.Sync()
		_ = dirHandle.Close()
	}

	return nil
}
