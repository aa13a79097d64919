package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/papertrader/papertrader/internal/common"
)

// FileStore implements KVStore on the local filesystem. Each key maps to
// one file under the base directory; writes are atomic (temp + rename).
type FileStore struct {
	basePath string
	logger   *common.Logger
}

// NewFileStore creates a file-backed store rooted at basePath.
func NewFileStore(logger *common.Logger, basePath string) (*FileStore, error) {
	if basePath == "" {
		return nil, fmt.Errorf("file store base path is required")
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory %s: %w", basePath, err)
	}

	logger.Debug().Str("path", basePath).Msg("FileStore opened")
	return &FileStore{basePath: basePath, logger: logger}, nil
}

// sanitizeKey makes a key safe for use as a filename and prevents path
// traversal. Single dots are preserved (common in keys like "ledger.json").
func (fs *FileStore) sanitizeKey(key string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")
	return r.Replace(key)
}

func (fs *FileStore) keyPath(key string) string {
	return filepath.Join(fs.basePath, fs.sanitizeKey(key))
}

// Get retrieves the value for key.
func (fs *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(fs.keyPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return data, nil
}

// Put stores a value atomically using temp file + rename.
func (fs *FileStore) Put(ctx context.Context, key string, data []byte) error {
	target := fs.keyPath(key)

	tmpFile, err := os.CreateTemp(fs.basePath, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Delete removes a key. Missing keys are not an error.
func (fs *FileStore) Delete(ctx context.Context, key string) error {
	if err := os.Remove(fs.keyPath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// Exists checks whether a key is present.
func (fs *FileStore) Exists(ctx context.Context, key string) (bool, error) {
	if _, err := os.Stat(fs.keyPath(key)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat key %s: %w", key, err)
	}
	return true, nil
}

// Close releases resources. A no-op for the file backend.
func (fs *FileStore) Close() error {
	return nil
}

// Ensure FileStore implements KVStore
var _ KVStore = (*FileStore)(nil)
