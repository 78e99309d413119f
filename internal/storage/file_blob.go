package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bobmcallan/twpulse/internal/common"
	"github.com/bobmcallan/twpulse/internal/interfaces"
)

// FileBlobStore implements BlobStore using the local filesystem.
// Keys are mapped to file paths under the base directory:
// "plots/2330.png" -> "{basePath}/plots/2330.png".
type FileBlobStore struct {
	basePath string
	logger   *common.Logger
}

// NewFileBlobStore creates the base and plot directories once at startup.
func NewFileBlobStore(logger *common.Logger, config *FileBlobConfig) (*FileBlobStore, error) {
	if config.BasePath == "" {
		return nil, fmt.Errorf("file blob store base_path is required")
	}

	plotDir := filepath.Join(config.BasePath, PlotPrefix)
	if err := os.MkdirAll(plotDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create plot directory %s: %w", plotDir, err)
	}

	fb := &FileBlobStore{
		basePath: config.BasePath,
		logger:   logger,
	}

	logger.Debug().Str("path", config.BasePath).Msg("FileBlobStore initialized")
	return fb, nil
}

// sanitizeKey converts a key to a safe relative path.
// "/" separates subdirectories; traversal segments are neutralised.
func (fb *FileBlobStore) sanitizeKey(key string) string {
	clean := filepath.Clean("/" + key)
	clean = strings.TrimPrefix(clean, "/")
	if strings.Contains(clean, "..") {
		clean = strings.ReplaceAll(clean, "..", "__")
	}
	return clean
}

func (fb *FileBlobStore) keyToPath(key string) string {
	return filepath.Join(fb.basePath, fb.sanitizeKey(key))
}

// Get retrieves a blob by key.
func (fb *FileBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(fb.keyToPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to read blob %s: %w", key, err)
	}
	return data, nil
}

// Put stores a blob atomically using temp file + rename, so concurrent
// writers of the same key never expose a partial file (last writer wins).
func (fb *FileBlobStore) Put(ctx context.Context, key string, data []byte) error {
	path := fb.keyToPath(key)
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
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
	// CreateTemp uses 0600
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	fb.logger.Trace().Str("key", key).Int("bytes", len(data)).Msg("Blob stored")
	return nil
}

// Delete removes a blob. No error if not found.
func (fb *FileBlobStore) Delete(ctx context.Context, key string) error {
	err := os.Remove(fb.keyToPath(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}
	return nil
}

// Close releases resources (no-op for file storage).
func (fb *FileBlobStore) Close() error {
	return nil
}

var _ interfaces.BlobStore = (*FileBlobStore)(nil)
