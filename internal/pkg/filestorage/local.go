package filestorage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/yigit/machzor/internal/pkg/logger"
)

// LocalStorage archives uploaded files on the local filesystem. Roster
// uploads are kept so an import run can always be traced back to the exact
// file that produced it.
type LocalStorage struct {
	basePath string // root directory for archived files
	baseURL  string // optional URL prefix for serving archived files
}

// NewLocalStorage creates a LocalStorage rooted at basePath. The directory
// is created if it does not exist yet.
func NewLocalStorage(basePath, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	logger.Info().Str("path", basePath).Msg("Local storage directory ensured")

	return &LocalStorage{basePath: basePath, baseURL: baseURL}, nil
}

// SaveFileWithPath saves a file to a subdirectory under the storage root.
// The stored name is a fresh uuid with the original extension; the original
// name travels separately on the import run record.
func (ls *LocalStorage) SaveFileWithPath(fileHeader *multipart.FileHeader, subPath string) (string, error) {
	if fileHeader == nil {
		return "", nil
	}

	src, err := fileHeader.Open()
	if err != nil {
		logger.Error().Err(err).Str("filename", fileHeader.Filename).Msg("Failed to open uploaded file")
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	// Join tolerates an empty subPath.
	dir := filepath.Join(ls.basePath, subPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error().Err(err).Str("path", dir).Msg("Failed to create subdirectory")
		return "", fmt.Errorf("failed to create subdirectory: %w", err)
	}

	storedName := uuid.New().String() + filepath.Ext(fileHeader.Filename)
	dstPath := filepath.Join(dir, storedName)

	dst, err := os.Create(dstPath)
	if err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to create destination file")
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to copy uploaded file content")
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("failed to save file content: %w", err)
	}

	accessible := ls.accessiblePath(subPath, storedName)
	logger.Info().
		Str("filename", fileHeader.Filename).
		Str("saved_as", storedName).
		Str("accessible_path", accessible).
		Msg("File saved successfully")
	return accessible, nil
}

// accessiblePath builds the path recorded for the stored file. With a
// baseURL configured it is a URL; otherwise a relative uploads/ path.
func (ls *LocalStorage) accessiblePath(subPath, storedName string) string {
	if ls.baseURL == "" {
		return filepath.Join("uploads", subPath, storedName)
	}

	parts := []string{strings.TrimRight(ls.baseURL, "/")}
	if subPath != "" {
		parts = append(parts, subPath)
	}
	return strings.Join(append(parts, storedName), "/")
}
