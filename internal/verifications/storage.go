package verifications

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Upload errors
var (
	ErrFileTooLarge    = errors.New("file exceeds the maximum upload size")
	ErrUnsupportedType = errors.New("unsupported file type")
)

var extByMime = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"application/pdf": ".pdf",
}

// Storage writes uploaded documents to the local uploads directory
// under random names.
type Storage struct {
	dir     string
	maxSize int64
}

// NewStorage creates document storage rooted at dir
func NewStorage(dir string, maxSize int64) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return &Storage{dir: dir, maxSize: maxSize}, nil
}

// Save validates size and MIME type, writes the file and returns its
// path. imageOnly restricts the accepted types to JPEG and PNG. The
// declared type must match the sniffed file content.
func (s *Storage) Save(data []byte, mimeType string, imageOnly bool) (string, error) {
	if int64(len(data)) > s.maxSize {
		return "", ErrFileTooLarge
	}
	ext, ok := extByMime[mimeType]
	if !ok || (imageOnly && mimeType == "application/pdf") {
		return "", ErrUnsupportedType
	}
	if http.DetectContentType(data) != mimeType {
		return "", ErrUnsupportedType
	}

	path := filepath.Join(s.dir, uuid.New().String()+ext)
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	return path, nil
}

// Read returns the contents of a stored file
func (s *Storage) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return data, nil
}

// Remove deletes a stored file. Missing files are not an error.
func (s *Storage) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove upload: %w", err)
	}
	return nil
}
