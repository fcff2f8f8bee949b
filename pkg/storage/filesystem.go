package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrOutsideBase is returned when a path resolves outside the storage directory.
var ErrOutsideBase = errors.New("path escapes storage directory")

// LocalStorage persists uploaded files on disk under a base directory.
type LocalStorage struct {
	baseDir string
	now     func() time.Time
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "uploads"
	}
	baseDir = filepath.Clean(baseDir)
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir, now: time.Now}, nil
}

// UploadName builds the stored file name `<unixMillis>_<originalName>`.
func (s *LocalStorage) UploadName(originalName string) string {
	base := filepath.Base(filepath.Clean("/" + originalName))
	if base == "/" || base == "." {
		base = "upload"
	}
	return fmt.Sprintf("%d_%s", s.now().UnixMilli(), base)
}

// SaveUpload stores the stream under a timestamped name and returns its location
// (base directory included, slash separated), e.g. "uploads/1700000000000_hw.pdf".
func (s *LocalStorage) SaveUpload(originalName string, r io.Reader) (string, error) {
	return s.SaveStream(s.UploadName(originalName), r)
}

// SaveStream copies from reader into the target file path. A partially written file is removed.
func (s *LocalStorage) SaveStream(filename string, r io.Reader) (string, error) {
	path, err := s.resolve(filename)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare upload directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(file, r); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write upload stream: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close upload file: %w", err)
	}
	return filepath.ToSlash(path), nil
}

// Open returns a read-only handle for the stored file.
func (s *LocalStorage) Open(location string) (*os.File, error) {
	path, err := s.resolve(location)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(location string) error {
	path, err := s.resolve(location)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload file: %w", err)
	}
	return nil
}

// resolve accepts either a name relative to the base directory or a location
// previously returned by SaveStream, which already carries the base directory prefix.
func (s *LocalStorage) resolve(location string) (string, error) {
	if location == "" {
		return "", fmt.Errorf("empty storage path")
	}
	cleaned := filepath.Clean(filepath.FromSlash(location))
	var path string
	if cleaned == s.baseDir || strings.HasPrefix(cleaned, s.baseDir+string(filepath.Separator)) {
		path = cleaned
	} else {
		path = filepath.Join(s.baseDir, cleaned)
	}
	rel, err := filepath.Rel(s.baseDir, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrOutsideBase
	}
	return path, nil
}
