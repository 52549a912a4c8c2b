package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Document check failures. Wrapped errors carry the offending path.
var (
	ErrFileNotFound    = errors.New("file does not exist")
	ErrNotRegularFile  = errors.New("not a regular file")
	ErrFileTooLarge    = errors.New("file exceeds the document size limit")
	ErrUnsupportedFile = errors.New("unsupported document extension")
)

// DocumentExtensions lists the accepted input document extensions.
var DocumentExtensions = []string{".json", ".hjson"}

// FileValidator checks input documents and output directories before the
// pipeline touches them.
type FileValidator struct {
	logger   *slog.Logger
	maxBytes int64
}

// NewFileValidator creates a validator. maxBytes <= 0 disables the size check.
func NewFileValidator(logger *slog.Logger, maxBytes int64) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger:   logger,
		maxBytes: maxBytes,
	}
}

// MaxBytes returns the configured document size limit.
func (v *FileValidator) MaxBytes() int64 {
	return v.maxBytes
}

// ValidateFile checks that path exists, is a regular file and can be opened.
func (v *FileValidator) ValidateFile(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Debug("File does not exist", slog.String("file", path))
		return nil, fmt.Errorf("%s: %w", path, ErrFileNotFound)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		v.logger.Error("Path is not a regular file",
			slog.String("path", path))
		return nil, fmt.Errorf("%s: %w", path, ErrNotRegularFile)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	return info, nil
}

// ValidateDocument runs ValidateFile and then enforces the extension and
// size limits for an input document.
func (v *FileValidator) ValidateDocument(path string) (os.FileInfo, error) {
	if !IsDocumentFile(path) {
		v.logger.Error("Document has an unsupported extension",
			slog.String("file", path),
			slog.String("extension", filepath.Ext(path)))
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFile)
	}

	info, err := v.ValidateFile(path)
	if err != nil {
		return nil, err
	}
	if err := v.ValidateSize(path, info.Size()); err != nil {
		return nil, err
	}

	v.logger.Debug("Document validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return info, nil
}

// ValidateSize rejects sizes above the configured limit.
func (v *FileValidator) ValidateSize(name string, size int64) error {
	if v.maxBytes > 0 && size > v.maxBytes {
		v.logger.Warn("Document too large",
			slog.String("file", name),
			slog.Int64("size", size),
			slog.Int64("limit", v.maxBytes))
		return fmt.Errorf("%s (%d > %d bytes): %w", name, size, v.maxBytes, ErrFileTooLarge)
	}
	return nil
}

// ValidateOutputDirectory ensures dir exists and is writable.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	name := tmp.Name()
	tmp.Close()
	os.Remove(name)

	return nil
}

// IsDocumentFile reports whether path carries an accepted document extension.
// Editor temp files are rejected.
func IsDocumentFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") || strings.HasPrefix(base, ".#") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, accepted := range DocumentExtensions {
		if ext == accepted {
			return true
		}
	}
	return false
}
