package secrets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileProvider reads secrets from individual files.
type FileProvider struct {
	// AllowInsecure skips the permission check.
	AllowInsecure bool
}

// NewFileProvider returns a provider that requires 0600 or 0400 files.
func NewFileProvider() *FileProvider {
	return &FileProvider{}
}

// Scheme returns "file".
func (p *FileProvider) Scheme() string { return "file" }

// GetSecret reads the file at path and trims surrounding whitespace.
func (p *FileProvider) GetSecret(_ context.Context, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("secret file path cannot be empty")
	}
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: file %s does not exist", ErrNotFound, path)
		}
		return "", fmt.Errorf("failed to stat secret file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("secret path is not a regular file: %s", path)
	}
	if mode := info.Mode().Perm(); !p.AllowInsecure && mode != 0o600 && mode != 0o400 {
		return "", fmt.Errorf("insecure permissions on %s: %o (expected 0600 or 0400)", path, mode)
	}

	// #nosec G304 - reading the referenced file is the point
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file: %w", err)
	}

	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", fmt.Errorf("%w: file %s is empty", ErrNotFound, path)
	}
	return value, nil
}
