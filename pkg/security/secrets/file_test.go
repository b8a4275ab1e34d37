package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeSecret(t *testing.T, name, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		t.Fatal(err)
	}
	// WriteFile honours the umask; force the mode under test.
	if err := os.Chmod(path, perm); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileProvider_GetSecret(t *testing.T) {
	path := writeSecret(t, "token", "  ghp_abc\n", 0o600)

	value, err := NewFileProvider().GetSecret(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "ghp_abc" {
		t.Errorf("expected 'ghp_abc', got %q", value)
	}
}

func TestFileProvider_Errors(t *testing.T) {
	dir := t.TempDir()
	insecure := writeSecret(t, "insecure", "value", 0o644)
	empty := writeSecret(t, "empty", "\n", 0o400)

	tests := []struct {
		name     string
		path     string
		notFound bool
	}{
		{name: "missing file", path: filepath.Join(dir, "nope"), notFound: true},
		{name: "directory", path: dir},
		{name: "insecure permissions", path: insecure},
		{name: "empty file", path: empty, notFound: true},
		{name: "empty path", path: ""},
	}

	p := NewFileProvider()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.GetSecret(context.Background(), tt.path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if errors.Is(err, ErrNotFound) != tt.notFound {
				t.Errorf("errors.Is(err, ErrNotFound) = %v, want %v (err: %v)", !tt.notFound, tt.notFound, err)
			}
		})
	}
}

func TestFileProvider_AllowInsecure(t *testing.T) {
	path := writeSecret(t, "shared", "value", 0o644)

	p := &FileProvider{AllowInsecure: true}
	if _, err := p.GetSecret(context.Background(), path); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
