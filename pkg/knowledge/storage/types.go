package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mercator-hq/verdict/pkg/compliance"
	"mercator-hq/verdict/pkg/knowledge"
)

// Backend is a knowledge base store with inspection and maintenance
// operations.
type Backend interface {
	knowledge.Store

	// List returns stored entries, most recently updated first. A limit of
	// zero or less returns every entry.
	List(ctx context.Context, limit int) ([]StoredEntry, error)

	// Search returns entries whose action, reason, description, framework
	// or obligation id contains term, case-insensitively.
	Search(ctx context.Context, term string) ([]StoredEntry, error)

	// Stats summarizes the stored entries.
	Stats(ctx context.Context) (*Stats, error)

	// Prune deletes entries last updated before cutoff and returns how many
	// were removed.
	Prune(ctx context.Context, cutoff time.Time) (int, error)

	// Close releases resources held by the backend.
	Close() error
}

// StoredEntry is an entry together with its key and timestamps.
type StoredEntry struct {
	Key       compliance.PairKey `json:"key"`
	Entry     compliance.Entry   `json:"entry"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Stats summarizes a knowledge base.
type Stats struct {
	Entries    int            `json:"entries"`
	Frameworks map[string]int `json:"frameworks"`
	Categories map[string]int `json:"categories"`
	Severities map[string]int `json:"severities"`

	// Oldest and Newest are the extreme update times. Zero when empty.
	Oldest time.Time `json:"oldest,omitempty"`
	Newest time.Time `json:"newest,omitempty"`
}

func newStats() *Stats {
	return &Stats{
		Frameworks: make(map[string]int),
		Categories: make(map[string]int),
		Severities: make(map[string]int),
	}
}

// StorageError describes a failed backend operation.
type StorageError struct {
	Backend   string
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}

// matches reports whether e contains term in a searchable field. term must
// already be lower case.
func (e StoredEntry) matches(term string) bool {
	for _, s := range []string{
		e.Key.Action,
		e.Key.Reason,
		e.Entry.Description,
		e.Entry.ComplianceFramework,
		e.Entry.ObligationID,
	} {
		if strings.Contains(strings.ToLower(s), term) {
			return true
		}
	}
	return false
}
