package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"mercator-hq/verdict/pkg/compliance"
)

// MemoryStorage is an in-process Backend. Entries are lost on exit.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries map[compliance.PairKey]StoredEntry
	now     func() time.Time
}

// NewMemoryStorage returns an empty memory backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		entries: make(map[compliance.PairKey]StoredEntry),
		now:     time.Now,
	}
}

// Get implements knowledge.Store.
func (s *MemoryStorage) Get(ctx context.Context, key compliance.PairKey) (*compliance.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	entry := stored.Entry
	return &entry, nil
}

// Put implements knowledge.Store.
func (s *MemoryStorage) Put(ctx context.Context, key compliance.PairKey, entry compliance.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	stored, ok := s.entries[key]
	if !ok {
		stored = StoredEntry{Key: key, CreatedAt: now}
	}
	stored.Entry = entry
	stored.UpdatedAt = now
	s.entries[key] = stored
	return nil
}

// List implements Backend.
func (s *MemoryStorage) List(ctx context.Context, limit int) ([]StoredEntry, error) {
	s.mu.RLock()
	out := make([]StoredEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	s.mu.RUnlock()

	sortByRecency(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Search implements Backend.
func (s *MemoryStorage) Search(ctx context.Context, term string) ([]StoredEntry, error) {
	term = strings.ToLower(strings.TrimSpace(term))

	s.mu.RLock()
	out := make([]StoredEntry, 0)
	for _, e := range s.entries {
		if e.matches(term) {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	sortByRecency(out)
	return out, nil
}

// Stats implements Backend.
func (s *MemoryStorage) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := newStats()
	for _, e := range s.entries {
		stats.Entries++
		stats.Frameworks[e.Entry.ComplianceFramework]++
		stats.Categories[e.Entry.Category]++
		stats.Severities[e.Entry.Severity]++
		if stats.Oldest.IsZero() || e.UpdatedAt.Before(stats.Oldest) {
			stats.Oldest = e.UpdatedAt
		}
		if e.UpdatedAt.After(stats.Newest) {
			stats.Newest = e.UpdatedAt
		}
	}
	return stats, nil
}

// Prune implements Backend.
func (s *MemoryStorage) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.entries {
		if e.UpdatedAt.Before(cutoff) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Close implements Backend.
func (s *MemoryStorage) Close() error {
	return nil
}

// sortByRecency orders entries newest first, breaking ties by key.
func sortByRecency(entries []StoredEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].UpdatedAt.Equal(entries[j].UpdatedAt) {
			return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
		}
		if entries[i].Key.Action != entries[j].Key.Action {
			return entries[i].Key.Action < entries[j].Key.Action
		}
		return entries[i].Key.Reason < entries[j].Key.Reason
	})
}
