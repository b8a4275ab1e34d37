package knowledge

import (
	"context"
	"fmt"
	"strings"

	"mercator-hq/verdict/pkg/compliance"
)

// Store persists resolved entries. Implementations must be safe for
// concurrent use and give read-your-writes consistency.
type Store interface {
	// Get returns the entry for key, or nil when absent.
	Get(ctx context.Context, key compliance.PairKey) (*compliance.Entry, error)

	// Put inserts or replaces the entry for key.
	Put(ctx context.Context, key compliance.PairKey, entry compliance.Entry) error
}

// Reasoner derives an entry for a pair the store does not know. It never
// fails: implementations return compliance.FallbackEntry when they cannot
// produce an answer.
type Reasoner interface {
	Reason(ctx context.Context, key compliance.PairKey) compliance.Entry
}

// ReasonerFunc adapts a function to the Reasoner interface.
type ReasonerFunc func(ctx context.Context, key compliance.PairKey) compliance.Entry

// Reason calls f(ctx, key).
func (f ReasonerFunc) Reason(ctx context.Context, key compliance.PairKey) compliance.Entry {
	return f(ctx, key)
}

// Metrics receives cache events. Implementations must not block.
type Metrics interface {
	RecordCacheHit(cache string)
	RecordCacheMiss(cache string)
}

// CacheName labels knowledge base cache metrics.
const CacheName = "knowledge_base"

type noopMetrics struct{}

func (noopMetrics) RecordCacheHit(string)  {}
func (noopMetrics) RecordCacheMiss(string) {}

// Mode selects how cache misses are resolved.
type Mode string

const (
	// ModeFull calls the Reasoner on a miss and persists its answer.
	ModeFull Mode = "full"

	// ModeQuick resolves misses to the fallback entry without reasoning or
	// persisting.
	ModeQuick Mode = "quick"
)

// ParseMode parses a mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeFull:
		return ModeFull, nil
	case ModeQuick:
		return ModeQuick, nil
	default:
		return "", fmt.Errorf("unknown mode %q (expected full or quick)", s)
	}
}

// Source records where a resolved entry came from.
type Source string

const (
	SourceCache    Source = "cache"
	SourceReasoner Source = "reasoner"
	SourceFallback Source = "fallback"
)

// Resolved is the entry resolved for one pair.
type Resolved struct {
	Key    compliance.PairKey `json:"key"`
	Entry  compliance.Entry   `json:"entry"`
	Source Source             `json:"source"`
}

// Resolution is the outcome of resolving a set of pairs.
type Resolution struct {
	// Pairs lists every resolved pair in first-seen order.
	Pairs []Resolved `json:"pairs"`

	// Hits counts pairs served from the store.
	Hits int `json:"hits"`

	// Misses counts pairs absent from the store.
	Misses int `json:"misses"`

	entries map[compliance.PairKey]compliance.Entry
}

// Entry returns the entry resolved for key.
func (r *Resolution) Entry(key compliance.PairKey) (compliance.Entry, bool) {
	e, ok := r.entries[key]
	return e, ok
}

// Entries returns the key to entry mapping.
func (r *Resolution) Entries() map[compliance.PairKey]compliance.Entry {
	out := make(map[compliance.PairKey]compliance.Entry, len(r.entries))
	for k, v := range r.entries {
		out[k] = v
	}
	return out
}

// Count returns how many pairs were resolved from src.
func (r *Resolution) Count(src Source) int {
	n := 0
	for _, p := range r.Pairs {
		if p.Source == src {
			n++
		}
	}
	return n
}
