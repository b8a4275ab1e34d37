package knowledge

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"mercator-hq/verdict/pkg/compliance"
)

// DefaultConcurrency bounds parallel miss resolution when no option is given.
const DefaultConcurrency = 4

// KnowledgeBase resolves pairs through a Store with Reasoner fallback. It is
// safe for concurrent use and meant to be shared across pipeline runs.
type KnowledgeBase struct {
	store       Store
	reasoner    Reasoner
	logger      *slog.Logger
	metrics     Metrics
	concurrency int

	flights singleflight.Group
}

// Option configures a KnowledgeBase.
type Option func(*KnowledgeBase)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(kb *KnowledgeBase) {
		if logger != nil {
			kb.logger = logger
		}
	}
}

// WithMetrics sets the cache metrics sink.
func WithMetrics(m Metrics) Option {
	return func(kb *KnowledgeBase) {
		if m != nil {
			kb.metrics = m
		}
	}
}

// WithConcurrency bounds how many misses are resolved in parallel.
func WithConcurrency(n int) Option {
	return func(kb *KnowledgeBase) {
		if n > 0 {
			kb.concurrency = n
		}
	}
}

// New returns a knowledge base over store. A nil reasoner makes full mode
// resolve misses to the fallback entry, which is then persisted.
func New(store Store, reasoner Reasoner, opts ...Option) (*KnowledgeBase, error) {
	if store == nil {
		return nil, fmt.Errorf("knowledge base store cannot be nil")
	}

	kb := &KnowledgeBase{
		store:       store,
		reasoner:    reasoner,
		logger:      slog.Default(),
		metrics:     noopMetrics{},
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(kb)
	}
	kb.logger = kb.logger.With("component", "knowledge_base")

	if kb.reasoner == nil {
		kb.reasoner = ReasonerFunc(func(_ context.Context, key compliance.PairKey) compliance.Entry {
			return compliance.FallbackEntry(key)
		})
	}
	return kb, nil
}

// Store returns the underlying store.
func (kb *KnowledgeBase) Store() Store {
	return kb.store
}

// Resolve returns an entry for every pair. It never fails: store errors count
// as misses or are logged, and reasoning failures yield fallback entries.
// Duplicate pairs are resolved once.
func (kb *KnowledgeBase) Resolve(ctx context.Context, pairs []compliance.PairKey, mode Mode) *Resolution {
	unique := make([]compliance.PairKey, 0, len(pairs))
	seen := make(map[compliance.PairKey]struct{}, len(pairs))
	for _, key := range pairs {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, key)
	}

	resolved := make([]Resolved, len(unique))

	var g errgroup.Group
	g.SetLimit(kb.concurrency)
	for i, key := range unique {
		g.Go(func() error {
			resolved[i] = kb.resolveOne(ctx, key, mode)
			return nil
		})
	}
	_ = g.Wait()

	res := &Resolution{
		Pairs:   resolved,
		entries: make(map[compliance.PairKey]compliance.Entry, len(resolved)),
	}
	for _, r := range resolved {
		res.entries[r.Key] = r.Entry
		if r.Source == SourceCache {
			res.Hits++
		} else {
			res.Misses++
		}
	}

	kb.logger.DebugContext(ctx, "Resolved pairs",
		"mode", string(mode),
		"pairs", len(resolved),
		"hits", res.Hits,
		"misses", res.Misses,
	)
	return res
}

func (kb *KnowledgeBase) resolveOne(ctx context.Context, key compliance.PairKey, mode Mode) Resolved {
	if entry, ok := kb.lookup(ctx, key); ok {
		kb.metrics.RecordCacheHit(CacheName)
		return Resolved{Key: key, Entry: entry, Source: SourceCache}
	}
	kb.metrics.RecordCacheMiss(CacheName)

	if mode == ModeQuick {
		return Resolved{Key: key, Entry: compliance.FallbackEntry(key), Source: SourceFallback}
	}

	if ctx.Err() != nil {
		return Resolved{Key: key, Entry: compliance.FallbackEntry(key), Source: SourceFallback}
	}

	// The flight is shared by every caller waiting on key, so it must not end
	// with the caller that started it. The reasoner bounds its own calls.
	flightCtx := context.WithoutCancel(ctx)
	ch := kb.flights.DoChan(flightKey(key), func() (any, error) {
		// Another flight may have stored the entry between our lookup and now.
		if entry, ok := kb.lookup(flightCtx, key); ok {
			return Resolved{Key: key, Entry: entry, Source: SourceCache}, nil
		}

		entry := kb.reasoner.Reason(flightCtx, key).WithDefaults(key)
		if err := kb.store.Put(flightCtx, key, entry); err != nil {
			kb.logger.WarnContext(flightCtx, "Failed to persist knowledge base entry",
				"action", key.Action,
				"reason", key.Reason,
				"error", err,
			)
		}

		src := SourceReasoner
		if entry == compliance.FallbackEntry(key) {
			src = SourceFallback
		}
		return Resolved{Key: key, Entry: entry, Source: src}, nil
	})

	select {
	case r := <-ch:
		return r.Val.(Resolved)
	case <-ctx.Done():
		kb.logger.DebugContext(ctx, "Stopped waiting for pair resolution",
			"action", key.Action,
			"reason", key.Reason,
			"error", ctx.Err(),
		)
		return Resolved{Key: key, Entry: compliance.FallbackEntry(key), Source: SourceFallback}
	}
}

// lookup reads key from the store. Read errors are logged and reported as a
// miss.
func (kb *KnowledgeBase) lookup(ctx context.Context, key compliance.PairKey) (compliance.Entry, bool) {
	entry, err := kb.store.Get(ctx, key)
	if err != nil {
		kb.logger.WarnContext(ctx, "Knowledge base lookup failed, treating as miss",
			"action", key.Action,
			"reason", key.Reason,
			"error", err,
		)
		return compliance.Entry{}, false
	}
	if entry == nil {
		return compliance.Entry{}, false
	}
	return *entry, true
}

// flightKey encodes key without ambiguity: the action length prefix makes
// ("a|b", "c") and ("a", "b|c") distinct.
func flightKey(key compliance.PairKey) string {
	return fmt.Sprintf("%d:%s|%s", len(key.Action), key.Action, key.Reason)
}
