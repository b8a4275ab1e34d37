package knowledge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"mercator-hq/verdict/pkg/compliance"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mapStore is an in-memory Store with injectable failures.
type mapStore struct {
	mu      sync.Mutex
	entries map[compliance.PairKey]compliance.Entry
	getErr  error
	putErr  error
	puts    int
}

func newMapStore() *mapStore {
	return &mapStore{entries: make(map[compliance.PairKey]compliance.Entry)}
}

func (s *mapStore) Get(_ context.Context, key compliance.PairKey) (*compliance.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	e, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *mapStore) Put(_ context.Context, key compliance.PairKey, entry compliance.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.putErr != nil {
		return s.putErr
	}
	s.entries[key] = entry
	return nil
}

// countingReasoner answers with a fixed entry and counts calls per key.
type countingReasoner struct {
	mu    sync.Mutex
	calls map[compliance.PairKey]int
	delay time.Duration
	total atomic.Int64
}

func newCountingReasoner() *countingReasoner {
	return &countingReasoner{calls: make(map[compliance.PairKey]int)}
}

func (r *countingReasoner) Reason(ctx context.Context, key compliance.PairKey) compliance.Entry {
	r.total.Add(1)
	r.mu.Lock()
	r.calls[key]++
	r.mu.Unlock()

	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return compliance.FallbackEntry(key)
		}
	}
	return compliance.Entry{
		ComplianceFramework: "SOC 2",
		ObligationID:        "CC6.1",
		Description:         "Access control for " + key.Action,
		Category:            "Access Control",
		Severity:            "High",
	}
}

func (r *countingReasoner) callsFor(key compliance.PairKey) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[key]
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestKB(t *testing.T, store Store, reasoner Reasoner) *KnowledgeBase {
	t.Helper()
	kb, err := New(store, reasoner, WithLogger(quietLogger()), WithConcurrency(8))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return kb
}

var (
	denyKey  = compliance.PairKey{Action: "deny", Reason: "high risk"}
	allowKey = compliance.PairKey{Action: "allow", Reason: "ok"}
)

func TestNew_NilStore(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Fatal("New(nil) expected error")
	}
}

// TestResolve_FullModeCachesReasonerAnswer tests that a key is reasoned
// about at most once
func TestResolve_FullModeCachesReasonerAnswer(t *testing.T) {
	store := newMapStore()
	reasoner := newCountingReasoner()
	kb := newTestKB(t, store, reasoner)
	ctx := context.Background()

	first := kb.Resolve(ctx, []compliance.PairKey{denyKey}, ModeFull)
	second := kb.Resolve(ctx, []compliance.PairKey{denyKey}, ModeFull)

	if got := reasoner.callsFor(denyKey); got != 1 {
		t.Errorf("reasoner called %d times, want 1", got)
	}

	e1, _ := first.Entry(denyKey)
	e2, _ := second.Entry(denyKey)
	if diff := cmp.Diff(e1, e2); diff != "" {
		t.Errorf("second resolution differs (-first +second):\n%s", diff)
	}
	if first.Pairs[0].Source != SourceReasoner {
		t.Errorf("first source = %q, want reasoner", first.Pairs[0].Source)
	}
	if second.Pairs[0].Source != SourceCache || second.Hits != 1 || second.Misses != 0 {
		t.Errorf("second resolution = %+v, want a cache hit", second)
	}
}

func TestResolve_CacheHitUsedUnmodified(t *testing.T) {
	store := newMapStore()
	cached := compliance.Entry{ComplianceFramework: "GDPR", ObligationID: "Art. 32"}
	store.entries[denyKey] = cached

	reasoner := newCountingReasoner()
	kb := newTestKB(t, store, reasoner)

	res := kb.Resolve(context.Background(), []compliance.PairKey{denyKey}, ModeFull)
	got, ok := res.Entry(denyKey)
	if !ok {
		t.Fatal("Entry() missing key")
	}
	if diff := cmp.Diff(cached, got); diff != "" {
		t.Errorf("cached entry modified (-want +got):\n%s", diff)
	}
	if reasoner.total.Load() != 0 {
		t.Error("reasoner called on a cache hit")
	}
}

// TestResolve_QuickMode tests that quick mode consults the cache but never
// reasons or persists
func TestResolve_QuickMode(t *testing.T) {
	store := newMapStore()
	store.entries[allowKey] = compliance.Entry{ComplianceFramework: "PCI DSS", ObligationID: "1.1"}
	reasoner := newCountingReasoner()
	kb := newTestKB(t, store, reasoner)

	res := kb.Resolve(context.Background(), []compliance.PairKey{denyKey, allowKey}, ModeQuick)

	if reasoner.total.Load() != 0 {
		t.Error("reasoner called in quick mode")
	}
	if store.puts != 0 {
		t.Errorf("store written %d times in quick mode", store.puts)
	}

	want := []Resolved{
		{Key: denyKey, Entry: compliance.FallbackEntry(denyKey), Source: SourceFallback},
		{Key: allowKey, Entry: store.entries[allowKey], Source: SourceCache},
	}
	if diff := cmp.Diff(want, res.Pairs); diff != "" {
		t.Errorf("Pairs mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_FirstSeenOrderAndDuplicates(t *testing.T) {
	kb := newTestKB(t, newMapStore(), newCountingReasoner())

	keys := []compliance.PairKey{
		{Action: "c", Reason: "3"},
		{Action: "a", Reason: "1"},
		{Action: "c", Reason: "3"},
		{Action: "b", Reason: "2"},
	}
	res := kb.Resolve(context.Background(), keys, ModeFull)

	if len(res.Pairs) != 3 {
		t.Fatalf("len(Pairs) = %d, want 3", len(res.Pairs))
	}
	for i, want := range []string{"c", "a", "b"} {
		if res.Pairs[i].Key.Action != want {
			t.Errorf("Pairs[%d] = %q, want %q", i, res.Pairs[i].Key.Action, want)
		}
	}
}

// TestResolve_ConcurrentRunsShareOneReasonerCall tests per-key exclusion
// across concurrent resolutions
func TestResolve_ConcurrentRunsShareOneReasonerCall(t *testing.T) {
	store := newMapStore()
	reasoner := newCountingReasoner()
	reasoner.delay = 50 * time.Millisecond
	kb := newTestKB(t, store, reasoner)

	const runs = 16
	results := make([]*Resolution, runs)
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = kb.Resolve(context.Background(), []compliance.PairKey{denyKey, allowKey}, ModeFull)
		}(i)
	}
	wg.Wait()

	if got := reasoner.callsFor(denyKey); got != 1 {
		t.Errorf("reasoner called %d times for %v, want 1", got, denyKey)
	}
	if got := reasoner.callsFor(allowKey); got != 1 {
		t.Errorf("reasoner called %d times for %v, want 1", got, allowKey)
	}

	want, _ := results[0].Entry(denyKey)
	for i, res := range results {
		got, _ := res.Entry(denyKey)
		if got != want {
			t.Errorf("run %d entry = %+v, want %+v", i, got, want)
		}
	}
}

// gatedReasoner blocks every call until release is closed. It ignores
// cancellation so a call only ends when released.
type gatedReasoner struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int64
}

func (r *gatedReasoner) Reason(_ context.Context, key compliance.PairKey) compliance.Entry {
	if r.calls.Add(1) == 1 {
		close(r.started)
	}
	<-r.release
	return compliance.Entry{ComplianceFramework: "SOC 2", ObligationID: "CC6.1", Category: "Access Control", Severity: "High"}
}

// TestResolve_CanceledCallerLeavesSharedFlight tests that a run whose context
// ends stops waiting with the fallback, while a concurrent run on the same
// key still gets the reasoner's answer and only that answer is stored
func TestResolve_CanceledCallerLeavesSharedFlight(t *testing.T) {
	store := newMapStore()
	reasoner := &gatedReasoner{started: make(chan struct{}), release: make(chan struct{})}
	kb := newTestKB(t, store, reasoner)

	ctx, cancel := context.WithCancel(context.Background())
	canceled := make(chan *Resolution, 1)
	go func() { canceled <- kb.Resolve(ctx, []compliance.PairKey{denyKey}, ModeFull) }()

	select {
	case <-reasoner.started:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the reasoner call")
	}

	live := make(chan *Resolution, 1)
	go func() { live <- kb.Resolve(context.Background(), []compliance.PairKey{denyKey}, ModeFull) }()

	cancel()
	var first *Resolution
	select {
	case first = <-canceled:
	case <-time.After(5 * time.Second):
		t.Fatal("canceled run did not return")
	}
	if got, _ := first.Entry(denyKey); got != compliance.FallbackEntry(denyKey) {
		t.Errorf("canceled run entry = %+v, want fallback", got)
	}

	close(reasoner.release)
	second := <-live

	got, _ := second.Entry(denyKey)
	if got.ComplianceFramework != "SOC 2" {
		t.Errorf("live run entry = %+v, want the reasoner answer", got)
	}
	if n := reasoner.calls.Load(); n != 1 {
		t.Errorf("reasoner called %d times, want 1", n)
	}
	stored, _ := store.Get(context.Background(), denyKey)
	if stored == nil || stored.ComplianceFramework != "SOC 2" {
		t.Errorf("stored entry = %+v, want the reasoner answer", stored)
	}
}

func TestResolve_CanceledBeforeStartSkipsReasoner(t *testing.T) {
	store := newMapStore()
	reasoner := newCountingReasoner()
	kb := newTestKB(t, store, reasoner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := kb.Resolve(ctx, []compliance.PairKey{denyKey}, ModeFull)
	if got, _ := res.Entry(denyKey); got != compliance.FallbackEntry(denyKey) {
		t.Errorf("entry = %+v, want fallback", got)
	}
	if reasoner.total.Load() != 0 || store.puts != 0 {
		t.Errorf("reasoner calls = %d, puts = %d; want 0, 0", reasoner.total.Load(), store.puts)
	}
}

func TestResolve_StoreReadErrorIsMiss(t *testing.T) {
	store := newMapStore()
	store.getErr = errors.New("disk on fire")
	reasoner := newCountingReasoner()
	kb := newTestKB(t, store, reasoner)

	res := kb.Resolve(context.Background(), []compliance.PairKey{denyKey}, ModeFull)
	if res.Misses != 1 {
		t.Errorf("Misses = %d, want 1", res.Misses)
	}
	if reasoner.total.Load() != 1 {
		t.Errorf("reasoner calls = %d, want 1", reasoner.total.Load())
	}
}

func TestResolve_StoreWriteErrorStillResolves(t *testing.T) {
	store := newMapStore()
	store.putErr = errors.New("read-only")
	kb := newTestKB(t, store, newCountingReasoner())

	res := kb.Resolve(context.Background(), []compliance.PairKey{denyKey}, ModeFull)
	got, ok := res.Entry(denyKey)
	if !ok || got.ComplianceFramework != "SOC 2" {
		t.Errorf("Entry() = %+v, %v, want reasoner entry", got, ok)
	}
}

// TestResolve_NilReasonerPersistsFallback tests full mode without a provider
func TestResolve_NilReasonerPersistsFallback(t *testing.T) {
	store := newMapStore()
	kb := newTestKB(t, store, nil)

	res := kb.Resolve(context.Background(), []compliance.PairKey{denyKey}, ModeFull)
	if res.Pairs[0].Source != SourceFallback {
		t.Errorf("Source = %q, want fallback", res.Pairs[0].Source)
	}
	if _, ok := store.entries[denyKey]; !ok {
		t.Error("fallback entry not persisted in full mode")
	}
}

func TestResolve_PartialReasonerAnswerFilled(t *testing.T) {
	partial := ReasonerFunc(func(_ context.Context, _ compliance.PairKey) compliance.Entry {
		return compliance.Entry{ComplianceFramework: "HIPAA"}
	})
	kb := newTestKB(t, newMapStore(), partial)

	res := kb.Resolve(context.Background(), []compliance.PairKey{denyKey}, ModeFull)
	got, _ := res.Entry(denyKey)
	want := compliance.FallbackEntry(denyKey)
	want.ComplianceFramework = "HIPAA"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Entry() mismatch (-want +got):\n%s", diff)
	}
}

type countingMetrics struct {
	hits, misses atomic.Int64
}

func (m *countingMetrics) RecordCacheHit(string)  { m.hits.Add(1) }
func (m *countingMetrics) RecordCacheMiss(string) { m.misses.Add(1) }

func TestResolve_RecordsMetrics(t *testing.T) {
	m := &countingMetrics{}
	kb, err := New(newMapStore(), newCountingReasoner(), WithLogger(quietLogger()), WithMetrics(m))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	ctx := context.Background()
	kb.Resolve(ctx, []compliance.PairKey{denyKey}, ModeFull)
	kb.Resolve(ctx, []compliance.PairKey{denyKey}, ModeFull)

	if m.hits.Load() != 1 || m.misses.Load() != 1 {
		t.Errorf("hits=%d misses=%d, want 1 and 1", m.hits.Load(), m.misses.Load())
	}
}

func TestResolve_Empty(t *testing.T) {
	kb := newTestKB(t, newMapStore(), nil)
	res := kb.Resolve(context.Background(), nil, ModeFull)
	if len(res.Pairs) != 0 || res.Hits != 0 || res.Misses != 0 {
		t.Errorf("Resolve(nil) = %+v, want empty", res)
	}
}

func TestFlightKey_Unambiguous(t *testing.T) {
	a := flightKey(compliance.PairKey{Action: "a|b", Reason: "c"})
	b := flightKey(compliance.PairKey{Action: "a", Reason: "b|c"})
	if a == b {
		t.Errorf("flightKey collision: %q", a)
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(" Quick "); err != nil || m != ModeQuick {
		t.Errorf("ParseMode(Quick) = %q, %v", m, err)
	}
	if m, err := ParseMode("full"); err != nil || m != ModeFull {
		t.Errorf("ParseMode(full) = %q, %v", m, err)
	}
	if _, err := ParseMode("turbo"); err == nil {
		t.Error("ParseMode(turbo) expected error")
	}
}
