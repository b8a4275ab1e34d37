package source

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"mercator-hq/verdict/pkg/policy"
)

// Holder keeps the active rule snapshot of a Source.
type Holder struct {
	source Source
	logger *slog.Logger

	current atomic.Pointer[Snapshot]

	// reloadMu serializes reloads so snapshots are installed in load order.
	reloadMu sync.Mutex

	// OnReload, when set, is called after every reload attempt with the
	// error, nil on success.
	OnReload func(snap *Snapshot, err error)
}

// NewHolder loads the initial snapshot. A policy that fails to load here is
// a configuration error.
func NewHolder(ctx context.Context, src Source, logger *slog.Logger) (*Holder, error) {
	if src == nil {
		return nil, fmt.Errorf("policy source cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	snap, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}

	h := &Holder{
		source: src,
		logger: logger.With("component", "policy.holder"),
	}
	h.current.Store(snap)

	h.logger.Info("Policy loaded",
		"origin", snap.Origin,
		"revision", snap.Revision,
		"rules", snap.Engine.Len(),
	)
	return h, nil
}

// Engine returns the active rule engine.
func (h *Holder) Engine() *policy.Engine {
	return h.current.Load().Engine
}

// Snapshot returns the active snapshot.
func (h *Holder) Snapshot() *Snapshot {
	return h.current.Load()
}

// Reload loads a new snapshot from the source. On failure the previous
// snapshot stays active and the error is returned.
func (h *Holder) Reload(ctx context.Context) error {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()

	snap, err := h.source.Load(ctx)
	if err != nil {
		h.logger.Error("Policy reload failed, keeping previous rules",
			"revision", h.current.Load().Revision,
			"error", err,
		)
		if h.OnReload != nil {
			h.OnReload(nil, err)
		}
		return err
	}

	prev := h.current.Swap(snap)
	h.logger.Info("Policy reloaded",
		"previous_revision", prev.Revision,
		"revision", snap.Revision,
		"rules", snap.Engine.Len(),
	)
	if h.OnReload != nil {
		h.OnReload(snap, nil)
	}
	return nil
}

// Run watches the source and reloads on change until ctx is cancelled.
func (h *Holder) Run(ctx context.Context) error {
	return h.source.Watch(ctx, func() {
		_ = h.Reload(ctx)
	})
}
