// Package source loads rule policies from files or Git repositories and keeps
// the current rule engine available for pipeline runs.
//
// A Holder owns the active engine. Reloads triggered by a Source replace the
// engine atomically; a reload that fails validation leaves the previous
// engine in place and is logged. Pipeline runs snapshot the engine once, so
// rules never change within a run.
package source

import (
	"context"
	"time"

	"mercator-hq/verdict/pkg/policy"
)

// Snapshot is a loaded rule engine together with its provenance.
type Snapshot struct {
	// Engine is the compiled rule set.
	Engine *policy.Engine

	// Revision identifies the loaded content: the commit hash for Git
	// sources, the engine version for file sources.
	Revision string

	// Origin is the file path or repository URL the rules came from.
	Origin string

	// LoadedAt is when the snapshot was built.
	LoadedAt time.Time
}

// Source provides rule snapshots and change notifications.
type Source interface {
	// Load reads and validates the current rules.
	Load(ctx context.Context) (*Snapshot, error)

	// Watch blocks until ctx is cancelled, calling onChange whenever the
	// underlying rules may have changed.
	Watch(ctx context.Context, onChange func()) error
}
