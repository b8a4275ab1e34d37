package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"mercator-hq/verdict/pkg/pipeline"
)

// StageProgress prints pipeline progress for interactive runs. It
// implements pipeline.Observer.
type StageProgress struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewStageProgress creates a progress printer that writes to w. If w is
// nil, it defaults to os.Stderr.
func NewStageProgress(w io.Writer) *StageProgress {
	if w == nil {
		w = os.Stderr
	}
	return &StageProgress{writer: w}
}

func (p *StageProgress) StageStarted(context.Context, string, string) {}

func (p *StageProgress) StageCompleted(_ context.Context, _ string, r pipeline.StageResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	mark := "✓"
	if r.Status == pipeline.StatusSkipped {
		mark = "-"
	}
	fmt.Fprintf(p.writer, "%s %-20s %6d records  %.3fs  %s\n",
		mark, r.Name, r.RecordsProcessed, r.Duration.Seconds(), r.Description)
}

func (p *StageProgress) RunCompleted(_ context.Context, r *pipeline.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := r.Report.Summary
	fmt.Fprintf(p.writer, "Run %s: %d records, %.1f%% compliant (cache %d hit / %d miss) in %.3fs\n",
		r.RunID, s.Total, s.ComplianceRate, r.CacheHits, r.CacheMisses, r.Duration().Seconds())
}
