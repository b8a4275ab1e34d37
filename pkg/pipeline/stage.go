package pipeline

import (
	"time"

	"mercator-hq/verdict/pkg/compliance"
	"mercator-hq/verdict/pkg/knowledge"
)

// Stage names.
const (
	StageRuleApplication = "Rule Application"
	StageSegregation     = "Data Segregation"
	StageKnowledgeBase   = "Knowledge Base"
	StageClassification  = "Classification"
	StageReport          = "Report Generation"
)

var stageDescriptions = map[string]string{
	StageRuleApplication: "Applying policy rules to data",
	StageSegregation:     "Extracting unique action-reason pairs",
	StageKnowledgeBase:   "Fetching compliance metadata",
	StageClassification:  "Deriving compliance status and confidence",
	StageReport:          "Generating final report",
}

// StageStatus is the state of a stage in a run.
type StageStatus string

const (
	StatusCompleted StageStatus = "completed"
	StatusSkipped   StageStatus = "skipped"
)

// StageResult describes one executed stage.
type StageResult struct {
	Name             string        `json:"name"`
	Description      string        `json:"description"`
	Status           StageStatus   `json:"status"`
	Duration         time.Duration `json:"-"`
	DurationSeconds  float64       `json:"execution_time"`
	RecordsProcessed int           `json:"records_processed"`
}

// Result is the outcome of a run.
type Result struct {
	RunID         string               `json:"run_id"`
	Mode          knowledge.Mode       `json:"mode"`
	PolicyVersion string               `json:"policy_version"`
	Stages        []StageResult        `json:"stages"`
	Pairs         []knowledge.Resolved `json:"pairs"`
	CacheHits     int                  `json:"cache_hits"`
	CacheMisses   int                  `json:"cache_misses"`
	StartedAt     time.Time            `json:"started_at"`
	CompletedAt   time.Time            `json:"completed_at"`

	Report compliance.Report `json:"report"`
}

// Duration returns the wall time of the run.
func (r *Result) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}
