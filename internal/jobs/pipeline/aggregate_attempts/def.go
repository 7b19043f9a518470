package aggregate_attempts

import "github.com/yungbote/mockgrader/internal/modules/grading"

// JobType is the aggregation-only variant: every fully scored attempt, any
// tier, no emails, percentage over answers rather than questions.
const JobType = "aggregate_attempts"

// Pipeline logs through the run's logger; deps.Log is replaced per run.
type Pipeline struct {
	deps grading.UsecasesDeps
}

func New(deps grading.UsecasesDeps) *Pipeline {
	return &Pipeline{deps: deps}
}

func (p *Pipeline) Type() string { return JobType }
