package finalize_attempts

import "github.com/yungbote/mockgrader/internal/modules/grading"

const JobType = "finalize_attempts"

// Pipeline logs through the run's logger; deps.Log is replaced per run.
type Pipeline struct {
	deps grading.UsecasesDeps
}

func New(deps grading.UsecasesDeps) *Pipeline {
	return &Pipeline{deps: deps}
}

func (p *Pipeline) Type() string { return JobType }
