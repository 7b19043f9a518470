package finalize_attempts

import (
	"context"
	"errors"

	jobrt "github.com/yungbote/mockgrader/internal/jobs/runtime"
	"github.com/yungbote/mockgrader/internal/modules/grading"
	"github.com/yungbote/mockgrader/internal/observability"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil {
		return nil
	}
	jc.Progress("finalize", "Finalizing fully scored attempts")
	stats, err := grading.New(p.deps).WithLog(jc.Log).FinalizeAttempts(jc.Ctx, grading.FinalizeInput{
		Limit:  jc.Options.Limit,
		DryRun: jc.Options.DryRun,
	})
	RecordStats(observability.Current(), JobType, stats)
	if errors.Is(err, context.Canceled) {
		jc.Progress("interrupted", "Finalization interrupted, remaining attempts left for the next run")
		return err
	}
	if err != nil {
		jc.Fail("finalize", err)
		return nil
	}
	jc.Succeed("done", Summary(stats, jc.Options.DryRun))
	return nil
}

// RecordStats and Summary are shared with the aggregation job.
func RecordStats(m *observability.Metrics, job string, s grading.FinalizeStats) {
	m.AddRows(job, "seen", s.Seen)
	m.AddRows(job, "finalized", s.Finalized)
	m.AddRows(job, "passed", s.Passed)
	m.AddRows(job, "update_failed", s.UpdateFailed)
	m.AddRows(job, "already_finalized", s.AlreadyFinalized)
	m.AddRows(job, "load_failed", s.LoadFailed)
	m.AddRows(job, "zero_questions", s.ZeroQuestions)
	m.AddRows(job, "notified", s.Notified)
	m.AddRows(job, "notify_failed", s.NotifyFailed)
}

func Summary(s grading.FinalizeStats, dryRun bool) map[string]any {
	return map[string]any{
		"seen":              s.Seen,
		"finalized":         s.Finalized,
		"passed":            s.Passed,
		"update_failed":     s.UpdateFailed,
		"already_finalized": s.AlreadyFinalized,
		"load_failed":       s.LoadFailed,
		"zero_questions":    s.ZeroQuestions,
		"notified":          s.Notified,
		"notify_failed":     s.NotifyFailed,
		"dry_run":           dryRun,
	}
}
