package score_answers

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
	jc.Progress("score", "Scoring pending answers")
	stats, err := grading.New(p.deps).WithLog(jc.Log).ScoreAnswers(jc.Ctx, grading.ScoreAnswersInput{
		Limit:  jc.Options.Limit,
		DryRun: jc.Options.DryRun,
	})
	recordStats(observability.Current(), stats)
	if errors.Is(err, context.Canceled) {
		jc.Progress("interrupted", "Scoring interrupted, remaining rows left for the next run")
		return err
	}
	if err != nil {
		jc.Fail("score", err)
		return nil
	}
	jc.Succeed("done", map[string]any{
		"seen":               stats.Seen,
		"scored":             stats.Scored,
		"skipped":            stats.Skipped(),
		"skipped_download":   stats.SkippedDownload,
		"skipped_transcribe": stats.SkippedTranscribe,
		"skipped_grade":      stats.SkippedGrade,
		"skipped_persist":    stats.SkippedPersist,
		"deleted_audio":      stats.DeletedAudio,
		"dry_run":            jc.Options.DryRun,
	})
	return nil
}

func recordStats(m *observability.Metrics, s grading.ScoreAnswersStats) {
	m.AddRows(JobType, "seen", s.Seen)
	m.AddRows(JobType, "scored", s.Scored)
	m.AddRows(JobType, "skipped_download", s.SkippedDownload)
	m.AddRows(JobType, "skipped_transcribe", s.SkippedTranscribe)
	m.AddRows(JobType, "skipped_grade", s.SkippedGrade)
	m.AddRows(JobType, "skipped_persist", s.SkippedPersist)
	m.AddRows(JobType, "deleted_audio", s.DeletedAudio)
}
