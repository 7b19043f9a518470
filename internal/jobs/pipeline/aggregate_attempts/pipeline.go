package aggregate_attempts

import (
	"context"
	"errors"

	"github.com/yungbote/mockgrader/internal/jobs/pipeline/finalize_attempts"
	jobrt "github.com/yungbote/mockgrader/internal/jobs/runtime"
	"github.com/yungbote/mockgrader/internal/modules/grading"
	"github.com/yungbote/mockgrader/internal/observability"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil {
		return nil
	}
	jc.Progress("aggregate", "Aggregating scored attempts")
	stats, err := grading.New(p.deps).WithLog(jc.Log).AggregateAttempts(jc.Ctx, grading.FinalizeInput{
		Limit:  jc.Options.Limit,
		DryRun: jc.Options.DryRun,
	})
	finalize_attempts.RecordStats(observability.Current(), JobType, stats)
	if errors.Is(err, context.Canceled) {
		jc.Progress("interrupted", "Aggregation interrupted")
		return err
	}
	if err != nil {
		jc.Fail("aggregate", err)
		return nil
	}
	jc.Succeed("done", finalize_attempts.Summary(stats, jc.Options.DryRun))
	return nil
}
