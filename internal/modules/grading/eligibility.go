package grading

import (
	"context"

	"github.com/yungbote/mockgrader/internal/data/repos"
	types "github.com/yungbote/mockgrader/internal/domain"
)

// PendingAnswers lists ungraded answers of free-tier users. A storage failure is
// logged and reported as an empty batch so the run ends cleanly.
func (u Usecases) PendingAnswers(ctx context.Context, limit int) []types.PendingAnswer {
	rows, err := u.deps.Answers.ListPending(ctx, nil, limit)
	if err != nil {
		u.deps.Log.Error("Eligibility query failed", "query", "pending_answers", "error", err)
		return nil
	}
	return rows
}

// UngradedAttempts lists attempts that are ready to be finalized. Same
// fail-soft contract as PendingAnswers.
func (u Usecases) UngradedAttempts(ctx context.Context, f repos.UngradedFilter) []*types.Attempt {
	rows, err := u.deps.Attempts.ListUngraded(ctx, nil, f)
	if err != nil {
		u.deps.Log.Error("Eligibility query failed",
			"query", "ungraded_attempts",
			"free_tier_only", f.RequireFreeTier,
			"error", err,
		)
		return nil
	}
	return rows
}
