package grading

import (
	"context"

	"github.com/yungbote/mockgrader/internal/data/repos"
)

// AggregateAttempts is the reporting variant: every fully scored attempt
// regardless of subscription, measured against the answers actually given,
// with no notification.
func (u Usecases) AggregateAttempts(ctx context.Context, in FinalizeInput) (FinalizeStats, error) {
	return u.settle(ctx, in, settleMode{
		name: "aggregate",
		filter: repos.UngradedFilter{
			RequireAllScored: true,
			Limit:            in.Limit,
		},
		denominator: perAnswer,
	})
}
