package grading

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/mockgrader/internal/data/repos"
	types "github.com/yungbote/mockgrader/internal/domain"
	"github.com/yungbote/mockgrader/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/mockgrader/internal/pkg/errors"
	"github.com/yungbote/mockgrader/internal/platform/logger"
)

type FinalizeInput struct {
	Limit  int
	DryRun bool
}

type FinalizeStats struct {
	Seen          int
	Finalized     int
	UpdateFailed  int
	LoadFailed    int
	ZeroQuestions int
	Passed        int
	Notified      int
	NotifyFailed  int

	// AlreadyFinalized counts rows another run finalized between listing and update.
	AlreadyFinalized int
}

// denominator picks the count that the score sum is measured against.
type denominator int

const (
	perQuestion denominator = iota
	perAnswer
)

type settleMode struct {
	name        string
	filter      repos.UngradedFilter
	denominator denominator
	notify      bool
}

// FinalizeAttempts computes the percentage and pass flag of every fully scored
// free-tier attempt against its test's question count, bumps attempts to 1 and
// emails the learner. A failed email never undoes the stored result.
func (u Usecases) FinalizeAttempts(ctx context.Context, in FinalizeInput) (FinalizeStats, error) {
	return u.settle(ctx, in, settleMode{
		name: "finalize",
		filter: repos.UngradedFilter{
			RequireFreeTier:  true,
			RequireAllScored: true,
			Limit:            in.Limit,
		},
		denominator: perQuestion,
		notify:      true,
	})
}

func (u Usecases) settle(ctx context.Context, in FinalizeInput, mode settleMode) (FinalizeStats, error) {
	var stats FinalizeStats
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	if u.deps.Answers == nil || u.deps.Attempts == nil || u.deps.Tx == nil {
		return stats, fmt.Errorf("%s attempts: missing repo deps", mode.name)
	}
	if mode.denominator == perQuestion && u.deps.Questions == nil {
		return stats, fmt.Errorf("%s attempts: missing question repo", mode.name)
	}
	notify := mode.notify && u.deps.Identity != nil && u.deps.Mailer != nil
	if mode.notify && !notify {
		u.deps.Log.Warn("Result emails disabled: identity or mailer not configured")
	}

	attempts := u.UngradedAttempts(ctx, mode.filter)
	u.deps.Log.Info("Ungraded attempts loaded", "mode", mode.name, "count", len(attempts), "dry_run", in.DryRun)

	for i, attempt := range attempts {
		if err := ctx.Err(); err != nil {
			u.deps.Log.Warn("Finalization interrupted", "row", i, "remaining", len(attempts)-i)
			return stats, err
		}
		if attempt == nil {
			continue
		}
		stats.Seen++
		rowLog := u.deps.Log.With(
			"row", i,
			"attempt_id", attempt.ID,
			"test_id", attempt.MockID,
			"user_id", attempt.UserID,
		)

		outcome, zero, err := u.outcomeFor(ctx, attempt, mode.denominator)
		if err != nil {
			stats.LoadFailed++
			rowLog.Warn("Attempt skipped", "error", err)
			continue
		}
		if zero {
			stats.ZeroQuestions++
			rowLog.Warn("Nothing to measure the score against; recording 0%")
		}
		if in.DryRun {
			rowLog.Info("Would finalize attempt", "percentage", outcome.Percentage, "passed", outcome.Passed)
			continue
		}

		ok, err := u.finalizeOne(ctx, attempt, outcome)
		if err != nil {
			stats.UpdateFailed++
			rowLog.Error("Finalize failed", "error", err)
			continue
		}
		if !ok {
			if u.finalizedElsewhere(ctx, attempt, rowLog) {
				stats.AlreadyFinalized++
			} else {
				stats.UpdateFailed++
			}
			continue
		}
		stats.Finalized++
		if outcome.Passed {
			stats.Passed++
		}
		rowLog.Info("Attempt finalized",
			"score_sum", outcome.ScoreSum,
			"percentage", outcome.Percentage,
			"passed", outcome.Passed,
		)

		if !notify {
			continue
		}
		if err := u.NotifyResult(ctx, attempt, outcome.Passed); err != nil {
			stats.NotifyFailed++
			rowLog.Warn("Result email not sent", "error", err)
			continue
		}
		stats.Notified++
	}

	u.deps.Log.Info("Finalization finished",
		"mode", mode.name,
		"seen", stats.Seen,
		"finalized", stats.Finalized,
		"update_failed", stats.UpdateFailed,
		"already_finalized", stats.AlreadyFinalized,
		"notified", stats.Notified,
		"notify_failed", stats.NotifyFailed,
	)
	return stats, nil
}

func (u Usecases) outcomeFor(ctx context.Context, attempt *types.Attempt, d denominator) (Outcome, bool, error) {
	answers, err := u.deps.Answers.ListByAttemptID(ctx, nil, attempt.ID)
	if err != nil {
		return Outcome{}, false, fmt.Errorf("load answers: %w", err)
	}
	count := len(answers)
	if d == perQuestion {
		count, err = u.deps.Questions.CountByTestID(ctx, nil, attempt.MockID)
		if err != nil {
			return Outcome{}, false, fmt.Errorf("count questions: %w", err)
		}
	}
	return ComputeOutcome(SumScores(answers), count), count <= 0, nil
}

func (u Usecases) finalizeOne(ctx context.Context, attempt *types.Attempt, outcome Outcome) (bool, error) {
	ctx, span := tracer.Start(ctx, "grading.finalize_attempt")
	defer span.End()
	span.SetAttributes(
		attribute.String("attempt.id", attempt.ID),
		attribute.Int("attempt.percentage", outcome.Percentage),
		attribute.Bool("attempt.passed", outcome.Passed),
	)

	var ok bool
	err := u.deps.Tx.InTx(ctx, func(dbc dbctx.Context) error {
		var err error
		ok, err = u.deps.Attempts.Finalize(dbc.Ctx, dbc.Tx, repos.FinalizeUpdate{
			AttemptID:  attempt.ID,
			UserID:     attempt.UserID,
			TotalScore: outcome.Percentage,
			Passed:     outcome.Passed,
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	return ok, nil
}

// finalizedElsewhere re-reads an attempt whose guarded update matched nothing
// and reports whether a concurrent run already recorded its result.
func (u Usecases) finalizedElsewhere(ctx context.Context, attempt *types.Attempt, rowLog *logger.Logger) bool {
	current, err := u.deps.Attempts.GetByID(ctx, nil, attempt.ID)
	switch {
	case errors.Is(err, pkgerrors.ErrNotFound):
		rowLog.Warn("Finalize matched no row; attempt no longer exists")
		return false
	case err != nil:
		rowLog.Warn("Finalize matched no row; reload failed", "error", err)
		return false
	case current.IsFinalized():
		rowLog.Info("Attempt already finalized by another run", "total_score", current.TotalScore)
		return true
	default:
		rowLog.Warn("Finalize matched no row; attempt owner changed", "current_user_id", current.UserID)
		return false
	}
}

// NotifyResult emails the attempt's owner a link to their results.
func (u Usecases) NotifyResult(ctx context.Context, attempt *types.Attempt, passed bool) error {
	if u.deps.Identity == nil || u.deps.Mailer == nil {
		return fmt.Errorf("notify: identity or mailer not configured")
	}
	to, err := u.deps.Identity.LookupEmail(ctx, attempt.UserID)
	if err != nil {
		return fmt.Errorf("lookup email: %w", err)
	}
	if to == "" {
		return fmt.Errorf("lookup email: user has no address")
	}
	subject, html, err := RenderResultEmail(ResultEmail{
		Link:         ResultLink(u.deps.Email.ResultsBaseURL, attempt.MockID),
		Passed:       passed,
		BrandName:    u.deps.Email.BrandName,
		SupportEmail: u.deps.Email.SupportEmail,
		LogoURL:      u.deps.Email.LogoURL,
	})
	if err != nil {
		return err
	}
	if err := u.deps.Mailer.Send(ctx, to, subject, html); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}
