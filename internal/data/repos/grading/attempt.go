package grading

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/mockgrader/internal/domain"
	pkgerrors "github.com/yungbote/mockgrader/internal/pkg/errors"
	"github.com/yungbote/mockgrader/internal/platform/logger"
)

type UngradedFilter struct {
	// RequireFreeTier keeps only attempts whose user has payment_required = false.
	RequireFreeTier bool
	// RequireAllScored keeps only attempts with at least one answer and no unscored answers.
	RequireAllScored bool
	Limit            int
}

type FinalizeUpdate struct {
	AttemptID  string
	UserID     string
	TotalScore int
	Passed     bool
}

type AttemptRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Attempt, error)
	ListUngraded(ctx context.Context, tx *gorm.DB, f UngradedFilter) ([]*types.Attempt, error)
	Finalize(ctx context.Context, tx *gorm.DB, upd FinalizeUpdate) (bool, error)
}

type attemptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAttemptRepo(db *gorm.DB, baseLog *logger.Logger) AttemptRepo {
	repoLog := baseLog.With("repo", "AttemptRepo")
	return &attemptRepo{db: db, log: repoLog}
}

func (r *attemptRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Attempt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var out types.Attempt
	err := transaction.WithContext(ctx).Where("id = ?", id).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("attempt %q: %w", id, pkgerrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *attemptRepo) ListUngraded(ctx context.Context, tx *gorm.DB, f UngradedFilter) ([]*types.Attempt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	q := transaction.WithContext(ctx).
		Model(&types.Attempt{}).
		Where("user_mocks.total_score IS NULL AND user_mocks.attempts = 0")
	if f.RequireFreeTier {
		q = q.Where(freeTierClause("user_mocks.user_id"), false)
	}
	if f.RequireAllScored {
		q = q.
			Where("EXISTS (SELECT 1 FROM mock_answers a WHERE a.user_mock_id = user_mocks.id)").
			Where("NOT EXISTS (SELECT 1 FROM mock_answers a WHERE a.user_mock_id = user_mocks.id AND a.score IS NULL)")
	}
	q = q.Order("user_mocks.created_on ASC").Order("user_mocks.id ASC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var results []*types.Attempt
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// Finalize sets the outcome and bumps attempts from 0 to 1. The row must still be
// unfinalized, so a second run racing on the same attempt updates nothing and
// gets false back.
func (r *attemptRepo) Finalize(ctx context.Context, tx *gorm.DB, upd FinalizeUpdate) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if upd.AttemptID == "" || upd.UserID == "" {
		return false, fmt.Errorf("finalize: attempt and user ids required")
	}

	res := transaction.WithContext(ctx).
		Model(&types.Attempt{}).
		Where("id = ? AND user_id = ?", upd.AttemptID, upd.UserID).
		Where("attempts = 0 AND total_score IS NULL").
		Updates(map[string]any{
			"attempts":    gorm.Expr("attempts + ?", 1),
			"total_score": upd.TotalScore,
			"passed":      upd.Passed,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		r.log.Warn("Attempt not updated", "attempt_id", upd.AttemptID, "user_id", upd.UserID)
		return false, nil
	}
	return true, nil
}
