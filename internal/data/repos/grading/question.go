package grading

import (
	"context"

	"gorm.io/gorm"

	types "github.com/yungbote/mockgrader/internal/domain"
	"github.com/yungbote/mockgrader/internal/platform/logger"
)

type QuestionRepo interface {
	CountByTestID(ctx context.Context, tx *gorm.DB, testID string) (int, error)
}

type questionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionRepo(db *gorm.DB, baseLog *logger.Logger) QuestionRepo {
	repoLog := baseLog.With("repo", "QuestionRepo")
	return &questionRepo{db: db, log: repoLog}
}

func (r *questionRepo) CountByTestID(ctx context.Context, tx *gorm.DB, testID string) (int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if testID == "" {
		return 0, nil
	}

	var n int64
	if err := transaction.WithContext(ctx).
		Model(&types.Question{}).
		Where("mock_id = ?", testID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}
