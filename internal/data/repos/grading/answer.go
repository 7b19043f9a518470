package grading

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/mockgrader/internal/domain"
	"github.com/yungbote/mockgrader/internal/platform/logger"
)

// GradeUpdate is the write-back for one scored answer. The row is matched by
// (QuestionID, AttemptID, UserID).
type GradeUpdate struct {
	QuestionID string
	AttemptID  string
	UserID     string
	TestID     string
	Transcript string
	Score      int
	IsCorrect  bool
}

type AnswerRepo interface {
	ListPending(ctx context.Context, tx *gorm.DB, limit int) ([]types.PendingAnswer, error)
	ListByAttemptID(ctx context.Context, tx *gorm.DB, attemptID string) ([]*types.Answer, error)
	ApplyGrade(ctx context.Context, tx *gorm.DB, upd GradeUpdate) (bool, error)
}

type answerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnswerRepo(db *gorm.DB, baseLog *logger.Logger) AnswerRepo {
	repoLog := baseLog.With("repo", "AnswerRepo")
	return &answerRepo{db: db, log: repoLog}
}

// ListPending returns answers with neither transcript nor score, paired with their
// question, for users whose subscription does not require payment.
func (r *answerRepo) ListPending(ctx context.Context, tx *gorm.DB, limit int) ([]types.PendingAnswer, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	q := transaction.WithContext(ctx).
		InnerJoins("Question").
		Where("mock_answers.transcript IS NULL AND mock_answers.score IS NULL").
		Where(freeTierClause("mock_answers.user_id"), false).
		Order("mock_answers.created_on ASC").
		Order("mock_answers.id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []*types.Answer
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]types.PendingAnswer, 0, len(rows))
	for _, row := range rows {
		if row == nil || row.Question == nil {
			continue
		}
		question := *row.Question
		answer := *row
		answer.Question = nil
		p, err := types.NewPendingAnswer(answer, question)
		if err != nil {
			r.log.Warn("Skipping malformed pending answer", "answer_id", row.ID, "error", err)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *answerRepo) ListByAttemptID(ctx context.Context, tx *gorm.DB, attemptID string) ([]*types.Answer, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Answer
	if attemptID == "" {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_mock_id = ?", attemptID).
		Order("created_on ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ApplyGrade writes the grade only when exactly one row matches the key and that
// row is still ungraded. It reports false, not an error, when nothing was written.
func (r *answerRepo) ApplyGrade(ctx context.Context, tx *gorm.DB, upd GradeUpdate) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if upd.QuestionID == "" || upd.AttemptID == "" || upd.UserID == "" {
		return false, fmt.Errorf("apply grade: question, attempt and user ids required")
	}

	match := func() *gorm.DB {
		return transaction.WithContext(ctx).
			Model(&types.Answer{}).
			Where("mock_question_id = ? AND user_mock_id = ? AND user_id = ?", upd.QuestionID, upd.AttemptID, upd.UserID)
	}

	var n int64
	if err := match().Count(&n).Error; err != nil {
		return false, err
	}
	if n != 1 {
		r.log.Warn("Answer match not unique",
			"question_id", upd.QuestionID,
			"attempt_id", upd.AttemptID,
			"user_id", upd.UserID,
			"matches", n,
		)
		return false, nil
	}

	values := map[string]any{
		"transcript": upd.Transcript,
		"score":      upd.Score,
		"is_correct": upd.IsCorrect,
	}
	if upd.TestID != "" {
		values["mock_id"] = upd.TestID
	}
	res := match().
		Where("transcript IS NULL AND score IS NULL").
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func freeTierClause(userCol string) string {
	return "EXISTS (SELECT 1 FROM subscriptions s WHERE s.user_id = " + userCol + " AND s.payment_required = ?)"
}
