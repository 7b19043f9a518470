package testutil

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/mockgrader/internal/domain"
	"github.com/yungbote/mockgrader/internal/pkg/pointers"
)

func SeedTest(tb testing.TB, ctx context.Context, tx *gorm.DB, language string) *types.Test {
	tb.Helper()
	m := &types.Test{
		ID:           ID(tb, "mock"),
		Name:         "Court interpreter mock",
		Description:  "mock test",
		TimeDuration: 30,
		NoOfQA:       4,
		Language:     language,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed test: %v", err)
	}
	return m
}

func SeedQuestion(tb testing.TB, ctx context.Context, tx *gorm.DB, testID string, order int, answerLanguage string) *types.Question {
	tb.Helper()
	q := &types.Question{
		ID:             ID(tb, "q"),
		MockID:         testID,
		AudioFileURL:   "https://cdn.example.com/questions/q.mp3",
		Order:          order,
		Transcript:     "The hearing is adjourned until Monday.",
		Language:       "English",
		AnswerLanguage: answerLanguage,
	}
	if err := tx.WithContext(ctx).Create(q).Error; err != nil {
		tb.Fatalf("seed question: %v", err)
	}
	return q
}

func SeedSubscription(tb testing.TB, ctx context.Context, tx *gorm.DB, userID string, paymentRequired bool) *types.Subscription {
	tb.Helper()
	s := &types.Subscription{UserID: userID, PaymentRequired: paymentRequired}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed subscription: %v", err)
	}
	return s
}

func SeedAttempt(tb testing.TB, ctx context.Context, tx *gorm.DB, testID, userID string) *types.Attempt {
	tb.Helper()
	a := &types.Attempt{
		ID:              ID(tb, "um"),
		MockID:          testID,
		UserID:          userID,
		AttemptsAllowed: 1,
		CreatedOn:       time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed attempt: %v", err)
	}
	return a
}

func SeedFinalizedAttempt(tb testing.TB, ctx context.Context, tx *gorm.DB, testID, userID string, total int, passed bool) *types.Attempt {
	tb.Helper()
	a := &types.Attempt{
		ID:              ID(tb, "um"),
		MockID:          testID,
		UserID:          userID,
		AttemptsAllowed: 1,
		Attempts:        1,
		TotalScore:      pointers.Int(total),
		Passed:          pointers.Bool(passed),
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed finalized attempt: %v", err)
	}
	return a
}

// SeedAnswer creates an answer; a nil score leaves it ungraded.
func SeedAnswer(tb testing.TB, ctx context.Context, tx *gorm.DB, q *types.Question, attempt *types.Attempt, score *int) *types.Answer {
	tb.Helper()
	a := &types.Answer{
		ID:             ID(tb, "ans"),
		MockQuestionID: q.ID,
		UserMockID:     attempt.ID,
		UserID:         attempt.UserID,
		AudioFileURL:   "https://xyz.supabase.co/storage/v1/object/public/answers/" + ID(tb, "rec") + ".webm",
		MaxScore:       5,
		CreatedOn:      time.Now().UTC(),
	}
	if score != nil {
		a.Score = score
		a.Transcript = pointers.String("transcribed")
		a.IsCorrect = pointers.Bool(*score >= types.CorrectThreshold)
		a.MockID = pointers.String(q.MockID)
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed answer: %v", err)
	}
	return a
}
