package mocktest

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// PendingAnswer is an ungraded answer together with the question it responds to.
type PendingAnswer struct {
	answer   Answer
	question Question
}

func NewPendingAnswer(a Answer, q Question) (PendingAnswer, error) {
	if err := validate.Struct(&a); err != nil {
		return PendingAnswer{}, fmt.Errorf("answer %q: %w", a.ID, err)
	}
	if q.ID == "" {
		return PendingAnswer{}, fmt.Errorf("answer %q: question id required", a.ID)
	}
	if err := validate.Struct(&q); err != nil {
		return PendingAnswer{}, fmt.Errorf("question %q: %w", q.ID, err)
	}
	if a.MockQuestionID != q.ID {
		return PendingAnswer{}, fmt.Errorf("answer %q references question %q, got %q", a.ID, a.MockQuestionID, q.ID)
	}
	return PendingAnswer{answer: a, question: q}, nil
}

func (p PendingAnswer) AnswerID() string       { return p.answer.ID }
func (p PendingAnswer) QuestionID() string     { return p.question.ID }
func (p PendingAnswer) AttemptID() string      { return p.answer.UserMockID }
func (p PendingAnswer) UserID() string         { return p.answer.UserID }
func (p PendingAnswer) TestID() string         { return p.question.MockID }
func (p PendingAnswer) AudioURL() string       { return p.answer.AudioFileURL }
func (p PendingAnswer) Reference() string      { return p.question.Transcript }
func (p PendingAnswer) AnswerLanguage() string { return p.question.AnswerLanguage }
