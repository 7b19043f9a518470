package domain

import "github.com/yungbote/mockgrader/internal/domain/mocktest"

type (
	Test          = mocktest.Test
	Question      = mocktest.Question
	Attempt       = mocktest.Attempt
	Answer        = mocktest.Answer
	Subscription  = mocktest.Subscription
	PendingAnswer = mocktest.PendingAnswer
)

const (
	MaxAnswerScore   = mocktest.MaxAnswerScore
	CorrectThreshold = mocktest.CorrectThreshold
	PassPercentage   = mocktest.PassPercentage
)

var NewPendingAnswer = mocktest.NewPendingAnswer

// Models lists every table this service maps, in dependency order.
func Models() []any {
	return []any{
		&Test{},
		&Question{},
		&Subscription{},
		&Attempt{},
		&Answer{},
	}
}
