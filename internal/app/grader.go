package app

import (
	"context"

	"github.com/yungbote/mockgrader/internal/modules/grading"
)

type textGenerator interface {
	GenerateText(ctx context.Context, system, user string) (string, error)
}

// llmGrader adapts any chat model to the grading port.
type llmGrader struct {
	llm textGenerator
}

func (g llmGrader) Grade(ctx context.Context, reference, candidate, language string) (string, error) {
	system, user := grading.GradingPrompt(reference, candidate, language)
	return g.llm.GenerateText(ctx, system, user)
}
