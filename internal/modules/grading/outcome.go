package grading

import (
	"math"

	types "github.com/yungbote/mockgrader/internal/domain"
)

type Outcome struct {
	ScoreSum      int
	PossibleScore int
	Percentage    int
	Passed        bool
}

// ComputeOutcome turns a score sum into a percentage of 5*count points. count is
// the question count for finalization and the answer count for the aggregation
// variant. A zero count yields 0% rather than dividing by zero.
func ComputeOutcome(scoreSum, count int) Outcome {
	out := Outcome{ScoreSum: scoreSum}
	if count <= 0 {
		return out
	}
	out.PossibleScore = types.MaxAnswerScore * count
	out.Percentage = int(math.RoundToEven(100 * float64(scoreSum) / float64(out.PossibleScore)))
	out.Passed = out.Percentage > types.PassPercentage
	return out
}

// SumScores adds the scores that are set; unscored answers count as nothing.
func SumScores(answers []*types.Answer) int {
	sum := 0
	for _, a := range answers {
		if a.IsScored() {
			sum += *a.Score
		}
	}
	return sum
}
