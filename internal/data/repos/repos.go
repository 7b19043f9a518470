package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/mockgrader/internal/data/repos/grading"
	"github.com/yungbote/mockgrader/internal/platform/logger"
)

type AnswerRepo = grading.AnswerRepo
type AttemptRepo = grading.AttemptRepo
type QuestionRepo = grading.QuestionRepo

type GradeUpdate = grading.GradeUpdate
type FinalizeUpdate = grading.FinalizeUpdate
type UngradedFilter = grading.UngradedFilter

var NewAnswerRepo = grading.NewAnswerRepo
var NewAttemptRepo = grading.NewAttemptRepo
var NewQuestionRepo = grading.NewQuestionRepo

type Set struct {
	Answers   AnswerRepo
	Attempts  AttemptRepo
	Questions QuestionRepo
}

func NewSet(db *gorm.DB, log *logger.Logger) Set {
	return Set{
		Answers:   grading.NewAnswerRepo(db, log),
		Attempts:  grading.NewAttemptRepo(db, log),
		Questions: grading.NewQuestionRepo(db, log),
	}
}
