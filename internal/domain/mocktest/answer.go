package mocktest

import "time"

const (
	MaxAnswerScore   = 5
	CorrectThreshold = 3
	// PassPercentage must be strictly exceeded to pass.
	PassPercentage = 50
)

type Answer struct {
	ID             string     `gorm:"column:id;primaryKey" json:"id" validate:"required"`
	MockQuestionID string     `gorm:"column:mock_question_id;not null;index" json:"mock_question_id" validate:"required"`
	UserMockID     string     `gorm:"column:user_mock_id;not null;index" json:"user_mock_id" validate:"required"`
	UserID         string     `gorm:"column:user_id;not null;index" json:"user_id" validate:"required"`
	AudioFileURL   string     `gorm:"column:audio_file_url;type:text;not null" json:"audio_file_url" validate:"required"`
	Transcript     *string    `gorm:"column:transcript;type:text" json:"transcript,omitempty"`
	Score          *int       `gorm:"column:score" json:"score,omitempty" validate:"omitempty,gte=0,lte=5"`
	MaxScore       int        `gorm:"column:max_score;default:5" json:"max_score"`
	IsCorrect      *bool      `gorm:"column:is_correct" json:"is_correct,omitempty"`
	ExpiresOn      *time.Time `gorm:"column:expires_on" json:"expires_on,omitempty"`
	CreatedOn      time.Time  `gorm:"column:created_on;autoCreateTime" json:"created_on"`
	MockID         *string    `gorm:"column:mock_id;index" json:"mock_id,omitempty"`

	Question *Question `gorm:"foreignKey:MockQuestionID;references:ID" json:"question,omitempty" validate:"-"`
}

func (Answer) TableName() string { return "mock_answers" }

func (a *Answer) Validate() error { return validate.Struct(a) }

func (a *Answer) IsScored() bool { return a != nil && a.Score != nil }
