package mocktest

import "time"

// Test is an assessment template. Authored elsewhere; read-only here.
type Test struct {
	ID           string    `gorm:"column:id;primaryKey" json:"id"`
	Name         string    `gorm:"column:name;not null" json:"name"`
	Description  string    `gorm:"column:description;type:text;not null" json:"description"`
	TimeDuration int       `gorm:"column:time_duration;not null" json:"time_duration"`
	NoOfQA       int       `gorm:"column:no_of_qa;not null" json:"no_of_qa"`
	Language     string    `gorm:"column:language;default:Hindi" json:"language"`
	CreatedOn    time.Time `gorm:"column:created_on;autoCreateTime" json:"created_on"`
}

func (Test) TableName() string { return "mocks" }

type Question struct {
	ID             string    `gorm:"column:id;primaryKey" json:"id"`
	MockID         string    `gorm:"column:mock_id;not null;index" json:"mock_id" validate:"required"`
	Test           *Test     `gorm:"foreignKey:MockID;references:ID" json:"test,omitempty"`
	AudioFileURL   string    `gorm:"column:audio_file_url;type:text;not null" json:"audio_file_url"`
	Order          int       `gorm:"column:order;default:1" json:"order"`
	Transcript     string    `gorm:"column:transcript;type:text;not null" json:"transcript"`
	Language       string    `gorm:"column:language;default:English" json:"language"`
	AnswerLanguage string    `gorm:"column:answer_language;default:English" json:"answer_language"`
	CreatedOn      time.Time `gorm:"column:created_on;autoCreateTime" json:"created_on"`
}

func (Question) TableName() string { return "mock_questions" }
