package mocktest

import "time"

// Attempt is one user's sitting of a Test. Attempts == 0 and a nil TotalScore
// mean the attempt has not been finalized yet.
type Attempt struct {
	ID              string    `gorm:"column:id;primaryKey" json:"id" validate:"required"`
	MockID          string    `gorm:"column:mock_id;not null;index" json:"mock_id" validate:"required"`
	UserID          string    `gorm:"column:user_id;not null;index" json:"user_id" validate:"required"`
	AttemptsAllowed int       `gorm:"column:attempts_allowed;default:1" json:"attempts_allowed"`
	Attempts        int       `gorm:"column:attempts;default:0" json:"attempts" validate:"gte=0"`
	TotalScore      *int      `gorm:"column:total_score" json:"total_score,omitempty"`
	Passed          *bool     `gorm:"column:passed" json:"passed,omitempty"`
	Expired         bool      `gorm:"column:expired;default:false" json:"expired"`
	CreatedOn       time.Time `gorm:"column:created_on;autoCreateTime" json:"created_on"`
}

func (Attempt) TableName() string { return "user_mocks" }

func (a *Attempt) Validate() error { return validate.Struct(a) }

func (a *Attempt) IsFinalized() bool {
	return a != nil && (a.Attempts != 0 || a.TotalScore != nil)
}

// Subscription gates automated grading: only users with PaymentRequired=false qualify.
type Subscription struct {
	UserID          string `gorm:"column:user_id;primaryKey" json:"user_id"`
	PaymentRequired bool   `gorm:"column:payment_required;not null" json:"payment_required"`
}

func (Subscription) TableName() string { return "subscriptions" }
