package mocktest

import (
	"strings"
	"testing"
)

func validPair() (Answer, Question) {
	q := Question{ID: "q1", MockID: "m1", Transcript: "namaste", AnswerLanguage: "Hindi"}
	a := Answer{
		ID:             "a1",
		MockQuestionID: "q1",
		UserMockID:     "um1",
		UserID:         "user_1",
		AudioFileURL:   "https://cdn.example.com/answers/a1.webm",
	}
	return a, q
}

func TestNewPendingAnswer(t *testing.T) {
	a, q := validPair()
	p, err := NewPendingAnswer(a, q)
	if err != nil {
		t.Fatalf("NewPendingAnswer: %v", err)
	}
	if p.TestID() != "m1" || p.AttemptID() != "um1" || p.Reference() != "namaste" {
		t.Fatalf("accessors: got test=%q attempt=%q ref=%q", p.TestID(), p.AttemptID(), p.Reference())
	}
}

func TestNewPendingAnswerRejectsInvalid(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(a *Answer, q *Question)
		want   string
	}{
		{"missing audio", func(a *Answer, q *Question) { a.AudioFileURL = "" }, "AudioFileURL"},
		{"missing attempt", func(a *Answer, q *Question) { a.UserMockID = "" }, "UserMockID"},
		{"missing question id", func(a *Answer, q *Question) { q.ID = "" }, "question id required"},
		{"missing test id", func(a *Answer, q *Question) { q.MockID = "" }, "MockID"},
		{"mismatched pair", func(a *Answer, q *Question) { a.MockQuestionID = "q2" }, "references question"},
		{"score out of range", func(a *Answer, q *Question) { s := 9; a.Score = &s }, "Score"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, q := validPair()
			tc.mutate(&a, &q)
			_, err := NewPendingAnswer(a, q)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error: want substring %q got=%q", tc.want, err.Error())
			}
		})
	}
}

func TestAttemptValidateAndFinalized(t *testing.T) {
	a := &Attempt{ID: "um1", MockID: "m1", UserID: "u1"}
	if err := a.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if a.IsFinalized() {
		t.Fatalf("fresh attempt reported finalized")
	}
	score := 60
	a.TotalScore = &score
	if !a.IsFinalized() {
		t.Fatalf("attempt with total_score not reported finalized")
	}
	if err := (&Attempt{ID: "x"}).Validate(); err == nil {
		t.Fatalf("expected validation error for missing mock/user ids")
	}
}
