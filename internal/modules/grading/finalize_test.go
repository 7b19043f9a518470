package grading

import (
	"context"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/mockgrader/internal/data/repos"
	"github.com/yungbote/mockgrader/internal/data/repos/testutil"
	types "github.com/yungbote/mockgrader/internal/domain"
	"github.com/yungbote/mockgrader/internal/pkg/pointers"
)

type finalizeFixture struct {
	test        *types.Test
	strong      *types.Attempt // 4 of 4 answered, 17/20
	partial     *types.Attempt // 2 of 4 answered, 10 points
	paid        *types.Attempt
	unscored    *types.Attempt
	done        *types.Attempt
	strongEmail string
}

func seedFinalize(t *testing.T, h *harness) finalizeFixture {
	t.Helper()
	ctx := context.Background()
	mock := testutil.SeedTest(t, ctx, h.db, "English")
	var qs []*types.Question
	for i := 1; i <= 4; i++ {
		qs = append(qs, testutil.SeedQuestion(t, ctx, h.db, mock.ID, i, "English"))
	}

	attempt := func(paymentRequired bool, scores ...*int) *types.Attempt {
		a := testutil.SeedAttempt(t, ctx, h.db, mock.ID, testutil.ID(t, "user"))
		testutil.SeedSubscription(t, ctx, h.db, a.UserID, paymentRequired)
		for i, s := range scores {
			testutil.SeedAnswer(t, ctx, h.db, qs[i], a, s)
		}
		return a
	}

	fx := finalizeFixture{test: mock}
	fx.strong = attempt(false, pointers.Int(5), pointers.Int(5), pointers.Int(4), pointers.Int(3))
	fx.partial = attempt(false, pointers.Int(5), pointers.Int(5))
	fx.paid = attempt(true, pointers.Int(1), pointers.Int(1), pointers.Int(1), pointers.Int(1))
	fx.unscored = attempt(false, pointers.Int(5), nil)
	fx.done = testutil.SeedFinalizedAttempt(t, ctx, h.db, mock.ID, testutil.ID(t, "user"), 90, true)
	testutil.SeedSubscription(t, ctx, h.db, fx.done.UserID, false)
	testutil.SeedAnswer(t, ctx, h.db, qs[0], fx.done, pointers.Int(5))
	fx.strongEmail = "strong@example.com"
	return fx
}

func loadAttempt(t *testing.T, h *harness, id string) types.Attempt {
	t.Helper()
	var a types.Attempt
	if err := h.db.Where("id = ?", id).Take(&a).Error; err != nil {
		t.Fatalf("load attempt %s: %v", id, err)
	}
	return a
}

func assertFinalized(t *testing.T, h *harness, id string, pct int, passed bool) {
	t.Helper()
	a := loadAttempt(t, h, id)
	if a.Attempts != 1 {
		t.Fatalf("attempt %s attempts: want=1 got=%d", id, a.Attempts)
	}
	if a.TotalScore == nil || *a.TotalScore != pct {
		t.Fatalf("attempt %s total_score: want=%d got=%v", id, pct, a.TotalScore)
	}
	if a.Passed == nil || *a.Passed != passed {
		t.Fatalf("attempt %s passed: want=%v got=%v", id, passed, a.Passed)
	}
}

func assertUntouched(t *testing.T, h *harness, id string) {
	t.Helper()
	a := loadAttempt(t, h, id)
	if a.Attempts != 0 || a.TotalScore != nil || a.Passed != nil {
		t.Fatalf("attempt %s should be untouched, got attempts=%d total=%v passed=%v", id, a.Attempts, a.TotalScore, a.Passed)
	}
}

func TestFinalizeAttempts(t *testing.T) {
	h := newHarness(t)
	fx := seedFinalize(t, h)
	mailer := &fakeMailer{}
	h.deps.Identity = &fakeIdentity{emails: map[string]string{fx.strong.UserID: fx.strongEmail}}
	h.deps.Mailer = mailer
	h.deps.Email = EmailOptions{ResultsBaseURL: "https://app.example.com/mock-test"}

	stats, err := New(h.deps).FinalizeAttempts(context.Background(), FinalizeInput{})
	if err != nil {
		t.Fatalf("FinalizeAttempts: %v", err)
	}
	if stats.Seen != 2 || stats.Finalized != 2 || stats.Passed != 1 {
		t.Fatalf("stats: got %+v", stats)
	}
	// partial's user has no address on file.
	if stats.Notified != 1 || stats.NotifyFailed != 1 {
		t.Fatalf("notification stats: got %+v", stats)
	}

	assertFinalized(t, h, fx.strong.ID, 85, true)
	// 10 of 20 possible is exactly 50%, which does not pass.
	assertFinalized(t, h, fx.partial.ID, 50, false)
	assertUntouched(t, h, fx.paid.ID)
	assertUntouched(t, h, fx.unscored.ID)
	if done := loadAttempt(t, h, fx.done.ID); done.Attempts != 1 || *done.TotalScore != 90 {
		t.Fatalf("already finalized attempt changed")
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("sent: want=1 got=%d", len(mailer.sent))
	}
	m := mailer.sent[0]
	if m.to != fx.strongEmail {
		t.Fatalf("recipient: want=%s got=%s", fx.strongEmail, m.to)
	}
	if !strings.Contains(m.subject, "Passed") {
		t.Fatalf("subject: got %q", m.subject)
	}
	if !strings.Contains(m.html, "https://app.example.com/mock-test/"+fx.test.ID) {
		t.Fatalf("link to results missing")
	}
}

func TestFinalizeAttemptsIsIdempotent(t *testing.T) {
	h := newHarness(t)
	fx := seedFinalize(t, h)
	mailer := &fakeMailer{}
	h.deps.Identity = &fakeIdentity{emails: map[string]string{fx.strong.UserID: fx.strongEmail}}
	h.deps.Mailer = mailer
	uc := New(h.deps)

	if _, err := uc.FinalizeAttempts(context.Background(), FinalizeInput{}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	stats, err := uc.FinalizeAttempts(context.Background(), FinalizeInput{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if stats.Seen != 0 || stats.Finalized != 0 {
		t.Fatalf("second run stats: got %+v", stats)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("emails: want=1 got=%d", len(mailer.sent))
	}
	assertFinalized(t, h, fx.strong.ID, 85, true)
}

func TestFinalizeAttemptsMailFailureKeepsResult(t *testing.T) {
	h := newHarness(t)
	fx := seedFinalize(t, h)
	h.deps.Identity = &fakeIdentity{emails: map[string]string{fx.strong.UserID: fx.strongEmail}}
	h.deps.Mailer = &fakeMailer{fail: true}

	stats, err := New(h.deps).FinalizeAttempts(context.Background(), FinalizeInput{})
	if err != nil {
		t.Fatalf("FinalizeAttempts: %v", err)
	}
	if stats.Finalized != 2 || stats.NotifyFailed != 2 || stats.Notified != 0 {
		t.Fatalf("stats: got %+v", stats)
	}
	assertFinalized(t, h, fx.strong.ID, 85, true)
}

func TestFinalizeAttemptsWithoutMailer(t *testing.T) {
	h := newHarness(t)
	fx := seedFinalize(t, h)

	stats, err := New(h.deps).FinalizeAttempts(context.Background(), FinalizeInput{})
	if err != nil {
		t.Fatalf("FinalizeAttempts: %v", err)
	}
	if stats.Finalized != 2 || stats.Notified != 0 || stats.NotifyFailed != 0 {
		t.Fatalf("stats: got %+v", stats)
	}
	assertFinalized(t, h, fx.partial.ID, 50, false)
}

func TestFinalizeAttemptsDryRun(t *testing.T) {
	h := newHarness(t)
	fx := seedFinalize(t, h)

	stats, err := New(h.deps).FinalizeAttempts(context.Background(), FinalizeInput{DryRun: true})
	if err != nil {
		t.Fatalf("FinalizeAttempts: %v", err)
	}
	if stats.Seen != 2 || stats.Finalized != 0 {
		t.Fatalf("stats: got %+v", stats)
	}
	assertUntouched(t, h, fx.strong.ID)
}

func TestAggregateAttempts(t *testing.T) {
	h := newHarness(t)
	fx := seedFinalize(t, h)
	mailer := &fakeMailer{}
	h.deps.Identity = &fakeIdentity{emails: map[string]string{fx.strong.UserID: fx.strongEmail}}
	h.deps.Mailer = mailer

	stats, err := New(h.deps).AggregateAttempts(context.Background(), FinalizeInput{})
	if err != nil {
		t.Fatalf("AggregateAttempts: %v", err)
	}
	if stats.Seen != 3 || stats.Finalized != 3 {
		t.Fatalf("stats: got %+v", stats)
	}
	assertFinalized(t, h, fx.strong.ID, 85, true)
	// Measured against the two answers given, not the four questions.
	assertFinalized(t, h, fx.partial.ID, 100, true)
	assertFinalized(t, h, fx.paid.ID, 20, false)
	assertUntouched(t, h, fx.unscored.ID)
	if len(mailer.sent) != 0 {
		t.Fatalf("aggregation must not send email, sent=%d", len(mailer.sent))
	}
}

func TestFinalizeAttemptsZeroQuestions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	mock := testutil.SeedTest(t, ctx, h.db, "English")
	q := testutil.SeedQuestion(t, ctx, h.db, mock.ID, 1, "English")
	a := testutil.SeedAttempt(t, ctx, h.db, mock.ID, testutil.ID(t, "user"))
	testutil.SeedSubscription(t, ctx, h.db, a.UserID, false)
	testutil.SeedAnswer(t, ctx, h.db, q, a, pointers.Int(5))
	// The question is withdrawn after the answer was recorded.
	if err := h.db.Delete(&types.Question{}, "id = ?", q.ID).Error; err != nil {
		t.Fatalf("delete question: %v", err)
	}

	stats, err := New(h.deps).FinalizeAttempts(ctx, FinalizeInput{})
	if err != nil {
		t.Fatalf("FinalizeAttempts: %v", err)
	}
	if stats.ZeroQuestions != 1 || stats.Finalized != 1 {
		t.Fatalf("stats: got %+v", stats)
	}
	assertFinalized(t, h, a.ID, 0, false)
}

// racingAttempts lets a concurrent run finalize every listed attempt before
// this run gets to update it.
type racingAttempts struct {
	repos.AttemptRepo
	db *gorm.DB
}

func (r racingAttempts) ListUngraded(ctx context.Context, tx *gorm.DB, f repos.UngradedFilter) ([]*types.Attempt, error) {
	rows, err := r.AttemptRepo.ListUngraded(ctx, tx, f)
	if err != nil {
		return nil, err
	}
	for _, a := range rows {
		if err := r.db.Model(&types.Attempt{}).Where("id = ?", a.ID).
			Updates(map[string]any{"attempts": 1, "total_score": 55, "passed": true}).Error; err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func TestFinalizeAttemptsLosesRaceQuietly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	mock := testutil.SeedTest(t, ctx, h.db, "English")
	q := testutil.SeedQuestion(t, ctx, h.db, mock.ID, 1, "English")
	a := testutil.SeedAttempt(t, ctx, h.db, mock.ID, testutil.ID(t, "user"))
	testutil.SeedSubscription(t, ctx, h.db, a.UserID, false)
	testutil.SeedAnswer(t, ctx, h.db, q, a, pointers.Int(1))

	mailer := &fakeMailer{}
	h.deps.Attempts = racingAttempts{AttemptRepo: h.repos.Attempts, db: h.db}
	h.deps.Identity = &fakeIdentity{emails: map[string]string{a.UserID: "learner@example.com"}}
	h.deps.Mailer = mailer

	stats, err := New(h.deps).FinalizeAttempts(ctx, FinalizeInput{})
	if err != nil {
		t.Fatalf("FinalizeAttempts: %v", err)
	}
	if stats.Seen != 1 || stats.AlreadyFinalized != 1 || stats.Finalized != 0 || stats.UpdateFailed != 0 {
		t.Fatalf("stats: got %+v", stats)
	}
	// The other run's result stands and nobody is emailed twice.
	assertFinalized(t, h, a.ID, 55, true)
	if len(mailer.sent) != 0 {
		t.Fatalf("lost race must not email, sent=%d", len(mailer.sent))
	}
}
