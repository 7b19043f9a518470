package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/mockgrader/internal/clients/redis"
	"github.com/yungbote/mockgrader/internal/data/repos"
	"github.com/yungbote/mockgrader/internal/data/repos/testutil"
	types "github.com/yungbote/mockgrader/internal/domain"
	jobrt "github.com/yungbote/mockgrader/internal/jobs/runtime"
	"github.com/yungbote/mockgrader/internal/pkg/pointers"
	"github.com/yungbote/mockgrader/internal/platform/logger"
)

type fakeLocker struct {
	held     bool
	acquired []string
	ttl      time.Duration
}

func (f *fakeLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (*redis.Lease, error) {
	if f.held {
		return nil, redis.ErrLeaseHeld
	}
	f.acquired = append(f.acquired, name)
	f.ttl = ttl
	return nil, nil
}

func (f *fakeLocker) Close() error { return nil }

func testApp(t *testing.T, job string) *App {
	t.Helper()
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	a := &App{
		Log:     log,
		Cfg:     Config{Job: job, LeaseTTL: time.Minute},
		DB:      gdb,
		Repos:   repos.NewSet(gdb, log),
		Clients: &Clients{},
	}
	reg, err := buildRegistry(a.deps())
	if err != nil {
		t.Fatalf("buildRegistry: %v", err)
	}
	a.Registry = reg
	return a
}

func TestBuildRegistryHasAllJobs(t *testing.T) {
	a := testApp(t, "aggregate_attempts")
	got := strings.Join(a.Registry.Types(), ",")
	if got != "aggregate_attempts,finalize_attempts,score_answers" {
		t.Fatalf("types: got %s", got)
	}
}

func TestRunAggregateWithLease(t *testing.T) {
	ctx := context.Background()
	a := testApp(t, "aggregate_attempts")
	locker := &fakeLocker{}
	a.locker = locker

	mock := testutil.SeedTest(t, ctx, a.DB, "Hindi")
	q := testutil.SeedQuestion(t, ctx, a.DB, mock.ID, 1, "Hindi")
	attempt := testutil.SeedAttempt(t, ctx, a.DB, mock.ID, testutil.ID(t, "user"))
	testutil.SeedAnswer(t, ctx, a.DB, q, attempt, pointers.Int(4))

	if err := a.Run(ctx, jobrt.Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(locker.acquired) != 1 || locker.acquired[0] != "aggregate_attempts" || locker.ttl != time.Minute {
		t.Fatalf("lease: got %v ttl=%s", locker.acquired, locker.ttl)
	}

	var got types.Attempt
	if err := a.DB.Where("id = ?", attempt.ID).Take(&got).Error; err != nil {
		t.Fatalf("load attempt: %v", err)
	}
	if got.TotalScore == nil || *got.TotalScore != 80 || got.Passed == nil || !*got.Passed {
		t.Fatalf("attempt: total=%v passed=%v", got.TotalScore, got.Passed)
	}
}

func TestRunSkipsWhenLeaseHeld(t *testing.T) {
	ctx := context.Background()
	a := testApp(t, "aggregate_attempts")
	a.locker = &fakeLocker{held: true}

	mock := testutil.SeedTest(t, ctx, a.DB, "Hindi")
	q := testutil.SeedQuestion(t, ctx, a.DB, mock.ID, 1, "Hindi")
	attempt := testutil.SeedAttempt(t, ctx, a.DB, mock.ID, testutil.ID(t, "user"))
	testutil.SeedAnswer(t, ctx, a.DB, q, attempt, pointers.Int(4))

	err := a.Run(ctx, jobrt.Options{})
	if !errors.Is(err, redis.ErrLeaseHeld) {
		t.Fatalf("want ErrLeaseHeld got %v", err)
	}
	if code := exitCode(logger.Nop(), err); code != 0 {
		t.Fatalf("exit code: want=0 got=%d", code)
	}

	var got types.Attempt
	if err := a.DB.Where("id = ?", attempt.ID).Take(&got).Error; err != nil {
		t.Fatalf("load attempt: %v", err)
	}
	if got.TotalScore != nil {
		t.Fatalf("attempt should be untouched, total=%v", *got.TotalScore)
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"ok", nil, 0},
		{"interrupted", context.Canceled, 0},
		{"wrapped interrupt", errors.Join(errors.New("score"), context.Canceled), 0},
		{"lease held", redis.ErrLeaseHeld, 0},
		{"query failed", errors.New("load pending answers: connection reset"), 1},
	}
	for _, tc := range cases {
		if got := exitCode(logger.Nop(), tc.err); got != tc.want {
			t.Fatalf("%s: want=%d got=%d", tc.name, tc.want, got)
		}
	}
}

func TestRunJobHelpAndConfigErrors(t *testing.T) {
	if code := RunJob("aggregate_attempts", []string{"-h"}); code != 0 {
		t.Fatalf("-h: want=0 got=%d", code)
	}
	if code := RunJob("aggregate_attempts", []string{"-bogus"}); code != 2 {
		t.Fatalf("bad flag: want=2 got=%d", code)
	}

	clearEnv(t)
	t.Setenv("DOTENV_PATH", t.TempDir()+"/missing.env")
	t.Setenv("LOG_MODE", "development")
	if code := RunJob("aggregate_attempts", nil); code != 1 {
		t.Fatalf("missing POSTGRES_URL: want=1 got=%d", code)
	}
}

type fakeLLM struct {
	system, user string
}

func (f *fakeLLM) GenerateText(ctx context.Context, system, user string) (string, error) {
	f.system, f.user = system, user
	return "4", nil
}

func TestLLMGraderBuildsPrompt(t *testing.T) {
	llm := &fakeLLM{}
	got, err := llmGrader{llm: llm}.Grade(context.Background(), " 你好 ", "ni hao", "Mandarin")
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if got != "4" {
		t.Fatalf("reply: want=4 got=%q", got)
	}
	if llm.system == "" || !strings.Contains(llm.user, "你好") || !strings.Contains(llm.user, "ni hao") {
		t.Fatalf("prompt: system=%q user=%q", llm.system, llm.user)
	}
}
