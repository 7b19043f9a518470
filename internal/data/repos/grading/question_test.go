package grading

import (
	"context"
	"testing"

	"github.com/yungbote/mockgrader/internal/data/repos/testutil"
)

func TestQuestionRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewQuestionRepo(db, testutil.Logger(t))

	m1 := testutil.SeedTest(t, ctx, tx, "Hindi")
	m2 := testutil.SeedTest(t, ctx, tx, "Hindi")
	testutil.SeedQuestion(t, ctx, tx, m1.ID, 2, "Hindi")
	testutil.SeedQuestion(t, ctx, tx, m1.ID, 1, "Hindi")
	testutil.SeedQuestion(t, ctx, tx, m2.ID, 1, "Hindi")

	n, err := repo.CountByTestID(ctx, tx, m1.ID)
	if err != nil || n != 2 {
		t.Fatalf("CountByTestID: want=2 got=%d err=%v", n, err)
	}
	if n, err := repo.CountByTestID(ctx, tx, ""); err != nil || n != 0 {
		t.Fatalf("CountByTestID(empty): want=0 got=%d err=%v", n, err)
	}
	if n, err := repo.CountByTestID(ctx, tx, m2.ID); err != nil || n != 1 {
		t.Fatalf("CountByTestID(other): want=1 got=%d err=%v", n, err)
	}
}
