package grading

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/mockgrader/internal/data/db"
	"github.com/yungbote/mockgrader/internal/data/repos"
	"github.com/yungbote/mockgrader/internal/data/repos/testutil"
)

type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string]string
	deleted []string
	failDel bool
}

func (f *fakeBlobs) Download(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (f *fakeBlobs) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDel {
		return errors.New("delete refused")
	}
	f.deleted = append(f.deleted, key)
	delete(f.objects, key)
	return nil
}

// fakeTranscriber echoes the downloaded file's contents back as the transcript.
type fakeTranscriber struct {
	langs []string
	paths []string
	fail  map[string]bool
}

func (f *fakeTranscriber) Transcribe(_ context.Context, path, lang string) (string, error) {
	f.langs = append(f.langs, lang)
	f.paths = append(f.paths, path)
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if f.fail[string(b)] {
		return "", errors.New("transcription failed")
	}
	return string(b), nil
}

// fakeGrader replies with replies[candidate], or "0".
type fakeGrader struct {
	replies map[string]string
	fail    map[string]bool
}

func (f *fakeGrader) Grade(_ context.Context, reference, candidate, language string) (string, error) {
	if f.fail[candidate] {
		return "", errors.New("grader unavailable")
	}
	if r, ok := f.replies[candidate]; ok {
		return r, nil
	}
	return "0", nil
}

type fakeIdentity struct {
	emails map[string]string
}

func (f *fakeIdentity) LookupEmail(_ context.Context, userID string) (string, error) {
	e, ok := f.emails[userID]
	if !ok {
		return "", errors.New("user not found")
	}
	return e, nil
}

type sentMail struct {
	to, subject, html string
}

type fakeMailer struct {
	sent []sentMail
	fail bool
}

func (f *fakeMailer) Send(_ context.Context, to, subject, html string) error {
	if f.fail {
		return errors.New("smtp down")
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, html: html})
	return nil
}

type harness struct {
	db    *gorm.DB
	repos repos.Set
	deps  UsecasesDeps
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(gdb, log)
	return &harness{
		db:    gdb,
		repos: set,
		deps: UsecasesDeps{
			Log:       log,
			Tx:        db.NewGormTxRunner(gdb),
			Answers:   set.Answers,
			Attempts:  set.Attempts,
			Questions: set.Questions,
			Scoring: ScoringOptions{
				StoragePrefix: "answers",
				DownloadsDir:  t.TempDir(),
			},
		},
	}
}
