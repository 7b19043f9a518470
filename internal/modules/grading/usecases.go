package grading

import (
	"os"

	"github.com/yungbote/mockgrader/internal/data/db"
	"github.com/yungbote/mockgrader/internal/data/repos"
	"github.com/yungbote/mockgrader/internal/platform/logger"
)

type UsecasesDeps struct {
	Log *logger.Logger
	Tx  db.TxRunner

	Answers   repos.AnswerRepo
	Attempts  repos.AttemptRepo
	Questions repos.QuestionRepo

	// Scoring side; unused by finalization.
	Blobs       BlobStore
	Transcriber Transcriber
	Grader      Grader

	// Notification side; nil Identity or Mailer disables result emails.
	Identity IdentityService
	Mailer   Mailer

	Scoring ScoringOptions
	Email   EmailOptions
}

type ScoringOptions struct {
	// StoragePrefix is prepended to the audio file name to form the object key.
	StoragePrefix string
	// DownloadsDir holds scratch copies of recordings; defaults to os.TempDir().
	DownloadsDir string
	DeleteAudio  bool
}

type EmailOptions struct {
	ResultsBaseURL string
	BrandName      string
	SupportEmail   string
	LogoURL        string
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Scoring.DownloadsDir == "" {
		deps.Scoring.DownloadsDir = os.TempDir()
	}
	return Usecases{deps: deps}
}

func (u Usecases) WithLog(log *logger.Logger) Usecases {
	if log != nil {
		u.deps.Log = log
	}
	return u
}
