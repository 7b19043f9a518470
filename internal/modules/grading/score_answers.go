package grading

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/mockgrader/internal/data/repos"
	types "github.com/yungbote/mockgrader/internal/domain"
	"github.com/yungbote/mockgrader/internal/pkg/dbctx"
)

var tracer = otel.Tracer("github.com/yungbote/mockgrader/internal/modules/grading")

type ScoreAnswersInput struct {
	Limit int
	// DryRun lists the batch without downloading, calling providers or writing.
	DryRun bool
}

type ScoreAnswersStats struct {
	Seen              int
	Scored            int
	SkippedDownload   int
	SkippedTranscribe int
	SkippedGrade      int
	SkippedPersist    int
	DeletedAudio      int
}

func (s ScoreAnswersStats) Skipped() int {
	return s.SkippedDownload + s.SkippedTranscribe + s.SkippedGrade + s.SkippedPersist
}

type rowStage string

const (
	stageDownload   rowStage = "download"
	stageTranscribe rowStage = "transcribe"
	stageGrade      rowStage = "grade"
	stagePersist    rowStage = "persist"
)

type rowError struct {
	stage rowStage
	err   error
}

func (e *rowError) Error() string { return fmt.Sprintf("%s: %v", e.stage, e.err) }
func (e *rowError) Unwrap() error { return e.err }

func stageErr(stage rowStage, err error) error { return &rowError{stage: stage, err: err} }

// ScoreAnswers transcribes and grades every pending answer once, in query order.
// A failing row is logged and left pending; the batch always continues. The
// returned error is non-nil only when ctx ended before the batch did.
func (u Usecases) ScoreAnswers(ctx context.Context, in ScoreAnswersInput) (ScoreAnswersStats, error) {
	var stats ScoreAnswersStats
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	if u.deps.Answers == nil || u.deps.Tx == nil {
		return stats, fmt.Errorf("score answers: missing repo deps")
	}
	if !in.DryRun && (u.deps.Blobs == nil || u.deps.Transcriber == nil || u.deps.Grader == nil) {
		return stats, fmt.Errorf("score answers: missing provider deps")
	}
	if !in.DryRun {
		if err := os.MkdirAll(u.deps.Scoring.DownloadsDir, 0o755); err != nil {
			return stats, fmt.Errorf("create downloads dir: %w", err)
		}
	}

	pending := u.PendingAnswers(ctx, in.Limit)
	u.deps.Log.Info("Pending answers loaded", "count", len(pending), "dry_run", in.DryRun)

	for i, p := range pending {
		if err := ctx.Err(); err != nil {
			u.deps.Log.Warn("Scoring interrupted", "row", i, "remaining", len(pending)-i)
			return stats, err
		}
		stats.Seen++

		rowLog := u.deps.Log.With(
			"row", i,
			"answer_id", p.AnswerID(),
			"attempt_id", p.AttemptID(),
			"question_id", p.QuestionID(),
			"user_id", p.UserID(),
		)
		if in.DryRun {
			rowLog.Info("Would score answer", "audio_key", AudioObjectKey(u.deps.Scoring.StoragePrefix, p.AudioURL()))
			continue
		}

		score, deleted, err := u.scoreOne(ctx, p)
		if err != nil {
			var re *rowError
			stage := stagePersist
			if errors.As(err, &re) {
				stage = re.stage
			}
			switch stage {
			case stageDownload:
				stats.SkippedDownload++
			case stageTranscribe:
				stats.SkippedTranscribe++
			case stageGrade:
				stats.SkippedGrade++
			default:
				stats.SkippedPersist++
			}
			rowLog.Warn("Answer skipped", "stage", string(stage), "error", err)
			continue
		}
		stats.Scored++
		if deleted {
			stats.DeletedAudio++
		}
		rowLog.Info("Answer scored", "score", score, "is_correct", IsCorrect(score))
	}

	u.deps.Log.Info("Scoring finished",
		"seen", stats.Seen,
		"scored", stats.Scored,
		"skipped", stats.Skipped(),
		"deleted_audio", stats.DeletedAudio,
	)
	return stats, nil
}

func (u Usecases) scoreOne(ctx context.Context, p types.PendingAnswer) (score int, deleted bool, err error) {
	ctx, span := tracer.Start(ctx, "grading.score_answer")
	defer span.End()
	span.SetAttributes(
		attribute.String("answer.id", p.AnswerID()),
		attribute.String("attempt.id", p.AttemptID()),
		attribute.String("answer.language", p.AnswerLanguage()),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	key := AudioObjectKey(u.deps.Scoring.StoragePrefix, p.AudioURL())
	if key == "" {
		return 0, false, stageErr(stageDownload, fmt.Errorf("no file name in audio url %q", p.AudioURL()))
	}
	path, err := u.download(ctx, key)
	if err != nil {
		return 0, false, stageErr(stageDownload, err)
	}
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			u.deps.Log.Warn("Scratch file not removed", "path", path, "error", rmErr)
		}
	}()

	transcript, err := u.deps.Transcriber.Transcribe(ctx, path, LanguageCode(p.AnswerLanguage()))
	if err != nil {
		return 0, false, stageErr(stageTranscribe, err)
	}
	transcript = strings.TrimSpace(transcript)

	reply, err := u.deps.Grader.Grade(ctx, p.Reference(), transcript, p.AnswerLanguage())
	if err != nil {
		return 0, false, stageErr(stageGrade, err)
	}
	score = ResolveScore(reply)
	span.SetAttributes(attribute.Int("answer.score", score))

	err = u.deps.Tx.InTx(ctx, func(dbc dbctx.Context) error {
		ok, err := u.deps.Answers.ApplyGrade(dbc.Ctx, dbc.Tx, repos.GradeUpdate{
			QuestionID: p.QuestionID(),
			AttemptID:  p.AttemptID(),
			UserID:     p.UserID(),
			TestID:     p.TestID(),
			Transcript: transcript,
			Score:      score,
			IsCorrect:  IsCorrect(score),
		})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("answer no longer pending or not unique")
		}
		return nil
	})
	if err != nil {
		return 0, false, stageErr(stagePersist, err)
	}

	if u.deps.Scoring.DeleteAudio {
		if delErr := u.deps.Blobs.Delete(ctx, key); delErr != nil {
			u.deps.Log.Warn("Audio not deleted", "answer_id", p.AnswerID(), "key", key, "error", delErr)
		} else {
			deleted = true
		}
	}
	return score, deleted, nil
}

// download copies the object into a uniquely named scratch file and returns its path.
func (u Usecases) download(ctx context.Context, key string) (string, error) {
	rc, err := u.deps.Blobs.Download(ctx, key)
	if err != nil {
		return "", fmt.Errorf("download %q: %w", key, err)
	}
	defer rc.Close()

	prefix, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("scratch name: %w", err)
	}
	path := filepath.Join(u.deps.Scoring.DownloadsDir, prefix+"_"+filepath.Base(key))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create scratch file: %w", err)
	}
	if _, err := io.Copy(f, rc); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close scratch file: %w", err)
	}
	return path, nil
}
