package grading

import (
	"context"
	"io"
)

// BlobStore reads and removes answer recordings by object key.
type BlobStore interface {
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Transcriber turns a local audio file into text. languageCode is ISO-639-1.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, languageCode string) (string, error)
}

// Grader returns the model's raw reply; callers parse the score out of it.
type Grader interface {
	Grade(ctx context.Context, reference, candidate, language string) (string, error)
}

type IdentityService interface {
	LookupEmail(ctx context.Context, userID string) (string, error)
}

type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}
