package app

import (
	"context"
	"fmt"

	"github.com/yungbote/mockgrader/internal/modules/grading"
	"github.com/yungbote/mockgrader/internal/platform/clerk"
	"github.com/yungbote/mockgrader/internal/platform/envutil"
	"github.com/yungbote/mockgrader/internal/platform/gcp"
	"github.com/yungbote/mockgrader/internal/platform/gemini"
	"github.com/yungbote/mockgrader/internal/platform/localmedia"
	"github.com/yungbote/mockgrader/internal/platform/logger"
	"github.com/yungbote/mockgrader/internal/platform/openai"
	"github.com/yungbote/mockgrader/internal/platform/postmark"
	"github.com/yungbote/mockgrader/internal/platform/sendgrid"
)

// Clients holds the provider adapters one job needs. Fields a job does not
// use stay nil.
type Clients struct {
	Blobs       grading.BlobStore
	Transcriber grading.Transcriber
	Grader      grading.Grader
	Identity    grading.IdentityService
	Mailer      grading.Mailer

	closers []func() error
}

var (
	newOpenAI    = openai.NewClient
	newSpeech    = gcp.NewSpeech
	newGemini    = gemini.NewClient
	newClerk     = clerk.New
	newSendGrid  = sendgrid.New
	newPostmark  = postmark.New
	resolveBlobs = resolveBucketService
)

func wireScoringClients(ctx context.Context, log *logger.Logger, cfg Config, c *Clients) error {
	bucket, err := resolveBlobs(log, cfg.Storage)
	if err != nil {
		return err
	}
	c.Blobs = bucket
	c.closers = append(c.closers, bucket.Close)

	var oa openai.Client
	if cfg.Transcriber == TranscriberOpenAI || cfg.Grader == GraderOpenAI {
		oa, err = newOpenAI(log)
		if err != nil {
			return fmt.Errorf("init openai client: %w", err)
		}
	}

	switch cfg.Transcriber {
	case TranscriberGCPSpeech:
		sp, err := newSpeech(log, gcp.SpeechConfig{
			Model:             envutil.String("GCP_SPEECH_MODEL", "latest_long"),
			UseEnhanced:       envutil.Bool("GCP_SPEECH_ENHANCED", true),
			SampleRateHertz:   16000,
			AudioChannelCount: 1,
		})
		if err != nil {
			return fmt.Errorf("init speech client: %w", err)
		}
		c.closers = append(c.closers, sp.Close)
		tools := localmedia.New(log)
		if err := tools.AssertReady(ctx); err != nil {
			return fmt.Errorf("gcp_speech transcription: %w", err)
		}
		c.Transcriber = localmedia.NewNormalizingTranscriber(log, tools, sp, localmedia.AudioConvertOptions{
			SampleRateHz: 16000,
			Channels:     1,
			Format:       "wav",
		})
	default:
		c.Transcriber = oa
	}

	switch cfg.Grader {
	case GraderGemini:
		gm, err := newGemini(ctx, log, gemini.ConfigFromEnv())
		if err != nil {
			return fmt.Errorf("init gemini client: %w", err)
		}
		c.closers = append(c.closers, gm.Close)
		c.Grader = llmGrader{llm: gm}
	default:
		c.Grader = llmGrader{llm: oa}
	}
	return nil
}

func wireNotificationClients(log *logger.Logger, cfg Config, c *Clients) error {
	identity, err := newClerk(log, clerk.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("init clerk client: %w", err)
	}
	c.Identity = identity

	switch cfg.Email {
	case EmailPostmark:
		pm, err := newPostmark(log, postmark.ConfigFromEnv())
		if err != nil {
			return fmt.Errorf("init postmark client: %w", err)
		}
		c.Mailer = pm
	default:
		sg, err := newSendGrid(log, sendgrid.ConfigFromEnv())
		if err != nil {
			return fmt.Errorf("init sendgrid client: %w", err)
		}
		c.Mailer = sg
	}
	return nil
}

func (c *Clients) Close(log *logger.Logger) {
	if c == nil {
		return
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && log != nil {
			log.Warn("client close failed", "error", err)
		}
	}
	c.closers = nil
}
