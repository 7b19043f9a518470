package localmedia

import (
	"context"
	"os"
	"strings"

	"github.com/yungbote/mockgrader/internal/platform/logger"
)

type transcriber interface {
	Transcribe(ctx context.Context, audioPath, languageCode string) (string, error)
}

// NormalizingTranscriber resamples each recording to 16 kHz mono WAV before
// handing it to the wrapped transcriber. Browser uploads arrive as webm/ogg
// at whatever rate the device recorded.
type NormalizingTranscriber struct {
	log   *logger.Logger
	tools Tools
	next  transcriber
	opts  AudioConvertOptions
}

func NewNormalizingTranscriber(log *logger.Logger, tools Tools, next transcriber, opts AudioConvertOptions) *NormalizingTranscriber {
	return &NormalizingTranscriber{
		log:   log.With("service", "NormalizingTranscriber"),
		tools: tools,
		next:  next,
		opts:  opts,
	}
}

func (n *NormalizingTranscriber) Transcribe(ctx context.Context, audioPath, languageCode string) (string, error) {
	ext := ".wav"
	if strings.EqualFold(n.opts.Format, "flac") {
		ext = ".flac"
	}
	outPath := audioPath + ".norm" + ext
	converted, err := n.tools.ConvertAudio(ctx, audioPath, outPath, n.opts)
	if err != nil {
		return "", err
	}
	defer func() {
		if rmErr := os.Remove(converted); rmErr != nil && !os.IsNotExist(rmErr) {
			n.log.Warn("remove normalized audio failed", "path", converted, "error", rmErr)
		}
	}()
	return n.next.Transcribe(ctx, converted, languageCode)
}
