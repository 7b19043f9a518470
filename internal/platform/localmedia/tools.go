package localmedia

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/yungbote/mockgrader/internal/pkg/ctxutil"
	"github.com/yungbote/mockgrader/internal/platform/logger"
)

// Tools wraps the ffmpeg binary. It must be on PATH in the job runtime.
type Tools interface {
	AssertReady(ctx context.Context) error
	ConvertAudio(ctx context.Context, inPath string, outPath string, opts AudioConvertOptions) (string, error)
}

type AudioConvertOptions struct {
	SampleRateHz int
	Channels     int
	Format       string // "wav" or "flac"
}

type tools struct {
	log            *logger.Logger
	ffmpegPath     string
	defaultTimeout time.Duration
}

func New(log *logger.Logger) Tools {
	return &tools{
		log:            log.With("service", "MediaTools"),
		ffmpegPath:     "ffmpeg",
		defaultTimeout: 5 * time.Minute,
	}
}

func (m *tools) AssertReady(ctx context.Context) error {
	if _, err := exec.LookPath(m.ffmpegPath); err != nil {
		return fmt.Errorf("missing required binary %q in PATH: %w", m.ffmpegPath, err)
	}
	return nil
}

// audioArgs builds the ffmpeg argument list for a resample to mono PCM.
func audioArgs(inPath, outPath string, opts AudioConvertOptions) ([]string, error) {
	sr := opts.SampleRateHz
	if sr <= 0 {
		sr = 16000
	}
	ch := opts.Channels
	if ch <= 0 {
		ch = 1
	}
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "wav"
	}
	if format != "wav" && format != "flac" {
		return nil, fmt.Errorf("unsupported audio format: %s", format)
	}
	return ffmpeg.Input(inPath).
		Output(outPath, ffmpeg.KwArgs{"ar": sr, "ac": ch, "f": format}).
		OverWriteOutput().
		GetArgs(), nil
}

func (m *tools) ConvertAudio(ctx context.Context, inPath string, outPath string, opts AudioConvertOptions) (string, error) {
	ctx = ctxutil.Default(ctx)
	if inPath == "" {
		return "", fmt.Errorf("inPath required")
	}
	if outPath == "" {
		return "", fmt.Errorf("outPath required")
	}
	args, err := audioArgs(inPath, outPath, opts)
	if err != nil {
		return "", err
	}
	if err := m.AssertReady(ctx); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("mkdir outPath dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.defaultTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, m.ffmpegPath, args...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg convert audio failed: %w; out=%s", err, tail(string(out), 2000))
	}
	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("audio output missing at %s", outPath)
	}
	return outPath, nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
