package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/yungbote/mockgrader/internal/observability"
	"github.com/yungbote/mockgrader/internal/platform/envutil"
	"github.com/yungbote/mockgrader/internal/platform/logger"
)

type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:  envutil.First("GEMINI_API_KEY", "GOOGLE_API_KEY"),
		Model:   envutil.String("GEMINI_MODEL", "gemini-1.5-flash"),
		Timeout: envutil.Seconds("GEMINI_TIMEOUT_SECONDS", 120),
	}
}

type Client struct {
	log     *logger.Logger
	client  *genai.Client
	model   string
	temp    float32
	timeout time.Duration
}

func NewClient(ctx context.Context, log *logger.Logger, cfg Config) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	c, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	return &Client{
		log:     log.With("service", "GeminiClient"),
		client:  c,
		model:   cfg.Model,
		temp:    cfg.Temperature,
		timeout: cfg.Timeout,
	}, nil
}

func (c *Client) GenerateText(ctx context.Context, system string, user string) (string, error) {
	if c == nil || c.client == nil {
		return "", errors.New("gemini client not initialized")
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(c.temp)
	if strings.TrimSpace(system) != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	start := time.Now()
	resp, err := model.GenerateContent(ctx, genai.Text(user))
	observability.Current().ObserveProviderCall("gemini", "generate", observability.ProviderStatus(err), time.Since(start))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := responseText(resp)
	if strings.TrimSpace(text) == "" {
		return "", errors.New("gemini returned no text")
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
