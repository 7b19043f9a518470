package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/mockgrader/internal/observability"
	"github.com/yungbote/mockgrader/internal/pkg/ctxutil"
	"github.com/yungbote/mockgrader/internal/pkg/httpx"
	"github.com/yungbote/mockgrader/internal/platform/envutil"
	"github.com/yungbote/mockgrader/internal/platform/logger"
)

type Client interface {
	GenerateText(ctx context.Context, system string, user string) (string, error)
	Transcribe(ctx context.Context, audioPath, languageCode string) (string, error)
}

type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	TranscribeModel string
	Timeout         time.Duration
	MaxRetries      int
	// Temperature is omitted from requests when nil.
	Temperature *float64
}

// ConfigFromEnv reads the OPENAI_* variables. Temperature defaults to 0 so
// repeated grading of the same answer is as stable as the model allows.
func ConfigFromEnv() Config {
	cfg := Config{
		APIKey:          envutil.String("OPENAI_API_KEY", ""),
		BaseURL:         envutil.String("OPENAI_BASE_URL", "https://api.openai.com"),
		Model:           envutil.String("OPENAI_MODEL", "gpt-4o-mini"),
		TranscribeModel: envutil.String("OPENAI_TRANSCRIBE_MODEL", "whisper-1"),
		Timeout:         envutil.Seconds("OPENAI_TIMEOUT_SECONDS", 180),
		MaxRetries:      envutil.Int("OPENAI_MAX_RETRIES", 4),
	}
	temp := 0.0
	switch raw := strings.ToLower(envutil.String("OPENAI_TEMPERATURE", "")); raw {
	case "off", "none", "false":
		return cfg
	case "":
	default:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			temp = f
		}
	}
	cfg.Temperature = &temp
	return cfg
}

type client struct {
	log             *logger.Logger
	baseURL         string
	apiKey          string
	model           string
	transcribeModel string
	httpClient      *http.Client
	maxRetries      int
	temperature     *float64
}

func NewClient(log *logger.Logger) (Client, error) {
	return NewClientWithConfig(log, ConfigFromEnv())
}

func NewClientWithConfig(log *logger.Logger, cfg Config) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.TranscribeModel == "" {
		cfg.TranscribeModel = "whisper-1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 180 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &client{
		log:             log.With("service", "OpenAIClient"),
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:          cfg.APIKey,
		model:           cfg.Model,
		transcribeModel: cfg.TranscribeModel,
		httpClient:      &http.Client{Timeout: cfg.Timeout},
		maxRetries:      cfg.MaxRetries,
		temperature:     cfg.Temperature,
	}, nil
}

func isUnsupportedTemperatureMessage(s string) bool {
	msg := strings.ToLower(strings.TrimSpace(s))
	if !strings.Contains(msg, "temperature") {
		return false
	}
	for _, needle := range []string{
		"unsupported parameter",
		"unknown parameter",
		"unrecognized parameter",
		"not supported",
		"does not support",
		"only the default",
		"unsupported_value",
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

// request is one outbound call. body is rebuilt per attempt since a reader
// can only be consumed once.
type request struct {
	op          string
	path        string
	contentType string
	body        func() (io.Reader, error)
}

func (c *client) doOnce(ctx context.Context, r request) (*http.Response, []byte, error) {
	body, err := r.body()
	if err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodPost, c.baseURL+r.path, body)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", r.contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &httpx.StatusError{Service: "openai", StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *client) do(ctx context.Context, r request, out any) error {
	start := time.Now()
	var raw []byte
	err := httpx.Retry(ctx, c.maxRetries, func(attempt int, sleep time.Duration, err error) {
		c.log.Warn("OpenAI request retrying",
			"path", r.path,
			"attempt", attempt,
			"max_retries", c.maxRetries,
			"sleep", sleep.String(),
			"error", err.Error(),
		)
	}, func() (*http.Response, error) {
		resp, body, err := c.doOnce(ctx, r)
		raw = body
		return resp, err
	})
	observability.Current().ObserveProviderCall("openai", r.op, observability.ProviderStatus(err), time.Since(start))
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if uErr := json.Unmarshal(raw, out); uErr != nil {
		return fmt.Errorf("openai decode error: %w", uErr)
	}
	return nil
}

func jsonBody(v any) func() (io.Reader, error) {
	return func() (io.Reader, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return bytes.NewReader(b), nil
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesRequest struct {
	Model       string    `json:"model"`
	Input       []message `json:"input"`
	Temperature *float64  `json:"temperature,omitempty"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Refusal string `json:"refusal,omitempty"`
}

func extractOutputText(resp responsesResponse) string {
	var out strings.Builder
	for _, item := range resp.Output {
		if item.Type == "message" && item.Role == "assistant" {
			for _, c := range item.Content {
				if c.Type == "output_text" && c.Text != "" {
					out.WriteString(c.Text)
				}
			}
		}
	}
	return out.String()
}

func (c *client) GenerateText(ctx context.Context, system string, user string) (string, error) {
	req := responsesRequest{
		Model:       c.model,
		Temperature: c.temperature,
	}
	if strings.TrimSpace(system) != "" {
		req.Input = append(req.Input, message{Role: "system", Content: system})
	}
	req.Input = append(req.Input, message{Role: "user", Content: user})

	var resp responsesResponse
	err := c.do(ctx, request{op: "responses", path: "/v1/responses", contentType: "application/json", body: jsonBody(&req)}, &resp)
	// Reasoning models reject temperature; retry exactly once without it.
	if err != nil && req.Temperature != nil && isUnsupportedTemperatureMessage(err.Error()) {
		c.log.Warn("OpenAI model rejected temperature, retrying without it", "model", req.Model)
		req.Temperature = nil
		err = c.do(ctx, request{op: "responses", path: "/v1/responses", contentType: "application/json", body: jsonBody(&req)}, &resp)
	}
	if err != nil {
		return "", err
	}
	if resp.Refusal != "" {
		return "", fmt.Errorf("model refused: %s", resp.Refusal)
	}
	text := extractOutputText(resp)
	if strings.TrimSpace(text) == "" {
		return "", errors.New("no output_text found in response")
	}
	return text, nil
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads the file to the audio transcriptions endpoint. An empty
// languageCode lets the model detect the language.
func (c *client) Transcribe(ctx context.Context, audioPath, languageCode string) (string, error) {
	if strings.TrimSpace(audioPath) == "" {
		return "", errors.New("audio path required")
	}
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("model", c.transcribeModel)
	if lc := strings.TrimSpace(languageCode); lc != "" {
		_ = mw.WriteField("language", lc)
	}
	fw, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}
	payload := buf.Bytes()

	var resp transcriptionResponse
	err = c.do(ctx, request{
		op:          "transcribe",
		path:        "/v1/audio/transcriptions",
		contentType: mw.FormDataContentType(),
		body:        func() (io.Reader, error) { return bytes.NewReader(payload), nil },
	}, &resp)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}
