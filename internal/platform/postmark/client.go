package postmark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/mockgrader/internal/observability"
	"github.com/yungbote/mockgrader/internal/pkg/ctxutil"
	"github.com/yungbote/mockgrader/internal/pkg/httpx"
	"github.com/yungbote/mockgrader/internal/platform/envutil"
	"github.com/yungbote/mockgrader/internal/platform/logger"
)

const (
	DefaultBaseURL       = "https://api.postmarkapp.com"
	DefaultFrom          = "support@naatininja.com"
	DefaultMessageStream = "outbound"
)

type Config struct {
	ServerToken   string
	BaseURL       string
	From          string
	MessageStream string
	Timeout       time.Duration
	MaxRetries    int
}

func ConfigFromEnv() Config {
	return Config{
		ServerToken:   envutil.String("POSTMARK_API_TOKEN", ""),
		BaseURL:       envutil.String("POSTMARK_BASE_URL", DefaultBaseURL),
		From:          envutil.String("EMAIL_USER", DefaultFrom),
		MessageStream: envutil.String("POSTMARK_MESSAGE_STREAM", DefaultMessageStream),
		Timeout:       envutil.Seconds("POSTMARK_TIMEOUT_SECONDS", 30),
		MaxRetries:    envutil.Int("POSTMARK_MAX_RETRIES", 3),
	}
}

type Client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

func New(log *logger.Logger, cfg Config) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.ServerToken) == "" {
		return nil, fmt.Errorf("missing POSTMARK_API_TOKEN")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.From == "" {
		cfg.From = DefaultFrom
	}
	if cfg.MessageStream == "" {
		cfg.MessageStream = DefaultMessageStream
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Client{
		log:        log.With("client", "PostmarkClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type emailRequest struct {
	From          string `json:"From"`
	To            string `json:"To"`
	Subject       string `json:"Subject"`
	HtmlBody      string `json:"HtmlBody"`
	MessageStream string `json:"MessageStream"`
}

type emailResponse struct {
	ErrorCode int    `json:"ErrorCode"`
	Message   string `json:"Message"`
	MessageID string `json:"MessageID"`
}

func (c *Client) Send(ctx context.Context, to, subject, html string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return fmt.Errorf("postmark: recipient required")
	}
	payload, err := json.Marshal(emailRequest{
		From:          c.cfg.From,
		To:            to,
		Subject:       subject,
		HtmlBody:      html,
		MessageStream: c.cfg.MessageStream,
	})
	if err != nil {
		return err
	}

	start := time.Now()
	var out emailResponse
	err = httpx.Retry(ctx, c.cfg.MaxRetries, func(attempt int, sleep time.Duration, err error) {
		c.log.Warn("Postmark request retrying", "attempt", attempt, "sleep", sleep.String(), "error", err.Error())
	}, func() (*http.Response, error) {
		return c.doOnce(ctx, payload, &out)
	})
	observability.Current().ObserveProviderCall("postmark", "send", observability.ProviderStatus(err), time.Since(start))
	if err != nil {
		return err
	}
	// Postmark reports some rejections with a 200 and a non-zero ErrorCode.
	if out.ErrorCode != 0 {
		return fmt.Errorf("postmark error %d: %s", out.ErrorCode, out.Message)
	}
	c.log.Debug("Postmark message accepted", "message_id", out.MessageID)
	return nil
}

func (c *Client) doOnce(ctx context.Context, payload []byte, out *emailResponse) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodPost, c.cfg.BaseURL+"/email", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.cfg.ServerToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, &httpx.StatusError{Service: "postmark", StatusCode: resp.StatusCode, Body: string(raw)}
	}
	*out = emailResponse{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp, fmt.Errorf("postmark decode: %w", err)
		}
	}
	return resp, nil
}
