package clerk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yungbote/mockgrader/internal/observability"
	"github.com/yungbote/mockgrader/internal/pkg/ctxutil"
	"github.com/yungbote/mockgrader/internal/pkg/httpx"
	"github.com/yungbote/mockgrader/internal/platform/envutil"
	"github.com/yungbote/mockgrader/internal/platform/logger"
)

const DefaultBaseURL = "https://api.clerk.dev"

var (
	ErrUserNotFound = errors.New("clerk: user not found")
	ErrNoEmail      = errors.New("clerk: user has no email address")
)

type Config struct {
	SecretKey  string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv() Config {
	return Config{
		SecretKey:  envutil.String("CLERK_SECRET_KEY", ""),
		BaseURL:    envutil.String("CLERK_API_URL", DefaultBaseURL),
		Timeout:    envutil.Seconds("CLERK_TIMEOUT_SECONDS", 15),
		MaxRetries: envutil.Int("CLERK_MAX_RETRIES", 3),
	}
}

// Client resolves user ids to contact addresses through the Clerk backend API.
type Client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

func New(log *logger.Logger, cfg Config) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, fmt.Errorf("missing CLERK_SECRET_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Client{
		log:        log.With("client", "ClerkClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type emailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

type user struct {
	ID                    string         `json:"id"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	EmailAddresses        []emailAddress `json:"email_addresses"`
}

// primaryEmail prefers the address flagged primary and falls back to the first one.
func (u user) primaryEmail() string {
	for _, e := range u.EmailAddresses {
		if u.PrimaryEmailAddressID != "" && e.ID == u.PrimaryEmailAddressID && strings.TrimSpace(e.EmailAddress) != "" {
			return strings.TrimSpace(e.EmailAddress)
		}
	}
	for _, e := range u.EmailAddresses {
		if v := strings.TrimSpace(e.EmailAddress); v != "" {
			return v
		}
	}
	return ""
}

func (c *Client) LookupEmail(ctx context.Context, userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("clerk: user id required")
	}

	start := time.Now()
	var u user
	err := httpx.Retry(ctx, c.cfg.MaxRetries, func(attempt int, sleep time.Duration, err error) {
		c.log.Warn("Clerk request retrying", "attempt", attempt, "sleep", sleep.String(), "error", err.Error())
	}, func() (*http.Response, error) {
		return c.getUser(ctx, userID, &u)
	})
	observability.Current().ObserveProviderCall("clerk", "get_user", observability.ProviderStatus(err), time.Since(start))
	if err != nil {
		var se *httpx.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return "", fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}
		return "", err
	}
	email := u.primaryEmail()
	if email == "" {
		return "", ErrNoEmail
	}
	return email, nil
}

func (c *Client) getUser(ctx context.Context, userID string, out *user) (*http.Response, error) {
	endpoint := c.cfg.BaseURL + "/v1/users/" + url.PathEscape(userID)
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, readErr
	}
	if resp.StatusCode != http.StatusOK {
		return resp, &httpx.StatusError{Service: "clerk", StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return resp, fmt.Errorf("clerk decode: %w", err)
	}
	return resp, nil
}
