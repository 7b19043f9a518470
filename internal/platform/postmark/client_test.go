package postmark

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yungbote/mockgrader/internal/platform/logger"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(logger.Nop(), Config{ServerToken: "pm-token", BaseURL: srv.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestSend(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/email" {
			t.Errorf("request: got %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("X-Postmark-Server-Token"); got != "pm-token" {
			t.Errorf("token: got %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("accept: got %q", got)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		want := map[string]string{
			"From":          DefaultFrom,
			"To":            "learner@example.com",
			"Subject":       "Results",
			"HtmlBody":      "<p>ok</p>",
			"MessageStream": "outbound",
		}
		for k, v := range want {
			if body[k] != v {
				t.Errorf("%s: want=%q got=%q", k, v, body[k])
			}
		}
		_, _ = io.WriteString(w, `{"ErrorCode":0,"Message":"OK","MessageID":"abc"}`)
	})

	if err := c.Send(context.Background(), "learner@example.com", "Results", "<p>ok</p>"); err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestSendReportsErrorCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"ErrorCode":406,"Message":"Inactive recipient"}`)
	})
	if err := c.Send(context.Background(), "x@example.com", "s", "<p/>"); err == nil {
		t.Fatalf("expected error for non-zero ErrorCode")
	}
}

func TestSendHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ErrorCode":10,"Message":"bad token"}`, http.StatusUnauthorized)
	})
	if err := c.Send(context.Background(), "x@example.com", "s", "<p/>"); err == nil {
		t.Fatalf("expected error for 401")
	}
}

func TestConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("POSTMARK_API_TOKEN", "t")
	t.Setenv("EMAIL_USER", "")
	cfg := ConfigFromEnv()
	if cfg.From != DefaultFrom || cfg.MessageStream != DefaultMessageStream || cfg.BaseURL != DefaultBaseURL {
		t.Fatalf("defaults: got %+v", cfg)
	}
}
