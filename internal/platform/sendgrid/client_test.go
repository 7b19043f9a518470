package sendgrid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/mockgrader/internal/platform/logger"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(logger.Nop(), Config{
		APIKey:           "SG.test",
		BaseURL:          srv.URL,
		DefaultFromEmail: "support@example.com",
		DefaultFromName:  "Support",
		Timeout:          5 * time.Second,
		MaxRetries:       1,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestSend(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/mail/send" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer SG.test" {
			t.Errorf("auth: got %q", got)
		}
		var body mailSendRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if len(body.Personalizations) != 1 || body.Personalizations[0].To[0].Email != "learner@example.com" {
			t.Errorf("to: got %+v", body.Personalizations)
		}
		if body.From.Email != "support@example.com" || body.From.Name != "Support" {
			t.Errorf("from: got %+v", body.From)
		}
		if body.Subject != "Your results" {
			t.Errorf("subject: got %q", body.Subject)
		}
		if len(body.Content) != 1 || body.Content[0].Type != "text/html" || body.Content[0].Value != "<p>hi</p>" {
			t.Errorf("content: got %+v", body.Content)
		}
		w.Header().Set("X-Message-Id", "msg-1")
		w.WriteHeader(http.StatusAccepted)
	})

	if err := c.Send(context.Background(), " learner@example.com ", "Your results", "<p>hi</p>"); err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestSendDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"errors":[{"message":"bad from"}]}`, http.StatusBadRequest)
	})
	if err := c.Send(context.Background(), "a@b.c", "s", "<p>x</p>"); err == nil {
		t.Fatalf("expected error")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("calls: want=1 got=%d", got)
	}
}

func TestSendValidatesInput(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected")
	})
	cases := []struct{ to, subject, html string }{
		{"", "s", "<p>x</p>"},
		{"a@b.c", "", "<p>x</p>"},
		{"a@b.c", "s", " "},
	}
	for _, tc := range cases {
		if err := c.Send(context.Background(), tc.to, tc.subject, tc.html); err == nil {
			t.Fatalf("expected error for %+v", tc)
		}
	}
}

func TestNewRequiresSender(t *testing.T) {
	if _, err := New(logger.Nop(), Config{APIKey: "k"}); err == nil {
		t.Fatalf("expected error without from address")
	}
}
