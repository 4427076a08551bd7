package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"unicode/utf8"

	"raidcall/internal/message"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// redirect sends every request to target, keeping the path.
type redirect struct {
	target *url.URL
}

func (r redirect) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = r.target.Scheme
	req.URL.Host = r.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func TestParseWebhookURL(t *testing.T) {
	id, token, err := ParseWebhookURL("https://discord.com/api/webhooks/123456/tok-en_x")
	if err != nil || id != "123456" || token != "tok-en_x" {
		t.Errorf("ParseWebhookURL = %q, %q, %v", id, token, err)
	}
	for _, bad := range []string{"", "not a url", "https://discord.com/api/webhooks/123456", "https://discord.com/api/channels/1/2"} {
		if _, _, err := ParseWebhookURL(bad); err == nil {
			t.Errorf("ParseWebhookURL(%q) accepted", bad)
		}
	}
}

func TestDeliver(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/webhooks/123/secret") {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	var console bytes.Buffer
	hook, err := NewWebhook(discardLogger(), "https://discord.com/api/webhooks/123/secret", false, &console)
	if err != nil {
		t.Fatalf("NewWebhook: %v", err)
	}
	target, _ := url.Parse(srv.URL)
	hook.session.Client = &http.Client{Transport: redirect{target: target}}

	msg := message.Message{MessageID: "teamup_1", Content: "Raid tomorrow", Username: "Progress", AvatarURL: "https://example.com/p.png"}
	if err := hook.Deliver(context.Background(), msg); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if got["content"] != "Raid tomorrow" || got["username"] != "Progress" || got["avatar_url"] != "https://example.com/p.png" {
		t.Errorf("posted %v", got)
	}
	if !strings.Contains(console.String(), "User: Progress\nAvatar: https://example.com/p.png\nRaid tomorrow\n") {
		t.Errorf("console = %q", console.String())
	}
}

func TestDeliverDebug(t *testing.T) {
	var console bytes.Buffer
	hook, err := NewWebhook(discardLogger(), "", true, &console)
	if err != nil {
		t.Fatalf("NewWebhook: %v", err)
	}
	if err := hook.Deliver(context.Background(), message.Message{Content: "hello", Username: "Bot"}); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if !strings.Contains(console.String(), "User: Bot") {
		t.Errorf("console = %q", console.String())
	}
}

func TestNewWebhookRequiresURL(t *testing.T) {
	if _, err := NewWebhook(discardLogger(), "", false, io.Discard); err == nil {
		t.Error("missing webhook url accepted outside debug mode")
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("ä", MaxContentLength+10)
	got := truncate(long, MaxContentLength)
	if utf8.RuneCountInString(got) != MaxContentLength || !strings.HasSuffix(got, "…") {
		t.Errorf("truncated to %d runes", utf8.RuneCountInString(got))
	}
	if truncate("short", MaxContentLength) != "short" {
		t.Error("short content changed")
	}
}
