// Package discord posts notifications to a Discord channel webhook.
package discord

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/bwmarrin/discordgo"

	"raidcall/internal/message"
)

// MaxContentLength is the longest message content Discord accepts.
const MaxContentLength = 2000

const rule = "------------------------------------------------------------------------"

// Webhook delivers messages through a channel webhook. Every message is also written
// to the console; in debug mode nothing is posted.
type Webhook struct {
	session *discordgo.Session
	id      string
	token   string
	debug   bool
	console io.Writer
	logger  *slog.Logger
}

// NewWebhook creates a sink for webhookURL. The URL may be empty in debug mode.
func NewWebhook(logger *slog.Logger, webhookURL string, debug bool, console io.Writer) (*Webhook, error) {
	w := &Webhook{debug: debug, console: console, logger: logger}
	if debug && webhookURL == "" {
		return w, nil
	}

	id, token, err := ParseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.UserAgent = "raidcall/1.0"
	w.session, w.id, w.token = session, id, token
	return w, nil
}

// ParseWebhookURL splits a webhook URL of the form .../api/webhooks/<id>/<token>.
func ParseWebhookURL(raw string) (id, token string, err error) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", "", fmt.Errorf("invalid webhook url")
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", fmt.Errorf("invalid webhook url: missing webhook id and token")
}

// Deliver posts msg as its persona.
func (w *Webhook) Deliver(ctx context.Context, msg message.Message) error {
	fmt.Fprintf(w.console, "%s\nUser: %s\nAvatar: %s\n%s\n%s\n", rule, msg.Username, msg.AvatarURL, msg.Content, rule)
	if w.debug {
		w.logger.Debug("Debug mode, message not posted", "messageID", msg.MessageID)
		return nil
	}

	_, err := w.session.WebhookExecute(w.id, w.token, false, &discordgo.WebhookParams{
		Content:   truncate(msg.Content, MaxContentLength),
		Username:  msg.Username,
		AvatarURL: msg.AvatarURL,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("execute webhook: %w", err)
	}
	w.logger.Info("Posted notification", "messageID", msg.MessageID, "user", msg.Username)
	return nil
}

// truncate cuts s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
