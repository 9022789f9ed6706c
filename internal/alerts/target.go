package alerts

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultPushBaseURL = "http://localhost:8080"
	DefaultPushTopic   = "whale-alerts"
)

// TargetKind is the delivery protocol chosen for a configured URL
type TargetKind string

const (
	TargetWebhook TargetKind = "webhook"
	TargetPush    TargetKind = "push"
	TargetDiscord TargetKind = "discord"
)

// Target is a parsed notification destination
type Target struct {
	Kind TargetKind
	URL  string

	// Push endpoints
	BaseURL  string
	Topic    string
	Username string
	Password string

	// Discord webhooks
	WebhookID    string
	WebhookToken string
}

// ParseTarget inspects a configured URL once and decides how alerts are delivered to it.
//
//   - discord.com/api/webhooks/<id>/<token> is a Discord webhook
//   - a bare word with no scheme is a topic on the local push server
//   - a URL with embedded credentials or an ntfy host is a push endpoint
//   - anything else is a generic JSON webhook
func ParseTarget(raw string) (Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Target{}, fmt.Errorf("empty notification url")
	}

	if !strings.Contains(raw, "://") {
		if strings.ContainsAny(raw, "/@:") {
			return Target{}, fmt.Errorf("notification url %q has no scheme", raw)
		}
		return Target{
			Kind:    TargetPush,
			URL:     DefaultPushBaseURL + "/" + raw,
			BaseURL: DefaultPushBaseURL,
			Topic:   raw,
		}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, fmt.Errorf("parse notification url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Target{}, fmt.Errorf("unsupported scheme %q in notification url", u.Scheme)
	}
	if u.Host == "" {
		return Target{}, fmt.Errorf("notification url %q has no host", raw)
	}

	host := strings.ToLower(u.Hostname())
	if isDiscordHost(host) {
		id, token, ok := discordWebhookParts(u.Path)
		if !ok {
			return Target{}, fmt.Errorf("discord url must look like /api/webhooks/<id>/<token>")
		}
		return Target{Kind: TargetDiscord, URL: raw, WebhookID: id, WebhookToken: token}, nil
	}

	if u.User != nil || strings.Contains(host, "ntfy") {
		t := Target{
			Kind:    TargetPush,
			BaseURL: u.Scheme + "://" + u.Host,
			Topic:   strings.Trim(u.Path, "/"),
		}
		if t.Topic == "" {
			t.Topic = DefaultPushTopic
		}
		if u.User != nil {
			t.Username = u.User.Username()
			t.Password, _ = u.User.Password()
		}
		t.URL = t.BaseURL + "/" + t.Topic
		return t, nil
	}

	return Target{Kind: TargetWebhook, URL: raw}, nil
}

// Redacted is safe to print: credentials and webhook tokens are masked
func (t Target) Redacted() string {
	switch t.Kind {
	case TargetDiscord:
		return fmt.Sprintf("discord webhook %s/****", t.WebhookID)
	case TargetPush:
		if t.Username != "" {
			return fmt.Sprintf("push %s/%s (auth as %s)", t.BaseURL, t.Topic, t.Username)
		}
		return fmt.Sprintf("push %s/%s", t.BaseURL, t.Topic)
	}

	u, err := url.Parse(t.URL)
	if err != nil {
		return "webhook ****"
	}
	u.User = nil
	u.RawQuery = ""
	return "webhook " + u.String()
}

func isDiscordHost(host string) bool {
	return host == "discord.com" || host == "discordapp.com" ||
		strings.HasSuffix(host, ".discord.com") || strings.HasSuffix(host, ".discordapp.com")
}

func discordWebhookParts(path string) (string, string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 4 || parts[0] != "api" || parts[1] != "webhooks" || parts[2] == "" || parts[3] == "" {
		return "", "", false
	}
	return parts[2], parts[3], true
}

// NewSender builds the sender matching the target's protocol
func NewSender(t Target, timeout time.Duration) (Sender, error) {
	switch t.Kind {
	case TargetPush:
		return NewPushSender(t, timeout), nil
	case TargetDiscord:
		return NewDiscordSender(t, timeout)
	case TargetWebhook:
		return NewWebhookSender(t.URL, timeout), nil
	}
	return nil, fmt.Errorf("unknown target kind %q", t.Kind)
}
