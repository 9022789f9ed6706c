package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Format is the wire encoding used for a delivery attempt
type Format string

const (
	FormatJSON Format = "json"
	FormatForm Format = "form"
)

// webhookMaxAttempts is the JSON attempt plus the single form fallback
const webhookMaxAttempts = 2

// Delivery is the outcome of one webhook delivery.
// Format is the encoding of the last attempt made.
type Delivery struct {
	Attempts int
	Format   Format
	Err      error
}

// OK reports whether the alert reached the endpoint
func (d Delivery) OK() bool {
	return d.Err == nil
}

// WebhookSender posts alerts to an arbitrary HTTP endpoint. The structured
// JSON payload is tried first; if it is rejected the same message is sent
// once more as form data.
type WebhookSender struct {
	url        string
	timeout    time.Duration
	httpClient *http.Client
}

type webhookPayload struct {
	Topic    string `json:"topic"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Tags     string `json:"tags"`
	Priority int    `json:"priority"`

	Platform       string          `json:"platform"`
	AlertType      AlertType       `json:"alert_type"`
	Action         string          `json:"action"`
	Value          float64         `json:"value"`
	Price          float64         `json:"price"`
	PricePercent   int             `json:"price_percent"`
	Size           float64         `json:"size"`
	Timestamp      string          `json:"timestamp"`
	MarketTitle    *string         `json:"market_title"`
	Outcome        *string         `json:"outcome"`
	WalletID       string          `json:"wallet_id,omitempty"`
	WalletActivity *WalletActivity `json:"wallet_activity,omitempty"`
	Anomalies      []string        `json:"anomalies,omitempty"`
}

// NewWebhookSender creates a webhook sender for a TargetWebhook
func NewWebhookSender(rawURL string, timeout time.Duration) *WebhookSender {
	return &WebhookSender{
		url:        rawURL,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Send implements Sender
func (s *WebhookSender) Send(ctx context.Context, rec *AlertRecord) error {
	return s.Deliver(ctx, rec).Err
}

// Deliver makes at most two attempts and reports what happened.
// Each attempt gets its own timeout, so a hung JSON post does not starve the fallback.
func (s *WebhookSender) Deliver(ctx context.Context, rec *AlertRecord) Delivery {
	rec = rec.Sanitized()
	message := webhookTitle(rec) + "\n\n" + renderMessage(rec)

	jsonErr := s.attempt(ctx, func(ctx context.Context) error {
		return s.postJSON(ctx, rec, message)
	})
	if jsonErr == nil {
		return Delivery{Attempts: 1, Format: FormatJSON}
	}

	// No time left for a fallback; report only the attempt that was made
	if ctx.Err() != nil {
		return Delivery{
			Attempts: 1,
			Format:   FormatJSON,
			Err:      fmt.Errorf("json delivery: %w", jsonErr),
		}
	}

	err := s.attempt(ctx, func(ctx context.Context) error {
		return s.postForm(ctx, rec, message)
	})
	if err != nil {
		return Delivery{
			Attempts: 2,
			Format:   FormatForm,
			Err:      fmt.Errorf("json delivery: %v; form fallback: %w", jsonErr, err),
		}
	}

	return Delivery{Attempts: 2, Format: FormatForm}
}

func (s *WebhookSender) attempt(ctx context.Context, post func(context.Context) error) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return post(ctx)
}

func (s *WebhookSender) postJSON(ctx context.Context, rec *AlertRecord, message string) error {
	payload := webhookPayload{
		Topic:          DefaultPushTopic,
		Title:          webhookTitle(rec),
		Message:        message,
		Tags:           webhookTags(rec),
		Priority:       priority(rec),
		Platform:       rec.Platform,
		AlertType:      rec.AlertType,
		Action:         rec.Action,
		Value:          rec.Value,
		Price:          rec.Price,
		PricePercent:   rec.PricePercent(),
		Size:           rec.Size,
		Timestamp:      rec.TradeTime.UTC().Format(time.RFC3339),
		MarketTitle:    optional(rec.MarketTitle),
		Outcome:        optional(rec.Outcome),
		WalletID:       rec.WalletID,
		WalletActivity: rec.Activity,
		Anomalies:      rec.Anomalies,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	return s.post(ctx, "application/json", bytes.NewReader(body))
}

func (s *WebhookSender) postForm(ctx context.Context, rec *AlertRecord, message string) error {
	prio := "default"
	if rec.IsExit() {
		prio = "high"
	}

	form := url.Values{}
	form.Set("topic", DefaultPushTopic)
	form.Set("message", message)
	form.Set("title", webhookTitle(rec))
	form.Set("tags", webhookTags(rec))
	form.Set("priority", prio)

	return s.post(ctx, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
}

func (s *WebhookSender) post(ctx context.Context, contentType string, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
