package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// PushSender publishes alerts to a topic on an ntfy-style push server
type PushSender struct {
	target     Target
	httpClient *http.Client
}

type pushPayload struct {
	Topic    string   `json:"topic"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Priority int      `json:"priority"`
	Tags     []string `json:"tags"`
	Click    string   `json:"click,omitempty"`
	Time     string   `json:"time,omitempty"`
}

// NewPushSender creates a push sender for a TargetPush
func NewPushSender(target Target, timeout time.Duration) *PushSender {
	return &PushSender{
		target:     target,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Send publishes the alert. Any transport error or non-2xx status is a failure.
func (s *PushSender) Send(ctx context.Context, rec *AlertRecord) error {
	rec = rec.Sanitized()

	tags := []string{"whale", "moneybag"}
	if rec.IsExit() {
		tags = []string{"red_circle", "warning"}
	}

	payload := pushPayload{
		Topic:    s.target.Topic,
		Title:    pushTitle(rec),
		Message:  renderMessage(rec),
		Priority: priority(rec),
		Tags:     tags,
		Click:    rec.MarketURL(),
	}
	if !rec.TradeTime.IsZero() {
		payload.Time = rec.TradeTime.UTC().Format(time.RFC3339)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.target.BaseURL+"/"+s.target.Topic, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.target.Username != "" {
		req.SetBasicAuth(s.target.Username, s.target.Password)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push server returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	return nil
}
