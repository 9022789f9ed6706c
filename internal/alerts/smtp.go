package alerts

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

// SMTPSender sends alerts via email
type SMTPSender struct {
	host     string
	port     int
	user     string
	password string
	from     string
	to       []string
}

// NewSMTPSender creates a new SMTP sender
func NewSMTPSender(host string, port int, user, password, from string, to []string) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		from:     from,
		to:       to,
	}
}

// Send sends the alert via email. net/smtp has no context support, so the
// call is abandoned (not aborted) when ctx expires.
func (s *SMTPSender) Send(ctx context.Context, rec *AlertRecord) error {
	if len(s.to) == 0 {
		return fmt.Errorf("no email recipients configured")
	}

	msg := s.buildMessage(rec.Sanitized())
	auth := smtp.PlainAuth("", s.user, s.password, s.host)
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, s.from, s.to, []byte(msg))
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send email: %w", ctx.Err())
	}
}

func (s *SMTPSender) buildMessage(rec *AlertRecord) string {
	subject := fmt.Sprintf("[%s] %s $%.2f on %s", rec.AlertType, rec.Action, rec.Value, nonEmpty(rec.MarketTitle))

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(s.to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(s.buildEmailBody(rec))
	return b.String()
}

func (s *SMTPSender) buildEmailBody(rec *AlertRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "WHALEWATCH ALERT - %s\n", pushTitle(rec))
	b.WriteString("═══════════════════════════════════════\n\n")
	b.WriteString(renderMessage(rec))
	b.WriteString("\n\n")
	if u := rec.MarketURL(); u != "" {
		fmt.Fprintf(&b, "Market URL:     %s\n", u)
	}
	if rec.TradeID != "" {
		fmt.Fprintf(&b, "Trade:          %s\n", rec.TradeID)
	}
	fmt.Fprintf(&b, "Time:           %s\n\n", rec.TradeTime.Format(time.RFC3339))
	b.WriteString("═══════════════════════════════════════\n")
	fmt.Fprintf(&b, "Environment: %s\n", rec.Environment)
	fmt.Fprintf(&b, "Generated: %s\n", time.Now().UTC().Format("2006-01-02 15:04:05 UTC"))
	return b.String()
}
