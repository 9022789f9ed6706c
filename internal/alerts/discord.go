package alerts

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// DiscordSender sends alerts to a Discord channel webhook
type DiscordSender struct {
	target  Target
	session *discordgo.Session
}

// NewDiscordSender creates a Discord sender for a TargetDiscord.
// Webhook execution needs no bot token.
func NewDiscordSender(target Target, timeout time.Duration) (*DiscordSender, error) {
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Client = &http.Client{Timeout: timeout}

	return &DiscordSender{
		target:  target,
		session: session,
	}, nil
}

// Send posts the alert as a single embed
func (s *DiscordSender) Send(ctx context.Context, rec *AlertRecord) error {
	params := &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{buildEmbed(rec.Sanitized())},
	}

	_, err := s.session.WebhookExecute(s.target.WebhookID, s.target.WebhookToken, false, params, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("execute discord webhook: %w", err)
	}
	return nil
}

func buildEmbed(rec *AlertRecord) *discordgo.MessageEmbed {
	title := "🐋 Whale entry detected"
	color := 0x2ECC71 // Green
	if rec.IsExit() {
		title = "🚨 Whale exiting position"
		color = 0xE74C3C // Red
	}
	if len(rec.Anomalies) > 0 && !rec.IsExit() {
		color = 0xFFA500 // Orange
	}

	market := rec.MarketTitle
	if market == "" {
		market = rec.MarketKey
	}

	side := rec.Action
	if rec.Outcome != "" {
		side = fmt.Sprintf("%s %s", rec.Action, rec.Outcome)
	}

	description := fmt.Sprintf("**$%.2f** %s @ **%.1f%%** on %s",
		rec.Value,
		side,
		rec.Price*100,
		rec.Platform,
	)

	fields := []*discordgo.MessageEmbedField{
		{Name: "Market", Value: truncate(nonEmpty(market), 100), Inline: true},
		{Name: "Side", Value: truncate(side, 100), Inline: true},
		{Name: "Amount", Value: fmt.Sprintf("$%.2f", rec.Value), Inline: true},
		{Name: "Price", Value: fmt.Sprintf("$%.4f", rec.Price), Inline: true},
		{Name: "Size", Value: fmt.Sprintf("%.0f contracts", rec.Size), Inline: true},
	}

	if rec.WalletID != "" {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Wallet",
			Value:  fmt.Sprintf("`%s`", rec.WalletShort()),
			Inline: true,
		})
	}

	if a := rec.Activity; a != nil {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "Wallet Activity",
			Value: fmt.Sprintf("%d txns / $%.0f (1h)\n%d txns / $%.0f (24h)\n**%s**",
				a.TransactionsLastHour, a.TotalValueHour,
				a.TransactionsLastDay, a.TotalValueDay,
				a.Status()),
			Inline: false,
		})
	}

	if len(rec.Anomalies) > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Anomaly Indicators",
			Value:  truncate("- "+strings.Join(rec.Anomalies, "\n- "), 1000),
			Inline: false,
		})
	}

	return &discordgo.MessageEmbed{
		Title:       title,
		URL:         rec.MarketURL(),
		Description: description,
		Color:       color,
		Fields:      fields,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Whale Watch • %s • %s", rec.Environment, rec.TradeTime.UTC().Format("2006-01-02 15:04:05 UTC")),
		},
		Timestamp: rec.TradeTime.Format(time.RFC3339),
	}
}

func nonEmpty(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
