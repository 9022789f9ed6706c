package alerts

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogSender sends alerts to the logger
type LogSender struct {
	log *logrus.Logger
}

// NewLogSender creates a new log sender
func NewLogSender(log *logrus.Logger) *LogSender {
	return &LogSender{log: log}
}

// Send logs the alert
func (s *LogSender) Send(ctx context.Context, rec *AlertRecord) error {
	fields := logrus.Fields{
		"alert_id":   rec.ID,
		"alert_type": rec.AlertType,
		"platform":   rec.Platform,
		"market":     rec.MarketTitle,
		"outcome":    rec.Outcome,
		"action":     rec.Action,
		"value_usd":  rec.Value,
		"price":      rec.Price,
		"size":       rec.Size,
	}
	if rec.WalletID != "" {
		fields["wallet"] = rec.WalletShort()
	}
	if rec.Activity != nil {
		fields["txns_1h"] = rec.Activity.TransactionsLastHour
		fields["txns_24h"] = rec.Activity.TransactionsLastDay
		fields["actor_status"] = rec.Activity.Status()
	}
	if len(rec.AnomalyTags) > 0 {
		fields["anomalies"] = rec.AnomalyTags
	}

	s.log.WithFields(fields).Info("Whale alert")
	return nil
}
