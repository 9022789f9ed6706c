package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/liamashdown/whalewatch/internal/alerts"
	"github.com/liamashdown/whalewatch/internal/storage"
)

// AlertStore is the subset of storage.DB used for history
type AlertStore interface {
	InsertAlert(ctx context.Context, alert *storage.Alert) (int64, error)
	ListAlerts(ctx context.Context, platform string, limit int) ([]storage.Alert, error)
}

// DBSink keeps alert history in the alerts table
type DBSink struct {
	db AlertStore
}

func NewDBSink(db AlertStore) *DBSink {
	return &DBSink{db: db}
}

func (s *DBSink) Append(ctx context.Context, rec *alerts.AlertRecord) error {
	row, err := toRow(rec)
	if err != nil {
		return err
	}
	if _, err := s.db.InsertAlert(ctx, row); err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *DBSink) Query(ctx context.Context, filter Filter) ([]*alerts.AlertRecord, error) {
	rows, err := s.db.ListAlerts(ctx, filter.Platform, filter.Limit)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}

	out := make([]*alerts.AlertRecord, 0, len(rows))
	for i := range rows {
		out = append(out, fromRow(&rows[i]))
	}
	return out, nil
}

func toRow(rec *alerts.AlertRecord) (*storage.Alert, error) {
	row := &storage.Alert{
		AlertUUID:         rec.ID,
		Platform:          rec.Platform,
		AlertType:         string(rec.AlertType),
		Action:            rec.Action,
		TradeID:           rec.TradeID,
		MarketKey:         rec.MarketKey,
		MarketTitle:       rec.MarketTitle,
		Outcome:           rec.Outcome,
		ValueUSD:          rec.Value,
		Price:             rec.Price,
		Size:              rec.Size,
		WalletID:          rec.WalletID,
		Environment:       rec.Environment,
		TradeTimestampSec: rec.TradeTime.Unix(),
		CreatedTS:         rec.CreatedAt.Unix(),
	}

	if rec.Activity != nil {
		b, err := json.Marshal(rec.Activity)
		if err != nil {
			return nil, fmt.Errorf("marshal wallet activity: %w", err)
		}
		row.WalletActivity = string(b)
	}

	if len(rec.Anomalies) > 0 {
		b, err := json.Marshal(anomalyColumn{Tags: rec.AnomalyTags, Descriptions: rec.Anomalies})
		if err != nil {
			return nil, fmt.Errorf("marshal anomalies: %w", err)
		}
		row.Anomalies = string(b)
	}

	return row, nil
}

type anomalyColumn struct {
	Tags         []string `json:"tags"`
	Descriptions []string `json:"descriptions"`
}

// fromRow ignores malformed JSON columns; the rest of the row is still useful
func fromRow(row *storage.Alert) *alerts.AlertRecord {
	rec := &alerts.AlertRecord{
		ID:          row.AlertUUID,
		Platform:    row.Platform,
		AlertType:   alerts.AlertType(row.AlertType),
		Action:      row.Action,
		Value:       row.ValueUSD,
		Price:       row.Price,
		Size:        row.Size,
		TradeID:     row.TradeID,
		MarketKey:   row.MarketKey,
		MarketTitle: row.MarketTitle,
		Outcome:     row.Outcome,
		WalletID:    row.WalletID,
		TradeTime:   time.Unix(row.TradeTimestampSec, 0).UTC(),
		CreatedAt:   time.Unix(row.CreatedTS, 0).UTC(),
		Environment: row.Environment,
	}

	if row.WalletActivity != "" {
		var a alerts.WalletActivity
		if json.Unmarshal([]byte(row.WalletActivity), &a) == nil {
			rec.Activity = &a
		}
	}
	if row.Anomalies != "" {
		var col anomalyColumn
		if json.Unmarshal([]byte(row.Anomalies), &col) == nil {
			rec.AnomalyTags = col.Tags
			rec.Anomalies = col.Descriptions
		}
	}

	return rec
}
