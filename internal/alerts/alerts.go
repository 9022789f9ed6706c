package alerts

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/liamashdown/whalewatch/internal/anomaly"
	"github.com/liamashdown/whalewatch/internal/trade"
	"github.com/liamashdown/whalewatch/internal/wallet"
)

// AlertType distinguishes positions being opened from positions being closed
type AlertType string

const (
	AlertWhaleEntry AlertType = "WHALE_ENTRY"
	AlertWhaleExit  AlertType = "WHALE_EXIT"
)

// WalletActivity is the actor summary carried on an alert
type WalletActivity struct {
	TransactionsLastHour int     `json:"transactions_last_hour"`
	TransactionsLastDay  int     `json:"transactions_last_day"`
	TotalValueHour       float64 `json:"total_value_hour"`
	TotalValueDay        float64 `json:"total_value_day"`
	IsRepeatActor        bool    `json:"is_repeat_actor"`
	IsHeavyActor         bool    `json:"is_heavy_actor"`
}

// Status is the short label used in notifications
func (a *WalletActivity) Status() string {
	switch {
	case a.IsHeavyActor:
		return "HEAVY ACTOR"
	case a.IsRepeatActor:
		return "REPEAT ACTOR"
	default:
		return "NEW ACTOR"
	}
}

// ActivityFromSnapshot copies the tracker snapshot into an alert-owned value
func ActivityFromSnapshot(s *wallet.Snapshot) *WalletActivity {
	if s == nil {
		return nil
	}
	return &WalletActivity{
		TransactionsLastHour: s.TxCountLastHour,
		TransactionsLastDay:  s.TxCountLastDay,
		TotalValueHour:       s.VolumeLastHour,
		TotalValueDay:        s.VolumeLastDay,
		IsRepeatActor:        s.IsRepeatActor,
		IsHeavyActor:         s.IsHeavyActor,
	}
}

// AlertRecord contains everything known about one whale trade.
// It is built once and never modified; senders only read it.
type AlertRecord struct {
	ID          string          `json:"id"`
	Platform    string          `json:"platform"`
	AlertType   AlertType       `json:"alert_type"`
	Action      string          `json:"action"`
	Value       float64         `json:"value"`
	Price       float64         `json:"price"`
	Size        float64         `json:"size"`
	TradeID     string          `json:"trade_id,omitempty"`
	MarketKey   string          `json:"market_key,omitempty"`
	MarketTitle string          `json:"market_title,omitempty"`
	Outcome     string          `json:"outcome,omitempty"`
	WalletID    string          `json:"wallet_id,omitempty"`
	Activity    *WalletActivity `json:"wallet_activity,omitempty"`
	AnomalyTags []string        `json:"anomaly_tags,omitempty"`
	Anomalies   []string        `json:"anomalies,omitempty"`
	TradeTime   time.Time       `json:"timestamp"`
	CreatedAt   time.Time       `json:"created_at"`
	Environment string          `json:"environment,omitempty"`
}

// NewAlertRecord builds the record for a qualifying trade
func NewAlertRecord(t trade.Trade, actor *wallet.Snapshot, tags []anomaly.Tag, environment string) *AlertRecord {
	alertType := AlertWhaleEntry
	if t.IsExit() {
		alertType = AlertWhaleExit
	}

	tagNames := make([]string, 0, len(tags))
	for _, tag := range tags {
		tagNames = append(tagNames, string(tag))
	}

	return &AlertRecord{
		ID:          uuid.NewString(),
		Platform:    t.Source.DisplayName(),
		AlertType:   alertType,
		Action:      t.Action(),
		Value:       t.NotionalValue(),
		Price:       t.UnitPrice,
		Size:        t.Quantity,
		TradeID:     t.ID,
		MarketKey:   t.MarketKey,
		MarketTitle: t.MarketLabel,
		Outcome:     t.OutcomeLabel,
		WalletID:    t.ActorID,
		Activity:    ActivityFromSnapshot(actor),
		AnomalyTags: tagNames,
		Anomalies:   anomaly.DescribeAll(tags, t, actor),
		TradeTime:   t.OccurredAt,
		CreatedAt:   time.Now().UTC(),
		Environment: environment,
	}
}

// IsExit reports whether the alert is for a position being closed
func (r *AlertRecord) IsExit() bool {
	return r.AlertType == AlertWhaleExit
}

// PricePercent is the price as a rounded whole percentage
func (r *AlertRecord) PricePercent() int {
	return int(math.Round(r.Price * 100))
}

// WalletShort is the shortened wallet id for display
func (r *AlertRecord) WalletShort() string {
	return shortenAddress(r.WalletID)
}

// Sanitized returns a copy whose free-text fields are safe for downstream renderers
func (r *AlertRecord) Sanitized() *AlertRecord {
	c := *r
	c.MarketTitle = Sanitize(r.MarketTitle)
	c.Outcome = Sanitize(r.Outcome)
	return &c
}

// MarketURL is the click-through link for the alert's venue
func (r *AlertRecord) MarketURL() string {
	switch strings.ToLower(r.Platform) {
	case string(trade.SourcePolymarket):
		if slug := slugify(r.MarketTitle); slug != "" {
			return "https://polymarket.com/markets/" + slug
		}
	case string(trade.SourceKalshi):
		return "https://kalshi.com/markets"
	}
	return ""
}

// Sender defines the interface for alert senders
type Sender interface {
	Send(ctx context.Context, rec *AlertRecord) error
}

func shortenAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

func slugify(title string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(title) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if isAlnum {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
