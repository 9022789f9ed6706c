package trade

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Source identifies the venue a trade was fetched from
type Source string

const (
	SourcePolymarket Source = "polymarket"
	SourceKalshi     Source = "kalshi"
)

// DisplayName returns the venue name used in alerts and history
func (s Source) DisplayName() string {
	switch s {
	case SourcePolymarket:
		return "Polymarket"
	case SourceKalshi:
		return "Kalshi"
	default:
		return string(s)
	}
}

// ParseSource maps a config or CLI value onto a Source
func ParseSource(s string) (Source, error) {
	switch Source(normalize(s)) {
	case SourcePolymarket:
		return SourcePolymarket, nil
	case SourceKalshi:
		return SourceKalshi, nil
	}
	return "", fmt.Errorf("unknown source %q (valid: polymarket, kalshi)", s)
}

// Side is the canonical direction of a trade
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Trade is one executed transaction, normalized across venues.
// UnitPrice is always on a 0..1 scale.
type Trade struct {
	ID           string
	Source       Source
	MarketKey    string
	Side         Side
	UnitPrice    float64
	Quantity     float64
	OccurredAt   time.Time
	ActorID      string
	MarketLabel  string
	OutcomeLabel string

	// VenueSide is the direction as the venue reports it (BUY/SELL, YES/NO)
	VenueSide string
	// Exit is set by the venue adapter when the trade closes a position
	Exit bool
}

// NotionalValue returns price x quantity in USD
func (t Trade) NotionalValue() float64 {
	v, _ := decimal.NewFromFloat(t.UnitPrice).
		Mul(decimal.NewFromFloat(t.Quantity)).
		Round(6).
		Float64()
	return v
}

// HasActor reports whether the venue exposed who placed the trade
func (t Trade) HasActor() bool {
	return t.ActorID != ""
}

// IsExit reports whether the trade reduces a position.
// A Kalshi NO purchase is a SELL on the canonical axis but still opens a position.
func (t Trade) IsExit() bool {
	return t.Exit
}

// Action is the venue's own direction label, or the canonical side when unset
func (t Trade) Action() string {
	if t.VenueSide != "" {
		return t.VenueSide
	}
	return string(t.Side)
}

// WithMarketLabel returns a copy carrying the resolved market title
func (t Trade) WithMarketLabel(label string) Trade {
	t.MarketLabel = label
	return t
}

// Validate checks the normalized invariants
func (t Trade) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("trade has empty id")
	}
	if t.Quantity < 0 {
		return fmt.Errorf("trade %s: negative quantity %f", t.ID, t.Quantity)
	}
	if t.UnitPrice < 0 || t.UnitPrice > 1 {
		return fmt.Errorf("trade %s: unit price %f outside 0..1", t.ID, t.UnitPrice)
	}
	if t.Side != SideBuy && t.Side != SideSell {
		return fmt.Errorf("trade %s: invalid side %q", t.ID, t.Side)
	}
	return nil
}

// CentsToProbability converts a 0..100 cent price to the 0..1 scale
func CentsToProbability(cents float64) float64 {
	v, _ := decimal.NewFromFloat(cents).Div(decimal.NewFromInt(100)).Round(6).Float64()
	return v
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
