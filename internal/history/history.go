package history

import (
	"context"
	"strings"

	"github.com/liamashdown/whalewatch/internal/alerts"
)

// FileName is the history file created inside the state directory
const FileName = "alert_history.jsonl"

// Filter narrows a history query
type Filter struct {
	// Platform is "all", empty, or a venue name; matched case-insensitively
	Platform string
	// Limit caps the result count; <= 0 returns everything
	Limit int
}

func (f Filter) matches(rec *alerts.AlertRecord) bool {
	p := strings.ToLower(strings.TrimSpace(f.Platform))
	if p == "" || p == "all" {
		return true
	}
	return strings.ToLower(rec.Platform) == p
}

// Sink persists raised alerts and answers history queries
type Sink interface {
	Append(ctx context.Context, rec *alerts.AlertRecord) error
	// Query returns matching alerts, newest first
	Query(ctx context.Context, f Filter) ([]*alerts.AlertRecord, error)
}
