package monitor

import (
	"time"

	"github.com/liamashdown/whalewatch/internal/config"
	"github.com/liamashdown/whalewatch/internal/trade"
)

// SourceStatus describes one polled venue
type SourceStatus struct {
	Name      string `json:"name"`
	Access    string `json:"access"`
	Cursor    string `json:"cursor,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

// Status is a point-in-time view of configuration and loop counters
type Status struct {
	Environment    string         `json:"environment"`
	ThresholdUSD   float64        `json:"threshold_usd"`
	PollInterval   string         `json:"poll_interval"`
	AlertModes     []string       `json:"alert_modes"`
	Targets        []string       `json:"targets,omitempty"`
	HistoryBackend string         `json:"history_backend"`
	CursorBackend  string         `json:"cursor_backend"`
	Sources        []SourceStatus `json:"sources"`

	Running       bool       `json:"running"`
	Ticks         uint64     `json:"ticks"`
	LastTick      *time.Time `json:"last_tick,omitempty"`
	AlertsRaised  uint64     `json:"alerts_raised"`
	TrackedActors int        `json:"tracked_actors"`
}

// ConfigStatus summarizes cfg without a running loop. Webhook targets are
// redacted so the result is safe to print.
func ConfigStatus(cfg *config.Config) Status {
	st := Status{
		Environment:    cfg.Environment,
		ThresholdUSD:   cfg.ThresholdUSD,
		PollInterval:   cfg.PollInterval.String(),
		AlertModes:     cfg.AlertModes(),
		HistoryBackend: cfg.HistoryBackend,
		CursorBackend:  cfg.CursorBackend,
	}

	for _, t := range cfg.Targets {
		st.Targets = append(st.Targets, t.Redacted())
	}

	for _, s := range cfg.Sources {
		st.Sources = append(st.Sources, SourceStatus{
			Name:   s.DisplayName(),
			Access: access(cfg, s),
		})
	}

	return st
}

// Status returns configuration plus the loop's runtime counters
func (m *Monitor) Status() Status {
	st := ConfigStatus(m.cfg)
	cursors := m.cursors.Snapshot()

	m.mu.Lock()
	defer m.mu.Unlock()

	st.Running = m.ticks > 0
	st.Ticks = m.ticks
	st.AlertsRaised = m.alertsRaised
	if !m.lastTick.IsZero() {
		last := m.lastTick
		st.LastTick = &last
	}
	st.TrackedActors = m.wallets.Len()

	for i, s := range m.cfg.Sources {
		st.Sources[i].Cursor = cursors[s]
		st.Sources[i].LastError = m.lastErrors[s]
	}

	return st
}

func access(cfg *config.Config, s trade.Source) string {
	switch s {
	case trade.SourceKalshi:
		if cfg.KalshiAPIKeyID != "" {
			return "api key configured"
		}
		return "public"
	default:
		return "public"
	}
}
