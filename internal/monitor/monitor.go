package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/liamashdown/whalewatch/internal/alerts"
	"github.com/liamashdown/whalewatch/internal/anomaly"
	"github.com/liamashdown/whalewatch/internal/config"
	"github.com/liamashdown/whalewatch/internal/cursor"
	"github.com/liamashdown/whalewatch/internal/history"
	"github.com/liamashdown/whalewatch/internal/metrics"
	"github.com/liamashdown/whalewatch/internal/trade"
	"github.com/liamashdown/whalewatch/internal/wallet"
	"github.com/sirupsen/logrus"
)

// Trade outcomes recorded per source
const (
	outcomeInvalid        = "invalid"
	outcomeBelowThreshold = "below_threshold"
	outcomeAlerted        = "alerted"
	outcomeFailed         = "failed"
)

// Source is a venue feed returning its most recent trades, newest first
type Source interface {
	Name() trade.Source
	FetchLatestTrades(ctx context.Context) ([]trade.Trade, error)
}

// LabelResolver looks up a human market title. Sources that implement it
// get their unlabeled trades resolved before alerting.
type LabelResolver interface {
	Describe(ctx context.Context, marketKey string) (string, bool)
}

// Dispatcher hands an alert off for delivery without blocking
type Dispatcher interface {
	Dispatch(ctx context.Context, rec *alerts.AlertRecord)
}

// Monitor runs the poll loop over every configured source
type Monitor struct {
	cfg        *config.Config
	sources    []Source
	cursors    *cursor.Tracker
	wallets    *wallet.Tracker
	history    history.Sink
	dispatcher Dispatcher
	log        *logrus.Logger

	mu           sync.Mutex
	ticks        uint64
	lastTick     time.Time
	alertsRaised uint64
	lastErrors   map[trade.Source]string
}

// New creates a monitor. history may be nil to skip the alert log.
func New(
	cfg *config.Config,
	sources []Source,
	cursors *cursor.Tracker,
	wallets *wallet.Tracker,
	sink history.Sink,
	dispatcher Dispatcher,
	log *logrus.Logger,
) *Monitor {
	return &Monitor{
		cfg:        cfg,
		sources:    sources,
		cursors:    cursors,
		wallets:    wallets,
		history:    sink,
		dispatcher: dispatcher,
		log:        log,
		lastErrors: make(map[trade.Source]string),
	}
}

// Run polls immediately, then on every interval until ctx is cancelled
func (m *Monitor) Run(ctx context.Context) error {
	if m.cfg.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", m.cfg.PollInterval)
	}

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	var sweepC <-chan time.Time
	if m.cfg.WalletSweepEvery > 0 {
		sweep := time.NewTicker(m.cfg.WalletSweepEvery)
		defer sweep.Stop()
		sweepC = sweep.C
	}

	m.log.WithFields(logrus.Fields{
		"sources":       m.cfg.Sources,
		"threshold_usd": m.cfg.ThresholdUSD,
		"interval":      m.cfg.PollInterval.String(),
	}).Info("Starting trade monitoring loop")

	m.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			m.log.Info("Monitoring loop stopped")
			return nil
		case <-ticker.C:
			m.Tick(ctx)
		case now := <-sweepC:
			m.Sweep(now)
		}
	}
}

// Tick polls every source once, in configured order
func (m *Monitor) Tick(ctx context.Context) {
	metrics.PollTicks.Inc()

	m.mu.Lock()
	m.ticks++
	m.lastTick = time.Now().UTC()
	m.mu.Unlock()

	for _, src := range m.sources {
		if ctx.Err() != nil {
			return
		}
		m.pollSource(ctx, src)
	}

	metrics.TrackedActors.Set(float64(m.wallets.Len()))
}

// Sweep drops actors with no activity inside the tracking window
func (m *Monitor) Sweep(now time.Time) {
	removed := m.wallets.Sweep(now)
	metrics.ActorsSwept.Add(float64(removed))
	metrics.TrackedActors.Set(float64(m.wallets.Len()))

	if removed > 0 {
		m.log.WithFields(logrus.Fields{
			"removed":   removed,
			"remaining": m.wallets.Len(),
		}).Debug("Swept idle actors")
	}
}

func (m *Monitor) pollSource(ctx context.Context, src Source) {
	name := src.Name()

	defer func() {
		if r := recover(); r != nil {
			m.log.WithFields(logrus.Fields{
				"source": name,
				"panic":  r,
			}).Error("Recovered panic while polling source")
			m.setError(name, fmt.Errorf("panic: %v", r))
		}
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, m.cfg.FetchTimeout)
	batch, err := src.FetchLatestTrades(fetchCtx)
	cancel()
	if err != nil {
		m.log.WithError(err).WithField("source", name).Warn("Failed to fetch trades")
		m.setError(name, err)
		return
	}
	m.setError(name, nil)

	unseen, newest := m.cursors.Unseen(ctx, name, batch)

	m.log.WithFields(logrus.Fields{
		"source":  name,
		"fetched": len(batch),
		"unseen":  len(unseen),
	}).Debug("Fetched trades")

	resolver, _ := src.(LabelResolver)
	for _, t := range unseen {
		m.processTrade(ctx, t, resolver)
	}

	m.cursors.Commit(ctx, name, newest)
}

func (m *Monitor) processTrade(ctx context.Context, t trade.Trade, resolver LabelResolver) {
	source := string(t.Source)

	defer func() {
		if r := recover(); r != nil {
			m.log.WithFields(logrus.Fields{
				"source":   source,
				"trade_id": t.ID,
				"panic":    r,
			}).Error("Recovered panic while processing trade")
			metrics.RecordTrade(source, outcomeFailed)
		}
	}()

	if err := t.Validate(); err != nil {
		m.log.WithError(err).WithField("source", source).Warn("Skipping invalid trade")
		metrics.RecordTrade(source, outcomeInvalid)
		return
	}

	if t.NotionalValue() < m.cfg.ThresholdUSD {
		metrics.RecordTrade(source, outcomeBelowThreshold)
		return
	}

	if t.MarketLabel == "" && resolver != nil {
		if label, ok := resolver.Describe(ctx, t.MarketKey); ok {
			t = t.WithMarketLabel(label)
		}
	}

	var actor *wallet.Snapshot
	if t.HasActor() {
		snap := m.wallets.RecordAndClassify(t.ActorID, t)
		actor = &snap
	}

	tags := anomaly.Classify(t, actor)
	rec := alerts.NewAlertRecord(t, actor, tags, m.cfg.Environment)

	metrics.RecordTrade(source, outcomeAlerted)
	metrics.RecordAlert(source, string(rec.AlertType), rec.AnomalyTags)

	m.mu.Lock()
	m.alertsRaised++
	m.mu.Unlock()

	fields := logrus.Fields{
		"alert_id":  rec.ID,
		"platform":  rec.Platform,
		"action":    rec.Action,
		"value_usd": rec.Value,
		"market":    rec.MarketTitle,
		"anomalies": rec.AnomalyTags,
	}
	if actor != nil {
		fields["wallet"] = rec.WalletShort()
		fields["wallet_status"] = actor.Status()
	}
	m.log.WithFields(fields).Info("Whale trade detected")

	if m.history != nil {
		err := m.history.Append(ctx, rec)
		metrics.RecordHistoryWrite(err)
		if err != nil {
			m.log.WithError(err).WithField("alert_id", rec.ID).Warn("Failed to append alert history")
		}
	}

	m.dispatcher.Dispatch(ctx, rec)
}

func (m *Monitor) setError(source trade.Source, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.lastErrors, source)
		return
	}
	m.lastErrors[source] = err.Error()
}
