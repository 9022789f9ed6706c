package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/liamashdown/whalewatch/internal/alerts"
	"github.com/liamashdown/whalewatch/internal/anomaly"
	"github.com/liamashdown/whalewatch/internal/config"
	"github.com/liamashdown/whalewatch/internal/history"
	"github.com/liamashdown/whalewatch/internal/monitor"
	"github.com/liamashdown/whalewatch/internal/server"
	"github.com/liamashdown/whalewatch/internal/trade"
	"github.com/liamashdown/whalewatch/internal/venue/kalshi"
	"github.com/liamashdown/whalewatch/internal/wallet"
	"github.com/sirupsen/logrus"
)

const usage = `whalewatch watches Polymarket and Kalshi for large trades.

Usage:
  whalewatch watch [--threshold USD] [--interval SECONDS]
  whalewatch status
  whalewatch history [--limit N] [--platform all|polymarket|kalshi] [--json]
  whalewatch test-webhook
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]

	// Only the long-running watcher logs to stdout; the other commands print results there
	log := newLogger(os.Stderr)
	if cmd == "watch" {
		log.SetOutput(os.Stdout)
	}

	var err error
	switch cmd {
	case "watch":
		err = runWatch(log, args)
	case "status":
		err = runStatus(log, args)
	case "history":
		err = runHistory(log, args)
	case "test-webhook":
		err = runTestWebhook(log, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		log.WithError(err).WithField("command", cmd).Error("Command failed")
		os.Exit(1)
	}
}

func newLogger(out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(out)
	log.SetLevel(logrus.InfoLevel)
	return log
}

func loadConfig(log *logrus.Logger) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("log_level", cfg.LogLevel).Warn("Unknown LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	return cfg, nil
}

func runWatch(log *logrus.Logger, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	threshold := fs.Float64("threshold", 0, "minimum trade value in USD (default THRESHOLD_USD)")
	interval := fs.Int("interval", 0, "poll interval in seconds (default POLL_INTERVAL_SEC)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	if *threshold > 0 {
		cfg.ThresholdUSD = *threshold
	}
	if *interval > 0 {
		cfg.PollInterval = time.Duration(*interval) * time.Second
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"environment":   cfg.Environment,
		"threshold_usd": cfg.ThresholdUSD,
		"interval":      cfg.PollInterval.String(),
		"sources":       cfg.Sources,
		"alert_mode":    cfg.AlertMode,
		"history":       cfg.HistoryBackend,
		"cursor":        cfg.CursorBackend,
	}).Info("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	mon := monitor.New(cfg, app.sources, app.cursors, wallet.NewTracker(cfg.MaxTrackedActors), app.history, app.dispatcher, log)

	if cfg.HTTPPort > 0 {
		srv := server.New(cfg.HTTPPort, mon, app.history, log, app.readyChecks...)
		go func() {
			if err := srv.ListenAndServe(); err != nil {
				log.WithError(err).Error("HTTP server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.WithError(err).Warn("HTTP server shutdown failed")
			}
		}()
	}

	err = mon.Run(ctx)

	log.Info("Waiting for in-flight alert deliveries")
	app.dispatcher.Wait()
	log.Info("Graceful shutdown complete")

	return err
}

func runStatus(log *logrus.Logger, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "print as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	st := monitor.ConfigStatus(cfg)

	if *asJSON {
		return printJSON(os.Stdout, st)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintf(w, "Environment:\t%s\n", st.Environment)
	fmt.Fprintf(w, "Threshold:\t$%.0f\n", st.ThresholdUSD)
	fmt.Fprintf(w, "Poll interval:\t%s\n", st.PollInterval)
	for _, s := range st.Sources {
		fmt.Fprintf(w, "%s:\t%s\n", s.Name, s.Access)
	}
	fmt.Fprintf(w, "Alert modes:\t%s\n", strings.Join(st.AlertModes, ", "))
	if len(st.Targets) == 0 {
		fmt.Fprintf(w, "Webhook targets:\tnone\n")
	}
	for _, t := range st.Targets {
		fmt.Fprintf(w, "Webhook target:\t%s\n", t)
	}
	fmt.Fprintf(w, "History backend:\t%s\n", st.HistoryBackend)
	fmt.Fprintf(w, "Cursor backend:\t%s\n", st.CursorBackend)
	return w.Flush()
}

func runHistory(log *logrus.Logger, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "number of alerts to show")
	platform := fs.String("platform", "all", "all, polymarket or kalshi")
	asJSON := fs.Bool("json", false, "print as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if p := strings.ToLower(*platform); p != "all" {
		if _, err := trade.ParseSource(p); err != nil {
			return err
		}
	}

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	ctx := context.Background()
	sink, closeFn, err := openHistory(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeFn()

	recs, err := sink.Query(ctx, history.Filter{Platform: *platform, Limit: *limit})
	if err != nil {
		return fmt.Errorf("query history: %w", err)
	}

	if *asJSON {
		if recs == nil {
			recs = []*alerts.AlertRecord{}
		}
		return printJSON(os.Stdout, recs)
	}

	if len(recs) == 0 {
		fmt.Println("No alerts recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tPLATFORM\tACTION\tVALUE\tPRICE\tMARKET\tANOMALIES")
	for _, r := range recs {
		fmt.Fprintf(w, "%s\t%s\t%s\t$%.0f\t%d%%\t%s\t%s\n",
			r.TradeTime.Local().Format("2006-01-02 15:04:05"),
			r.Platform,
			r.Action,
			r.Value,
			r.PricePercent(),
			shorten(r.MarketTitle, 50),
			strings.Join(r.AnomalyTags, ","),
		)
	}
	return w.Flush()
}

func runTestWebhook(log *logrus.Logger, args []string) error {
	fs := flag.NewFlagSet("test-webhook", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	dispatcher, err := buildDispatcher(cfg, log)
	if err != nil {
		return err
	}
	if dispatcher.Len() == 0 {
		return fmt.Errorf("no notification targets configured")
	}

	ctx := context.Background()
	failures := 0
	for _, rec := range testAlerts(cfg.Environment) {
		for _, out := range dispatcher.Deliver(ctx, rec) {
			status := "ok"
			if out.Err != nil {
				status = "FAILED: " + out.Err.Error()
				failures++
			}
			fmt.Printf("%-8s %-12s %-20s attempts=%d format=%s %s\n",
				rec.Platform, rec.AlertType, out.Sender, out.Attempts, out.Format, status)
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d test deliveries failed", failures)
	}
	return nil
}

// testAlerts builds one entry alert with actor context and one exit alert without
func testAlerts(environment string) []*alerts.AlertRecord {
	now := time.Now().UTC()

	buy := trade.Trade{
		ID:           "test-polymarket",
		Source:       trade.SourcePolymarket,
		MarketKey:    "0xtest",
		Side:         trade.SideBuy,
		UnitPrice:    0.72,
		Quantity:     100000,
		OccurredAt:   now,
		ActorID:      "0x742d35cc6634c0532925a3b844bc9e7595f8fe21",
		MarketLabel:  "Test Market [whalewatch] - Will this alert arrive?",
		OutcomeLabel: "Yes",
	}
	actor := &wallet.Snapshot{
		ActorID:         buy.ActorID,
		TxCountLastHour: 2,
		TxCountLastDay:  5,
		VolumeLastHour:  125000,
		VolumeLastDay:   380000,
		IsRepeatActor:   true,
		IsHeavyActor:    true,
		LastSeen:        now,
	}

	ticker := "KXNHLGAME-26JAN08ANACAR-CAR"
	sell := trade.Trade{
		ID:           "test-kalshi",
		Source:       trade.SourceKalshi,
		MarketKey:    ticker,
		Side:         trade.SideSell,
		VenueSide:    "SELL",
		Exit:         true,
		UnitPrice:    0.35,
		Quantity:     150000,
		OccurredAt:   now,
		MarketLabel:  "Test Market (whalewatch)",
		OutcomeLabel: kalshi.DescribeTicker(ticker, trade.SideSell),
	}

	return []*alerts.AlertRecord{
		alerts.NewAlertRecord(buy, actor, anomaly.Classify(buy, actor), environment),
		alerts.NewAlertRecord(sell, nil, anomaly.Classify(sell, nil), environment),
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
