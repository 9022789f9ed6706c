package main

import (
	"testing"
	"time"

	"github.com/liamashdown/whalewatch/internal/alerts"
	"github.com/liamashdown/whalewatch/internal/anomaly"
	"github.com/liamashdown/whalewatch/internal/config"
	"github.com/liamashdown/whalewatch/internal/trade"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestTestAlerts(t *testing.T) {
	recs := testAlerts("test")
	if len(recs) != 2 {
		t.Fatalf("got %d alerts", len(recs))
	}

	buy, sell := recs[0], recs[1]
	if buy.AlertType != alerts.AlertWhaleEntry || buy.Activity == nil {
		t.Errorf("buy = %+v", buy)
	}
	if buy.Activity.TransactionsLastHour != 2 || buy.Activity.TotalValueDay != 380000 {
		t.Errorf("activity = %+v", buy.Activity)
	}
	if len(buy.AnomalyTags) == 0 || buy.AnomalyTags[0] != string(anomaly.HeavyActor) {
		t.Errorf("buy tags = %v", buy.AnomalyTags)
	}

	if sell.AlertType != alerts.AlertWhaleExit || sell.Activity != nil || sell.WalletID != "" {
		t.Errorf("sell = %+v", sell)
	}
	if sell.Platform != trade.SourceKalshi.DisplayName() {
		t.Errorf("sell platform = %s", sell.Platform)
	}
}

func TestBuildDispatcher(t *testing.T) {
	log, _ := test.NewNullLogger()
	cfg := &config.Config{
		AlertMode:       "log,webhook,smtp",
		DeliveryTimeout: 5 * time.Second,
		SMTPHost:        "smtp.example.com",
		SMTPTo:          []string{"ops@example.com"},
	}
	for _, raw := range []string{"whales", "https://hooks.example.com/x", "https://discord.com/api/webhooks/1/tok"} {
		target, err := alerts.ParseTarget(raw)
		if err != nil {
			t.Fatal(err)
		}
		cfg.Targets = append(cfg.Targets, target)
	}

	d, err := buildDispatcher(cfg, log)
	if err != nil {
		t.Fatalf("buildDispatcher() error = %v", err)
	}
	if d.Len() != 5 {
		t.Errorf("Len() = %d, want log + 3 targets + smtp", d.Len())
	}
}

func TestShorten(t *testing.T) {
	if got := shorten("short", 10); got != "short" {
		t.Errorf("shorten = %q", got)
	}
	if got := shorten("a much longer market title", 10); got != "a much ..." {
		t.Errorf("shorten = %q", got)
	}
}
