package main

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/liamashdown/whalewatch/internal/alerts"
	"github.com/liamashdown/whalewatch/internal/config"
	"github.com/liamashdown/whalewatch/internal/cursor"
	"github.com/liamashdown/whalewatch/internal/history"
	"github.com/liamashdown/whalewatch/internal/monitor"
	"github.com/liamashdown/whalewatch/internal/server"
	"github.com/liamashdown/whalewatch/internal/storage"
	"github.com/liamashdown/whalewatch/internal/trade"
	"github.com/liamashdown/whalewatch/internal/venue/kalshi"
	"github.com/liamashdown/whalewatch/internal/venue/polymarket"
	"github.com/sirupsen/logrus"
)

// app holds everything the watch command wires together
type app struct {
	sources     []monitor.Source
	cursors     *cursor.Tracker
	history     history.Sink
	dispatcher  *alerts.Dispatcher
	readyChecks []server.ReadyCheck
	closers     []func() error
	log         *logrus.Logger
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.WithError(err).Warn("Failed to close resource")
		}
	}
}

func build(ctx context.Context, cfg *config.Config, log *logrus.Logger) (_ *app, err error) {
	a := &app{log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	var db *storage.DB
	if cfg.NeedsDatabase() {
		if db, err = openDB(cfg, log); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		a.readyChecks = append(a.readyChecks, db.Ping)
	}

	var store cursor.Store
	switch cfg.CursorBackend {
	case config.BackendMySQL:
		store = cursor.NewDBStore(db)
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.closers = append(a.closers, client.Close)
		if err = client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		a.readyChecks = append(a.readyChecks, func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		store = cursor.NewRedisStore(client)
		log.WithField("addr", cfg.RedisAddr).Info("Redis cursor store connected")
	default:
		store = cursor.NewMemoryStore()
	}
	a.cursors = cursor.NewTracker(store, log)

	if a.history, err = newHistorySink(cfg, db, log); err != nil {
		return nil, err
	}

	if a.dispatcher, err = buildDispatcher(cfg, log); err != nil {
		return nil, err
	}

	for _, s := range cfg.Sources {
		switch s {
		case trade.SourcePolymarket:
			a.sources = append(a.sources, polymarket.NewClient(cfg))
		case trade.SourceKalshi:
			a.sources = append(a.sources, kalshi.NewClient(cfg))
		}
	}

	log.WithFields(logrus.Fields{
		"sources": len(a.sources),
		"senders": a.dispatcher.Len(),
	}).Info("Components initialized")

	return a, nil
}

func openDB(cfg *config.Config, log *logrus.Logger) (*storage.DB, error) {
	db, err := storage.New(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.AutoMigrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run database migrations: %w", err)
	}
	return db, nil
}

func newHistorySink(cfg *config.Config, db *storage.DB, log *logrus.Logger) (history.Sink, error) {
	if cfg.HistoryBackend == config.BackendMySQL {
		return history.NewDBSink(db), nil
	}

	sink, err := history.NewFileSink(cfg.StateDir, log)
	if err != nil {
		return nil, err
	}
	log.WithField("path", sink.Path()).Info("Alert history file ready")
	return sink, nil
}

// openHistory opens the configured sink for a one-off query
func openHistory(_ context.Context, cfg *config.Config, log *logrus.Logger) (history.Sink, func(), error) {
	var db *storage.DB
	closeFn := func() {}

	if cfg.HistoryBackend == config.BackendMySQL {
		var err error
		if db, err = openDB(cfg, log); err != nil {
			return nil, nil, err
		}
		closeFn = func() { db.Close() }
	}

	sink, err := newHistorySink(cfg, db, log)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return sink, closeFn, nil
}

func buildDispatcher(cfg *config.Config, log *logrus.Logger) (*alerts.Dispatcher, error) {
	d := alerts.NewDispatcher(cfg.DeliveryTimeout, log)

	if cfg.HasAlertMode("log") {
		d.Add("log", alerts.NewLogSender(log))
	}

	if cfg.HasAlertMode("webhook") {
		for i, t := range cfg.Targets {
			sender, err := alerts.NewSender(t, cfg.DeliveryTimeout)
			if err != nil {
				return nil, fmt.Errorf("create sender for %s: %w", t.Redacted(), err)
			}
			d.Add(fmt.Sprintf("%s-%d", t.Kind, i+1), sender)
			log.WithField("target", t.Redacted()).Info("Notification target configured")
		}
	}

	if cfg.HasAlertMode("smtp") {
		d.Add("smtp", alerts.NewSMTPSender(
			cfg.SMTPHost,
			cfg.SMTPPort,
			cfg.SMTPUser,
			cfg.SMTPPassword,
			cfg.SMTPFrom,
			cfg.SMTPTo,
		))
	}

	return d, nil
}
