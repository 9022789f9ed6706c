package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/liamashdown/whalewatch/internal/config"
	"github.com/liamashdown/whalewatch/internal/metrics"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB wraps the GORM database connection
type DB struct {
	conn *gorm.DB
	log  *logrus.Logger
}

// New creates a new database connection with GORM
func New(cfg *config.Config, log *logrus.Logger) (*DB, error) {
	gormLogger := logger.New(
		&gormLogAdapter{log: log},
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	conn, err := gorm.Open(mysql.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	return newDB(conn, cfg, log)
}

func newDB(conn *gorm.DB, cfg *config.Config, log *logrus.Logger) (*DB, error) {
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.DatabaseMaxConns)
	sqlDB.SetMaxIdleConns(cfg.DatabaseMaxConns / 2)
	sqlDB.SetConnMaxIdleTime(cfg.DatabaseMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("Database connection established")

	return &DB{conn: conn, log: log}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	sqlDB, err := db.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the connection is still usable
func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// AutoMigrate creates or updates the tables
func (db *DB) AutoMigrate() error {
	return db.conn.AutoMigrate(
		&AppState{},
		&Alert{},
	)
}

// GetState retrieves a state value by key
func (db *DB) GetState(ctx context.Context, key string) (string, error) {
	start := time.Now()
	var state AppState
	result := db.conn.WithContext(ctx).Where("state_key = ?", key).First(&state)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		metrics.RecordDatabaseQuery("get_state", time.Since(start), nil)
		return "", nil
	}
	metrics.RecordDatabaseQuery("get_state", time.Since(start), result.Error)
	if result.Error != nil {
		return "", result.Error
	}
	return state.StateValue, nil
}

// SetState sets a state value
func (db *DB) SetState(ctx context.Context, key, value string) error {
	start := time.Now()
	state := AppState{
		StateKey:   key,
		StateValue: value,
		UpdatedTS:  time.Now().Unix(),
	}
	result := db.conn.WithContext(ctx).Save(&state)
	metrics.RecordDatabaseQuery("set_state", time.Since(start), result.Error)
	return result.Error
}

// InsertAlert inserts a new alert record
func (db *DB) InsertAlert(ctx context.Context, alert *Alert) (int64, error) {
	start := time.Now()
	result := db.conn.WithContext(ctx).Create(alert)
	metrics.RecordDatabaseQuery("insert_alert", time.Since(start), result.Error)
	if result.Error != nil {
		return 0, result.Error
	}
	return alert.ID, nil
}

// ListAlerts returns the newest alerts first. An empty platform or "all"
// matches every platform; limit <= 0 means no limit.
func (db *DB) ListAlerts(ctx context.Context, platform string, limit int) ([]Alert, error) {
	start := time.Now()

	q := db.conn.WithContext(ctx).Order("created_ts DESC").Order("id DESC")
	if p := strings.ToLower(strings.TrimSpace(platform)); p != "" && p != "all" {
		q = q.Where("LOWER(platform) = ?", p)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var out []Alert
	result := q.Find(&out)
	metrics.RecordDatabaseQuery("list_alerts", time.Since(start), result.Error)
	return out, result.Error
}

// gormLogAdapter adapts logrus to GORM's logger interface
type gormLogAdapter struct {
	log *logrus.Logger
}

func (l *gormLogAdapter) Printf(format string, args ...interface{}) {
	l.log.Debugf(format, args...)
}
