package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Poll loop metrics
	PollTicks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "whalewatch_poll_ticks_total",
			Help: "Total number of poll loop iterations",
		},
	)

	SourceFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whalewatch_source_fetch_total",
			Help: "Total number of trade feed fetches",
		},
		[]string{"source", "status"}, // polymarket/kalshi, success/error/panic
	)

	SourceFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "whalewatch_source_fetch_duration_seconds",
			Help:    "Duration of trade feed fetches",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"source"},
	)

	TradesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whalewatch_trades_processed_total",
			Help: "Total number of unseen trades evaluated",
		},
		[]string{"source", "status"}, // below_threshold, alerted, invalid
	)

	// Alert metrics
	AlertsTriggered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whalewatch_alerts_triggered_total",
			Help: "Total number of whale alerts raised",
		},
		[]string{"source", "alert_type"},
	)

	AnomaliesFlagged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whalewatch_anomalies_flagged_total",
			Help: "Total number of anomaly tags attached to alerts",
		},
		[]string{"tag"},
	)

	AlertDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whalewatch_alert_deliveries_total",
			Help: "Total number of alert deliveries by sender",
		},
		[]string{"sender", "status"}, // success/error
	)

	AlertDeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "whalewatch_alert_delivery_duration_seconds",
			Help:    "Duration of alert deliveries",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"sender"},
	)

	WebhookFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "whalewatch_webhook_fallbacks_total",
			Help: "Total number of webhook deliveries retried as form data",
		},
	)

	HistoryWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whalewatch_history_writes_total",
			Help: "Total number of alert history writes",
		},
		[]string{"status"},
	)

	// Actor tracking
	TrackedActors = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "whalewatch_tracked_actors",
			Help: "Number of actors currently held in the activity tracker",
		},
	)

	ActorsSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "whalewatch_actors_swept_total",
			Help: "Total number of stale actors removed by the sweep",
		},
	)

	// Database metrics
	DatabaseQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whalewatch_database_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "whalewatch_database_query_duration_seconds",
			Help:    "Duration of database queries",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// System health
	HealthChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whalewatch_health_checks_total",
			Help: "Total number of health check requests",
		},
		[]string{"status"}, // healthy/unhealthy
	)
)

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordFetch records a trade feed fetch
func RecordFetch(source string, duration time.Duration, err error) {
	SourceFetches.WithLabelValues(source, status(err)).Inc()
	SourceFetchDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordTrade records the outcome of evaluating one trade
func RecordTrade(source, outcome string) {
	TradesProcessed.WithLabelValues(source, outcome).Inc()
}

// RecordAlert records a raised alert and its anomaly tags
func RecordAlert(source, alertType string, tags []string) {
	AlertsTriggered.WithLabelValues(source, alertType).Inc()
	for _, tag := range tags {
		AnomaliesFlagged.WithLabelValues(tag).Inc()
	}
}

// RecordDelivery records one sender's delivery attempt
func RecordDelivery(sender string, duration time.Duration, err error) {
	AlertDeliveries.WithLabelValues(sender, status(err)).Inc()
	AlertDeliveryDuration.WithLabelValues(sender).Observe(duration.Seconds())
}

// RecordHistoryWrite records an alert history append
func RecordHistoryWrite(err error) {
	HistoryWrites.WithLabelValues(status(err)).Inc()
}

// RecordDatabaseQuery records database query metrics
func RecordDatabaseQuery(operation string, duration time.Duration, err error) {
	DatabaseQueries.WithLabelValues(operation, status(err)).Inc()
	DatabaseQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordHealthCheck records health check status
func RecordHealthCheck(healthy bool) {
	s := "healthy"
	if !healthy {
		s = "unhealthy"
	}
	HealthChecks.WithLabelValues(s).Inc()
}
