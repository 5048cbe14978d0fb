package metrics

import (
	"strconv"

	"github.com/dlmiddlecote/sqlstats"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
)

type MetricsService interface {
	GetRegistry() *prometheus.Registry

	// HTTP Request Metrics
	IncNumRequests(endpoint, method string, statusCode int)
	ObserveRequestDuration(endpoint, method string, duration float64)

	// DB Query Metrics
	ObserveDBQueryDuration(queryType, table string, duration float64)
	IncDBQuery(queryType, table string)
	IncDBQueryError(queryType, table, errorType string)
	ObserveDBBatchSize(operation, table string, size int)

	// Transaction Lifecycle Metrics
	IncTransactionTransition(toStatus string)

	// Query Guard Metrics
	ObserveQueryComplexity(complexity int)
	ObserveQueryDepth(depth int)
	IncGuardRejection(reason string)

	// Sweeper Metrics
	ObserveSweeperRunDuration(duration float64)
	IncSweeperRuns(outcome string)
	IncTransactionsExpired(count int)

	// Notification Metrics
	IncNotificationDelivery(kind, sink string, success bool)
}

type metricsService struct {
	registry *prometheus.Registry
	db       *sqlx.DB

	numRequestsTotal *prometheus.CounterVec
	requestsDuration *prometheus.SummaryVec

	dbQueryDuration *prometheus.SummaryVec
	dbQueriesTotal  *prometheus.CounterVec
	dbQueryErrors   *prometheus.CounterVec
	dbBatchSize     *prometheus.HistogramVec

	transactionTransitions *prometheus.CounterVec

	queryComplexity prometheus.Histogram
	queryDepth      prometheus.Histogram
	guardRejections *prometheus.CounterVec

	sweeperRunDuration  prometheus.Histogram
	sweeperRuns         *prometheus.CounterVec
	transactionsExpired prometheus.Counter

	notificationDeliveries *prometheus.CounterVec
}

// NewMetricsService creates a new metrics service with all the
// marketplace metrics registered, plus the sql.DBStats collector for
// the given connection pool.
func NewMetricsService(db *sqlx.DB) MetricsService {
	m := &metricsService{
		registry: prometheus.NewRegistry(),
		db:       db,
	}

	m.numRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"endpoint", "method", "status_code"})
	m.requestsDuration = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name: "http_request_duration_seconds",
		Help: "Duration of HTTP requests in seconds",
	}, []string{"endpoint", "method"})

	m.dbQueryDuration = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name: "db_query_duration_seconds",
		Help: "Duration of DB queries in seconds",
	}, []string{"query_type", "table"})
	m.dbQueriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "db_queries_total",
		Help: "Total number of DB queries",
	}, []string{"query_type", "table"})
	m.dbQueryErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "db_query_errors_total",
		Help: "Total number of DB query errors",
	}, []string{"query_type", "table", "error_type"})
	m.dbBatchSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_batch_size",
		Help:    "Number of rows affected by batch DB operations",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	}, []string{"operation", "table"})

	m.transactionTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "purchase_transaction_transitions_total",
		Help: "Total number of purchase transaction status transitions",
	}, []string{"to_status"})

	m.queryComplexity = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "listing_query_complexity",
		Help:    "Estimated complexity of incoming listing queries",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})
	m.queryDepth = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "listing_query_depth",
		Help:    "Estimated nesting depth of incoming listing queries",
		Buckets: prometheus.LinearBuckets(1, 2, 10),
	})
	m.guardRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "listing_query_guard_rejections_total",
		Help: "Total number of queries rejected by the query guard",
	}, []string{"reason"})

	m.sweeperRunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "sweeper_run_duration_seconds",
		Help: "Duration of expiration sweeper runs in seconds",
	})
	m.sweeperRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sweeper_runs_total",
		Help: "Total number of expiration sweeper runs",
	}, []string{"outcome"})
	m.transactionsExpired = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sweeper_transactions_expired_total",
		Help: "Total number of transactions expired by the sweeper",
	})

	m.notificationDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_deliveries_total",
		Help: "Total number of notification delivery attempts",
	}, []string{"kind", "sink", "success"})

	m.registerMetrics()
	return m
}

func (m *metricsService) registerMetrics() {
	if m.db != nil {
		collector := sqlstats.NewStatsCollector("marketplace_db", m.db)
		m.registry.MustRegister(collector)
	}
	m.registry.MustRegister(
		m.numRequestsTotal, m.requestsDuration,
		m.dbQueryDuration, m.dbQueriesTotal, m.dbQueryErrors, m.dbBatchSize,
		m.transactionTransitions,
		m.queryComplexity, m.queryDepth, m.guardRejections,
		m.sweeperRunDuration, m.sweeperRuns, m.transactionsExpired,
		m.notificationDeliveries,
	)
}

func (m *metricsService) GetRegistry() *prometheus.Registry {
	return m.registry
}

func (m *metricsService) IncNumRequests(endpoint, method string, statusCode int) {
	m.numRequestsTotal.WithLabelValues(endpoint, method, strconv.Itoa(statusCode)).Inc()
}

func (m *metricsService) ObserveRequestDuration(endpoint, method string, duration float64) {
	m.requestsDuration.WithLabelValues(endpoint, method).Observe(duration)
}

func (m *metricsService) ObserveDBQueryDuration(queryType, table string, duration float64) {
	m.dbQueryDuration.WithLabelValues(queryType, table).Observe(duration)
}

func (m *metricsService) IncDBQuery(queryType, table string) {
	m.dbQueriesTotal.WithLabelValues(queryType, table).Inc()
}

func (m *metricsService) IncDBQueryError(queryType, table, errorType string) {
	m.dbQueryErrors.WithLabelValues(queryType, table, errorType).Inc()
}

func (m *metricsService) ObserveDBBatchSize(operation, table string, size int) {
	m.dbBatchSize.WithLabelValues(operation, table).Observe(float64(size))
}

func (m *metricsService) IncTransactionTransition(toStatus string) {
	m.transactionTransitions.WithLabelValues(toStatus).Inc()
}

func (m *metricsService) ObserveQueryComplexity(complexity int) {
	m.queryComplexity.Observe(float64(complexity))
}

func (m *metricsService) ObserveQueryDepth(depth int) {
	m.queryDepth.Observe(float64(depth))
}

func (m *metricsService) IncGuardRejection(reason string) {
	m.guardRejections.WithLabelValues(reason).Inc()
}

func (m *metricsService) ObserveSweeperRunDuration(duration float64) {
	m.sweeperRunDuration.Observe(duration)
}

func (m *metricsService) IncSweeperRuns(outcome string) {
	m.sweeperRuns.WithLabelValues(outcome).Inc()
}

func (m *metricsService) IncTransactionsExpired(count int) {
	m.transactionsExpired.Add(float64(count))
}

func (m *metricsService) IncNotificationDelivery(kind, sink string, success bool) {
	m.notificationDeliveries.WithLabelValues(kind, sink, strconv.FormatBool(success)).Inc()
}
