package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
)

// MockMetricsService is a mock implementation of MetricsService
type MockMetricsService struct {
	mock.Mock
}

// NewMockMetricsService creates a new mock metrics service
func NewMockMetricsService() *MockMetricsService {
	return &MockMetricsService{}
}

func (m *MockMetricsService) GetRegistry() *prometheus.Registry {
	args := m.Called()
	return args.Get(0).(*prometheus.Registry)
}

func (m *MockMetricsService) IncNumRequests(endpoint, method string, statusCode int) {
	m.Called(endpoint, method, statusCode)
}

func (m *MockMetricsService) ObserveRequestDuration(endpoint, method string, duration float64) {
	m.Called(endpoint, method, duration)
}

func (m *MockMetricsService) ObserveDBQueryDuration(queryType, table string, duration float64) {
	m.Called(queryType, table, duration)
}

func (m *MockMetricsService) IncDBQuery(queryType, table string) {
	m.Called(queryType, table)
}

func (m *MockMetricsService) IncDBQueryError(queryType, table, errorType string) {
	m.Called(queryType, table, errorType)
}

func (m *MockMetricsService) ObserveDBBatchSize(operation, table string, size int) {
	m.Called(operation, table, size)
}

func (m *MockMetricsService) IncTransactionTransition(toStatus string) {
	m.Called(toStatus)
}

func (m *MockMetricsService) ObserveQueryComplexity(complexity int) {
	m.Called(complexity)
}

func (m *MockMetricsService) ObserveQueryDepth(depth int) {
	m.Called(depth)
}

func (m *MockMetricsService) IncGuardRejection(reason string) {
	m.Called(reason)
}

func (m *MockMetricsService) ObserveSweeperRunDuration(duration float64) {
	m.Called(duration)
}

func (m *MockMetricsService) IncSweeperRuns(outcome string) {
	m.Called(outcome)
}

func (m *MockMetricsService) IncTransactionsExpired(count int) {
	m.Called(count)
}

func (m *MockMetricsService) IncNotificationDelivery(kind, sink string, success bool) {
	m.Called(kind, sink, success)
}

var _ MetricsService = (*MockMetricsService)(nil)

// NoopMetricsService discards all observations. Handy default for
// tests that don't assert on metrics.
type NoopMetricsService struct{}

func (NoopMetricsService) GetRegistry() *prometheus.Registry                           { return prometheus.NewRegistry() }
func (NoopMetricsService) IncNumRequests(string, string, int)                          {}
func (NoopMetricsService) ObserveRequestDuration(string, string, float64)              {}
func (NoopMetricsService) ObserveDBQueryDuration(string, string, float64)              {}
func (NoopMetricsService) IncDBQuery(string, string)                                   {}
func (NoopMetricsService) IncDBQueryError(string, string, string)                      {}
func (NoopMetricsService) ObserveDBBatchSize(string, string, int)                      {}
func (NoopMetricsService) IncTransactionTransition(string)                             {}
func (NoopMetricsService) ObserveQueryComplexity(int)                                  {}
func (NoopMetricsService) ObserveQueryDepth(int)                                       {}
func (NoopMetricsService) IncGuardRejection(string)                                    {}
func (NoopMetricsService) ObserveSweeperRunDuration(float64)                           {}
func (NoopMetricsService) IncSweeperRuns(string)                                       {}
func (NoopMetricsService) IncTransactionsExpired(int)                                  {}
func (NoopMetricsService) IncNotificationDelivery(string, string, bool)                {}

var _ MetricsService = (*NoopMetricsService)(nil)
