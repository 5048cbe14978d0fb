package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/playvault/marketplace-backend/internal/metrics"
)

func TestExpirationSweeperRunsOnInterval(t *testing.T) {
	var runs atomic.Int32

	mockTxService := &MockTransactionService{}
	mockTxService.On("ExpireStale", mock.Anything, 30*time.Minute).
		Run(func(mock.Arguments) { runs.Add(1) }).
		Return(2, nil)

	sweeper, err := NewExpirationSweeper(mockTxService, 20*time.Millisecond, 30*time.Minute, metrics.NoopMetricsService{})
	require.NoError(t, err)

	sweeper.Start(context.Background())
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	sweeper.Stop()

	mockTxService.AssertExpectations(t)
}

func TestExpirationSweeperSwallowsFailedRuns(t *testing.T) {
	var runs atomic.Int32

	mockTxService := &MockTransactionService{}
	mockTxService.On("ExpireStale", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { runs.Add(1) }).
		Return(0, errors.New("store unreachable"))

	sweeper, err := NewExpirationSweeper(mockTxService, 15*time.Millisecond, time.Minute, metrics.NoopMetricsService{})
	require.NoError(t, err)

	sweeper.Start(context.Background())
	// A failing run must not stop the loop; later ticks still fire.
	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	sweeper.Stop()
}

func TestExpirationSweeperSkipsOverlappingRuns(t *testing.T) {
	var concurrent, maxConcurrent atomic.Int32

	mockTxService := &MockTransactionService{}
	mockTxService.On("ExpireStale", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			now := concurrent.Add(1)
			defer concurrent.Add(-1)
			if now > maxConcurrent.Load() {
				maxConcurrent.Store(now)
			}
			time.Sleep(50 * time.Millisecond)
		}).
		Return(0, nil)

	mockMetricsService := metrics.NewMockMetricsService()
	mockMetricsService.On("ObserveSweeperRunDuration", mock.Anything).Return()
	mockMetricsService.On("IncSweeperRuns", mock.Anything).Return()

	sweeper, err := NewExpirationSweeper(mockTxService, 10*time.Millisecond, time.Minute, mockMetricsService)
	require.NoError(t, err)

	sweeper.Start(context.Background())
	time.Sleep(120 * time.Millisecond)
	sweeper.Stop()

	require.EqualValues(t, 1, maxConcurrent.Load())
	mockMetricsService.AssertCalled(t, "IncSweeperRuns", "skipped")
}

func TestNewExpirationSweeperDefaults(t *testing.T) {
	sweeper, err := NewExpirationSweeper(&MockTransactionService{}, 0, 0, metrics.NoopMetricsService{})
	require.NoError(t, err)
	require.Equal(t, DefaultSweepInterval, sweeper.interval)
	require.Equal(t, DefaultStalenessAfter, sweeper.staleness)

	_, err = NewExpirationSweeper(nil, time.Hour, time.Minute, metrics.NoopMetricsService{})
	require.Error(t, err)
}
