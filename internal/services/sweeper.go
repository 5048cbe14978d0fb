package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/playvault/marketplace-backend/internal/metrics"
)

const (
	DefaultSweepInterval  = time.Hour
	DefaultStalenessAfter = 30 * time.Minute
)

// ExpirationSweeper periodically expires transactions stuck in PENDING
// past the staleness threshold. It owns its own ticker loop; runs that
// overlap the interval are skipped, not queued. A failed run is logged
// and abandoned until the next tick.
type ExpirationSweeper struct {
	transactionService TransactionService
	interval           time.Duration
	staleness          time.Duration
	metricsService     metrics.MetricsService

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewExpirationSweeper(transactionService TransactionService, interval, staleness time.Duration, metricsService metrics.MetricsService) (*ExpirationSweeper, error) {
	if transactionService == nil {
		return nil, errors.New("transaction service cannot be nil")
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if staleness <= 0 {
		staleness = DefaultStalenessAfter
	}
	if metricsService == nil {
		metricsService = metrics.NoopMetricsService{}
	}

	return &ExpirationSweeper{
		transactionService: transactionService,
		interval:           interval,
		staleness:          staleness,
		metricsService:     metricsService,
	}, nil
}

// Start launches the sweep loop. The first sweep runs immediately, then
// on every interval tick until Stop is called or ctx is cancelled.
func (s *ExpirationSweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.spawnSweep(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.spawnSweep(ctx)
			}
		}
	}()
}

// Stop cancels the loop and waits for an in-flight sweep to finish.
func (s *ExpirationSweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// spawnSweep runs one sweep on its own goroutine so a slow run cannot
// stall the ticker loop; the overlap guard in sweep drops the tick
// instead.
func (s *ExpirationSweeper) spawnSweep(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sweep(ctx)
	}()
}

func (s *ExpirationSweeper) sweep(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		logrus.Warn("skipping expiration sweep, previous run still in progress")
		s.metricsService.IncSweeperRuns("skipped")
		return
	}
	defer s.running.Store(false)

	start := time.Now()
	count, err := s.transactionService.ExpireStale(ctx, s.staleness)
	s.metricsService.ObserveSweeperRunDuration(time.Since(start).Seconds())
	if err != nil {
		logrus.WithError(err).Error("expiration sweep failed")
		s.metricsService.IncSweeperRuns("error")
		return
	}
	s.metricsService.IncSweeperRuns("success")

	if count == 0 {
		logrus.Debug("expiration sweep found no stale transactions")
		return
	}
	logrus.WithField("expired", count).Info("expiration sweep reclaimed stale transactions")
}
