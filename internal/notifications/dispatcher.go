package notifications

import (
	"context"
	"time"

	"github.com/alitto/pond/v2"
	log "github.com/sirupsen/logrus"

	"github.com/playvault/marketplace-backend/internal/metrics"
)

const (
	dispatchWorkers = 8
	deliveryTimeout = 10 * time.Second
)

// Dispatcher fans an event out to every configured sink on a bounded
// worker pool. Callers never block on delivery and never observe
// delivery errors; failed deliveries are logged and counted, nothing
// more.
type Dispatcher struct {
	sinks          []Sink
	pool           pond.Pool
	metricsService metrics.MetricsService
}

func NewDispatcher(sinks []Sink, metricsService metrics.MetricsService) *Dispatcher {
	return &Dispatcher{
		sinks:          sinks,
		pool:           pond.NewPool(dispatchWorkers),
		metricsService: metricsService,
	}
}

// Dispatch queues the event for delivery to all sinks and returns
// immediately. The event's timestamp is stamped here if the caller
// left it zero.
func (d *Dispatcher) Dispatch(event Event) {
	if event.EmittedAt.IsZero() {
		event.EmittedAt = time.Now().UTC()
	}

	for _, sink := range d.sinks {
		sink := sink
		d.pool.Submit(func() {
			ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
			defer cancel()

			err := sink.Deliver(ctx, event)
			d.metricsService.IncNotificationDelivery(string(event.Kind), sink.Name(), err == nil)
			if err != nil {
				log.WithFields(log.Fields{
					"kind":      event.Kind,
					"recipient": event.RecipientID,
					"sink":      sink.Name(),
				}).WithError(err).Warn("notification delivery failed")
			}
		})
	}
}

// Close drains in-flight deliveries. Called during graceful shutdown.
func (d *Dispatcher) Close() {
	d.pool.StopAndWait()
}
