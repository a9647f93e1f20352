package metrics

import (
	"context"

	coremetrics "github.com/kilianp07/marinecast/core/metrics"
	"github.com/kilianp07/marinecast/infra/logger"
	"github.com/kilianp07/marinecast/internal/eventbus"
)

// StartGridPointCollector forwards grid point events from bus to rec until
// ctx is canceled or the bus is closed. The returned channel is closed once
// the collector has stopped.
func StartGridPointCollector(ctx context.Context, bus *eventbus.TypedBus[coremetrics.GridPointEvent], rec coremetrics.GridPointRecorder) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || rec == nil {
		close(done)
		return done
	}
	log := logger.New("grid-collector")
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := rec.RecordGridPoint(ev); err != nil {
					log.Errorf("record grid point: %v", err)
				}
			}
		}
	}()
	return done
}
