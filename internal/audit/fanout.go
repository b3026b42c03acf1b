package audit

import (
	"context"

	"laporfasilitas.org/internal/obs"
	"laporfasilitas.org/internal/stream"
)

// LocalFanout delivers committed entries to in-process subscribers.
type LocalFanout struct {
	hub *stream.Hub[Entry]
}

var _ Fanout = (*LocalFanout)(nil)

// NewLocalFanout creates an empty fan-out hub.
func NewLocalFanout() *LocalFanout {
	return &LocalFanout{hub: stream.NewHub[Entry]()}
}

func (f *LocalFanout) Publish(e Entry) {
	f.hub.Publish(e)
}

func (f *LocalFanout) Subscribe(ctx context.Context) <-chan Entry {
	obs.StreamSubscriberGauge(1)
	ch := f.hub.Subscribe(ctx)
	go func() {
		<-ctx.Done()
		obs.StreamSubscriberGauge(-1)
	}()
	return ch
}
