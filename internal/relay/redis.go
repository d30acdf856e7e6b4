package relay

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisChannel = "epicvibe:relay"

type redisMessage struct {
	Origin  string          `json:"origin"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// RedisFanout shares relay traffic between instances through a Redis pub/sub
// channel. Each instance ignores what it published itself.
type RedisFanout struct {
	rdb    *redis.Client
	hub    *Hub
	origin string
	logger *slog.Logger
}

func NewRedisFanout(rdb *redis.Client, hub *Hub, logger *slog.Logger) *RedisFanout {
	return &RedisFanout{rdb: rdb, hub: hub, origin: uuid.NewString(), logger: logger}
}

func (f *RedisFanout) Forward(ctx context.Context, topic string, data []byte) error {
	msg, err := json.Marshal(redisMessage{Origin: f.origin, Topic: topic, Payload: data})
	if err != nil {
		return err
	}
	return f.rdb.Publish(ctx, redisChannel, msg).Err()
}

// Run relays messages from other instances to local clients until ctx ends.
func (f *RedisFanout) Run(ctx context.Context) error {
	sub := f.rdb.Subscribe(ctx, redisChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	f.logger.Info("relay fanout subscribed", "channel", redisChannel, "origin", f.origin)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			f.receive(m.Payload)
		}
	}
}

func (f *RedisFanout) receive(payload string) {
	var m redisMessage
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		f.logger.Warn("relay fanout: bad message", "error", err)
		return
	}
	if m.Origin == f.origin {
		return
	}
	f.hub.Deliver(m.Topic, m.Payload)
}
