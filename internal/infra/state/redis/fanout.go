package redisstate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/ayushanand27/xhire/internal/dto"
)

// RedisFanout relays room broadcasts between server processes over Redis pub/sub.
type RedisFanout struct {
	client *redis.Client
	keys   keys
}

func NewRedisFanout(client *redis.Client, keyPrefix string) *RedisFanout {
	if client == nil {
		panic("redis client cannot be nil for RedisFanout")
	}
	return &RedisFanout{client: client, keys: newKeys(keyPrefix)}
}

// Publish sends msg to every process subscribed to the room channel.
func (f *RedisFanout) Publish(ctx context.Context, msg dto.FanoutMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("redis: marshal fan-out message for room %d: %w", msg.RoomID, err)
	}
	channel := f.keys.roomChannel(msg.RoomID)
	if err := f.client.Publish(ctx, channel, payload).Err(); err != nil {
		logrus.WithFields(logrus.Fields{
			"channel":      channel,
			"payload_size": len(payload),
			"room_id":      msg.RoomID,
		}).WithError(err).Error("Redis Publish failed")
		return fmt.Errorf("redis: publish to channel %s: %w", channel, err)
	}
	return nil
}

// Subscribe delivers every room message to handle until ctx is cancelled.
func (f *RedisFanout) Subscribe(ctx context.Context, handle func(dto.FanoutMessage)) error {
	sub := f.client.PSubscribe(ctx, f.keys.roomChannelPattern())
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis: subscribe to %s: %w", f.keys.roomChannelPattern(), err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var msg dto.FanoutMessage
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				logrus.WithError(err).WithField("channel", m.Channel).Warn("Dropping malformed fan-out message")
				continue
			}
			handle(msg)
		}
	}
}
