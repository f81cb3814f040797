package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

// Deliverer receives changes read from the broker
type Deliverer interface {
	Deliver(change *domain.Change)
}

// Broker fans changes out to every service instance over Redis pub/sub
type Broker struct {
	client  *redis.Client
	channel string
	log     *zap.Logger
}

// NewBroker creates a broker on the given pub/sub channel
func NewBroker(client *redis.Client, channel string, log *zap.Logger) *Broker {
	return &Broker{client: client, channel: channel, log: log}
}

// Publish implements domain.ChangePublisher
func (b *Broker) Publish(ctx context.Context, change *domain.Change) error {
	if len(change.UserIDs) == 0 {
		return nil
	}
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to encode change: %w", err)
	}
	return b.client.Publish(ctx, b.channel, data).Err()
}

// Run subscribes to the channel and hands every change to d until ctx is cancelled.
// ready, when non-nil, is closed once the subscription is confirmed.
func (b *Broker) Run(ctx context.Context, d Deliverer, ready chan<- struct{}) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}
	if ready != nil {
		close(ready)
	}
	b.log.Info("change feed subscribed", zap.String("channel", b.channel))

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var change domain.Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				b.log.Warn("discarding malformed change", zap.Error(err))
				continue
			}
			d.Deliver(&change)
		}
	}
}
