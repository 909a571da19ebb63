package cache

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/betbot-engine/pkg/contracts/events"
)

// Broadcaster publica atualizações de rodada no Redis Pub/Sub (consumido pelo round-feed)
type Broadcaster struct {
	r       *redis.Client
	channel string
}

func NewBroadcaster(r *redis.Client, channel string) *Broadcaster {
	return &Broadcaster{r: r, channel: channel}
}

func (b *Broadcaster) Publish(ctx context.Context, ev events.RoundEvent) error {
	payload, err := json.Marshal(events.RoundUpdate{Game: ev.Game, Payload: ev})
	if err != nil {
		return err
	}
	return b.r.Publish(ctx, b.channel, payload).Err()
}
