package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/betbot-engine/internal/game-engine/domain"
)

// RoundCache guarda o snapshot da rodada corrente de cada jogo no Redis
type RoundCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRoundCache(c *redis.Client, ttl time.Duration) *RoundCache {
	return &RoundCache{Client: c, TTL: ttl}
}

// key gera a chave Redis da rodada corrente de um jogo
func key(game string) string { return "round:current:" + game }

func (c *RoundCache) SetCurrent(ctx context.Context, s domain.Snapshot) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, key(s.Game), b, c.TTL).Err()
}

// GetCurrent devolve o snapshot em cache; ausência não é erro
func (c *RoundCache) GetCurrent(ctx context.Context, game string) (domain.Snapshot, bool, error) {
	b, err := c.Client.Get(ctx, key(game)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Snapshot{}, false, nil
	}
	if err != nil {
		return domain.Snapshot{}, false, err
	}
	var s domain.Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return domain.Snapshot{}, false, err
	}
	return s, true, nil
}

func (c *RoundCache) Clear(ctx context.Context, game string) error {
	return c.Client.Del(ctx, key(game)).Err()
}
