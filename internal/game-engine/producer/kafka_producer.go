package producer

import (
	"context"
	"time"

	"github.com/radieske/betbot-engine/internal/shared/kafka"
	"github.com/radieske/betbot-engine/pkg/contracts/events"
)

type MessageWriter = kafka.MessageWriter

// KafkaPublisher publica os eventos do motor; a chave é o id da rodada para manter a ordem por rodada
type KafkaPublisher struct {
	Rounds  MessageWriter
	Bets    MessageWriter
	Settled MessageWriter
	now     func() time.Time
}

func NewKafkaPublisher(rounds, bets, settled MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{Rounds: rounds, Bets: bets, Settled: settled, now: time.Now}
}

func (p *KafkaPublisher) PublishRoundEvent(ctx context.Context, e events.RoundEvent) error {
	e.TsUnixMs = p.now().UnixMilli()
	return kafka.WriteJSON(ctx, p.Rounds, e.RoundID, e)
}

func (p *KafkaPublisher) PublishBetPlaced(ctx context.Context, e events.BetPlaced) error {
	e.TsUnixMs = p.now().UnixMilli()
	return kafka.WriteJSON(ctx, p.Bets, e.RoundID, e)
}

func (p *KafkaPublisher) PublishRoundSettled(ctx context.Context, e events.RoundSettled) error {
	e.TsUnixMs = p.now().UnixMilli()
	return kafka.WriteJSON(ctx, p.Settled, e.RoundID, e)
}
