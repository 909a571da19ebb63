package auditor

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/betbot-engine/internal/shared/kafka"
	"github.com/radieske/betbot-engine/pkg/contracts/events"
)

type (
	MessageReader = kafka.MessageReader
	MessageWriter = kafka.MessageWriter // DLQ
)

// Processor consome round_settled, confere cada liquidação e manda divergências para a DLQ.
// O offset só é confirmado depois da verificação (ou da escrita na DLQ).
type Processor struct {
	Log     *zap.Logger
	Reader  MessageReader
	DLQ     MessageWriter
	Auditor *Auditor

	RetryDelay time.Duration

	OnConsumed  func() // métricas (counter++)
	OnVerified  func(game string)
	OnViolation func(game string)
	OnError     func(string) // métricas por fase
}

// Run inicia o loop de consumo até ctx ser cancelado
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := kafka.FetchNext(ctx, p.Reader)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // encerra se o contexto for cancelado
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			if !p.sleep(ctx) {
				return ctx.Err()
			}
			continue
		}
		if p.OnConsumed != nil {
			p.OnConsumed()
		}

		// repete a mesma mensagem até auditar; o offset não avança antes disso
		for {
			err := p.handle(ctx, m)
			if err == nil {
				break
			}
			p.Log.Warn("audit failed", zap.ByteString("key", m.Key), zap.Error(err))
			if !p.sleep(ctx) {
				return ctx.Err()
			}
		}

		if err := p.Reader.CommitMessages(ctx, m); err != nil {
			p.Log.Warn("kafka commit failed", zap.Error(err))
			p.fail("commit")
		}
	}
}

// handle audita uma mensagem; devolve erro apenas quando a mensagem deve ser reprocessada
func (p *Processor) handle(ctx context.Context, m kafka.Message) error {
	var ev events.RoundSettled
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		p.Log.Warn("invalid message", zap.Error(err))
		p.fail("decode")
		return nil
	}

	problems, err := p.Auditor.Verify(ctx, ev)
	if err != nil {
		p.fail("verify")
		return err
	}
	if len(problems) == 0 {
		p.Log.Debug("settlement verified", zap.String("round_id", ev.RoundID), zap.String("game", ev.Game))
		if p.OnVerified != nil {
			p.OnVerified(ev.Game)
		}
		return nil
	}

	p.Log.Error("settlement violation",
		zap.String("round_id", ev.RoundID),
		zap.String("game", ev.Game),
		zap.Strings("problems", problems),
	)
	if p.OnViolation != nil {
		p.OnViolation(ev.Game)
	}
	if p.DLQ == nil {
		return nil
	}

	violation := events.SettlementViolation{
		RoundID:  ev.RoundID,
		Game:     ev.Game,
		Problems: problems,
		Event:    ev,
		TsUnixMs: time.Now().UnixMilli(),
	}
	if err := kafka.WriteJSON(ctx, p.DLQ, ev.RoundID, violation); err != nil {
		p.fail("dlq")
		return err
	}
	return nil
}

func (p *Processor) fail(phase string) {
	if p.OnError != nil {
		p.OnError(phase)
	}
}

func (p *Processor) sleep(ctx context.Context) bool {
	d := p.RetryDelay
	if d <= 0 {
		d = 500 * time.Millisecond
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
