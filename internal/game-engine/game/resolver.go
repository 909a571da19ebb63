package game

import (
	"fmt"

	"github.com/radieske/betbot-engine/internal/game-engine/domain"
)

// Resolution é o resultado resolvido de uma rodada com a tabela de pagamento
type Resolution struct {
	Outcome Outcome
	Payouts map[string]int64
	Manual  bool
	Proof   string
}

// Draw sorteia o resultado da rodada; mesma entrada, mesmo resultado
func Draw(v Variant, seeds *SeedManager, roundNumber int64) Resolution {
	rnd := seeds.Rand(v.ID, roundNumber)
	o := v.Rule.Draw(rnd)
	return Resolution{Outcome: o, Payouts: v.Rule.Payouts(o.Value), Proof: rnd.Proof()}
}

// Override interpreta um resultado informado pelo admin
func Override(v Variant, raw string) (Resolution, error) {
	o, err := v.Rule.Parse(raw)
	if err != nil {
		return Resolution{}, fmt.Errorf("%w: %v", domain.ErrInvalidOutcome, err)
	}
	return Resolution{Outcome: o, Payouts: v.Rule.Payouts(o.Value), Manual: true}, nil
}

// Payouts reconstrói a tabela de pagamento a partir do resultado gravado
func Payouts(v Variant, outcome string) map[string]int64 {
	return v.Rule.Payouts(outcome)
}
