package auditor

import (
	"context"
	"errors"
	"fmt"

	"github.com/radieske/betbot-engine/internal/game-engine/domain"
	"github.com/radieske/betbot-engine/internal/game-engine/game"
	"github.com/radieske/betbot-engine/internal/game-engine/repo"
	"github.com/radieske/betbot-engine/pkg/contracts/events"
)

// Store é a parte do repositório lida pelo auditor
type Store interface {
	GetRound(ctx context.Context, id string) (domain.Round, error)
	ListBetsByRound(ctx context.Context, roundID string) ([]domain.Bet, error)
	SumEntriesByRound(ctx context.Context, roundID string, kind domain.EntryKind) (repo.RoundTotals, error)
}

// Auditor confere uma liquidação publicada contra rodada, apostas e razão no banco
type Auditor struct {
	store Store
	games *game.Registry
}

func New(store Store, games *game.Registry) *Auditor {
	return &Auditor{store: store, games: games}
}

// Verify devolve a lista de divergências encontradas; lista vazia significa liquidação correta.
// O erro só é preenchido em falha de leitura do banco.
func (a *Auditor) Verify(ctx context.Context, ev events.RoundSettled) ([]string, error) {
	round, err := a.store.GetRound(ctx, ev.RoundID)
	if errors.Is(err, domain.ErrRoundNotFound) {
		return []string{"round not found"}, nil
	}
	if err != nil {
		return nil, err
	}

	var problems []string
	addf := func(format string, args ...any) { problems = append(problems, fmt.Sprintf(format, args...)) }

	if round.State != domain.RoundSettled {
		addf("round state is %s", round.State)
	}
	if round.Outcome != ev.Outcome {
		addf("outcome mismatch: store %q, event %q", round.Outcome, ev.Outcome)
	}

	var payouts map[string]int64
	if v, err := a.games.Lookup(round.Game); err != nil {
		addf("unknown game %s", round.Game)
	} else {
		payouts = game.Payouts(v, round.Outcome)
	}

	bets, err := a.store.ListBetsByRound(ctx, round.ID)
	if err != nil {
		return nil, err
	}
	var stake, payout int64
	winners := 0
	for _, b := range bets {
		stake += b.StakeCents
		payout += b.PayoutCents
		if b.PayoutCents > 0 {
			winners++
		}
		switch {
		case !b.Settled():
			addf("bet %s is unsettled", b.ID)
		case b.Status == domain.BetWon && b.PayoutCents <= 0:
			addf("bet %s won without payout", b.ID)
		case b.Status == domain.BetLost && b.PayoutCents != 0:
			addf("bet %s lost with payout %d", b.ID, b.PayoutCents)
		}
		if payouts != nil && b.Settled() {
			if want := b.StakeCents * payouts[b.Selection]; want != b.PayoutCents {
				addf("bet %s payout %d, expected %d", b.ID, b.PayoutCents, want)
			}
		}
	}

	if len(bets) != ev.BetsSettled {
		addf("bets settled: store %d, event %d", len(bets), ev.BetsSettled)
	}
	if winners != ev.Winners {
		addf("winners: store %d, event %d", winners, ev.Winners)
	}
	if stake != ev.TotalStakeCents {
		addf("total stake: store %d, event %d", stake, ev.TotalStakeCents)
	}
	if payout != ev.TotalPayoutCents {
		addf("total payout: store %d, event %d", payout, ev.TotalPayoutCents)
	}

	stakes, err := a.store.SumEntriesByRound(ctx, round.ID, domain.EntryStake)
	if err != nil {
		return nil, err
	}
	if stakes.Sum != -stake || stakes.Count != int64(len(bets)) {
		addf("stake entries: %d entries summing %d, bets %d staking %d", stakes.Count, stakes.Sum, len(bets), stake)
	}

	credits, err := a.store.SumEntriesByRound(ctx, round.ID, domain.EntryPayout)
	if err != nil {
		return nil, err
	}
	if credits.Sum != payout || credits.Count != int64(winners) {
		addf("payout entries: %d entries summing %d, winners %d paid %d", credits.Count, credits.Sum, winners, payout)
	}
	return problems, nil
}
