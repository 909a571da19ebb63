package settlement

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/betbot-engine/internal/game-engine/domain"
	"github.com/radieske/betbot-engine/internal/game-engine/game"
	"github.com/radieske/betbot-engine/internal/game-engine/ledger"
	"github.com/radieske/betbot-engine/internal/game-engine/repo"
)

// Report resume a liquidação de uma rodada
type Report struct {
	RoundID        string
	Game           string
	RoundNumber    int64
	Outcome        string
	BetsSettled    int
	Winners        int
	TotalStake     int64
	TotalPayout    int64
	AlreadySettled bool
	SettledAt      time.Time
}

// Engine liquida todas as apostas de uma rodada contra um único resultado.
// Créditos, apostas e estado da rodada são gravados em uma transação só.
type Engine struct {
	log    *zap.Logger
	store  *repo.Store
	ledger *ledger.Ledger
	games  *game.Registry
	now    func() time.Time
}

func New(log *zap.Logger, store *repo.Store, l *ledger.Ledger, games *game.Registry) *Engine {
	return &Engine{log: log, store: store, ledger: l, games: games, now: time.Now}
}

// Settle liquida a rodada. Repetir em rodada já liquidada não altera nada
// e devolve o relatório com AlreadySettled.
func (e *Engine) Settle(ctx context.Context, roundID string) (Report, error) {
	var rep Report
	err := e.store.WithTx(ctx, func(tx *repo.Tx) error {
		round, err := tx.GetRoundForUpdate(ctx, roundID)
		if err != nil {
			return err
		}
		rep = Report{RoundID: round.ID, Game: round.Game, RoundNumber: round.Number, Outcome: round.Outcome}

		bets, err := tx.ListBetsByRound(ctx, round.ID)
		if err != nil {
			return err
		}

		if round.State == domain.RoundSettled {
			rep.AlreadySettled = true
			rep.SettledAt = round.SettledAt
			for _, b := range bets {
				rep.add(b.StakeCents, b.PayoutCents, b.Settled())
			}
			return nil
		}

		if !round.HasOutcome() || (round.State != domain.RoundClosed && round.State != domain.RoundResolving) {
			return domain.ErrRoundNotResolved
		}

		variant, err := e.games.Lookup(round.Game)
		if err != nil {
			return domain.Invariantf("round %s has unknown game %s", round.ID, round.Game)
		}
		payouts := game.Payouts(variant, round.Outcome)

		now := e.now()
		if round.State == domain.RoundClosed {
			if err := tx.TransitionRound(ctx, round.ID, domain.RoundClosed, domain.RoundResolving, now); err != nil {
				return err
			}
		}

		for _, b := range bets {
			if b.Settled() {
				return domain.Invariantf("bet %s already settled in unsettled round %s", b.ID, round.ID)
			}
			payout, err := payoutFor(b, payouts)
			if err != nil {
				return err
			}

			status := domain.BetLost
			if payout > 0 {
				status = domain.BetWon
				if _, err := e.ledger.CreditTx(ctx, tx, b.UserID, payout, ledger.Posting{
					Kind:    domain.EntryPayout,
					RoundID: round.ID,
					BetID:   b.ID,
				}); err != nil {
					return err
				}
			}
			if err := tx.SettleBet(ctx, b.ID, status, payout, now); err != nil {
				if errors.Is(err, domain.ErrAlreadySettled) {
					return domain.Invariantf("bet %s settled concurrently", b.ID)
				}
				return err
			}
			rep.add(b.StakeCents, payout, true)
		}

		if err := tx.MarkRoundSettled(ctx, round.ID, now); err != nil {
			return err
		}
		rep.SettledAt = now
		return nil
	})
	if err != nil {
		if domain.KindOf(err) == domain.KindInvariant {
			e.log.Error("settlement invariant violated", zap.String("round_id", roundID), zap.Error(err))
		}
		return Report{}, err
	}

	if !rep.AlreadySettled {
		e.log.Info("round settled",
			zap.String("round_id", rep.RoundID),
			zap.String("game", rep.Game),
			zap.Int64("round_number", rep.RoundNumber),
			zap.String("outcome", rep.Outcome),
			zap.Int("bets", rep.BetsSettled),
			zap.Int("winners", rep.Winners),
			zap.Int64("total_stake_cents", rep.TotalStake),
			zap.Int64("total_payout_cents", rep.TotalPayout),
		)
	}
	return rep, nil
}

func (r *Report) add(stake, payout int64, settled bool) {
	if settled {
		r.BetsSettled++
	}
	if payout > 0 {
		r.Winners++
	}
	r.TotalStake += stake
	r.TotalPayout += payout
}

// payoutFor calcula stake x multiplicador da seleção; seleção perdedora paga 0
func payoutFor(b domain.Bet, payouts map[string]int64) (int64, error) {
	mult := payouts[b.Selection]
	if mult <= 0 {
		return 0, nil
	}
	if b.StakeCents > math.MaxInt64/mult {
		return 0, domain.Invariantf("payout overflow for bet %s", b.ID)
	}
	return b.StakeCents * mult, nil
}
