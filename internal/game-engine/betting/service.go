package betting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/betbot-engine/internal/game-engine/domain"
	"github.com/radieske/betbot-engine/internal/game-engine/game"
	"github.com/radieske/betbot-engine/internal/game-engine/ledger"
	"github.com/radieske/betbot-engine/internal/game-engine/repo"
)

// PlaceBetRequest é o pedido de aposta já normalizado (stake em centavos)
type PlaceBetRequest struct {
	UserID     string
	Game       string
	RoundID    string
	Selection  string
	StakeCents int64
}

// Placed é a aposta aceita e o saldo após o débito
type Placed struct {
	Bet          domain.Bet
	BalanceCents int64
}

// Service valida e registra apostas; débito e aposta são gravados na mesma transação
type Service struct {
	Log    *zap.Logger
	Store  *repo.Store
	Ledger *ledger.Ledger
	Games  *game.Registry
	Now    func() time.Time
	NewID  func() string

	OnPlaced   func(Placed)    // métricas / eventos
	OnRejected func(err error) // métricas por motivo
}

func NewService(log *zap.Logger, store *repo.Store, l *ledger.Ledger, games *game.Registry) *Service {
	return &Service{
		Log:    log,
		Store:  store,
		Ledger: l,
		Games:  games,
		Now:    time.Now,
		NewID:  uuid.NewString,
	}
}

// PlaceBet valida na ordem: rodada, janela, seleção, stake, conta, saldo.
// A primeira falha vence; nada é gravado se qualquer etapa falhar.
func (s *Service) PlaceBet(ctx context.Context, req PlaceBetRequest) (Placed, error) {
	placed, err := s.place(ctx, req)
	if err != nil {
		if s.OnRejected != nil {
			s.OnRejected(err)
		}
		if domain.KindOf(err) == domain.KindInvariant {
			s.Log.Error("bet invariant violated", zap.String("user_id", req.UserID), zap.Error(err))
		}
		return Placed{}, err
	}

	s.Log.Info("bet placed",
		zap.String("bet_id", placed.Bet.ID),
		zap.String("user_id", req.UserID),
		zap.String("game", req.Game),
		zap.String("round_id", req.RoundID),
		zap.String("selection", req.Selection),
		zap.Int64("stake_cents", req.StakeCents),
	)
	if s.OnPlaced != nil {
		s.OnPlaced(placed)
	}
	return placed, nil
}

func (s *Service) place(ctx context.Context, req PlaceBetRequest) (Placed, error) {
	variant, err := s.Games.Lookup(req.Game)
	if err != nil {
		return Placed{}, domain.ErrRoundNotFound
	}

	var out Placed
	err = s.Store.WithTx(ctx, func(tx *repo.Tx) error {
		round, err := tx.GetRoundForShare(ctx, req.RoundID)
		if err != nil {
			return err
		}
		if round.Game != req.Game {
			return domain.ErrRoundNotFound
		}

		now := s.Now()
		if !round.BettingOpenAt(now) {
			return domain.ErrRoundClosed
		}
		if !variant.ValidSelection(req.Selection) {
			return domain.ErrInvalidSelection
		}
		if req.StakeCents <= 0 {
			return domain.ErrInvalidStake
		}

		if err := tx.EnsureAccount(ctx, req.UserID, now); err != nil {
			return err
		}
		acc, err := tx.GetAccount(ctx, req.UserID)
		if err != nil {
			return err
		}
		if !acc.Active {
			return domain.ErrAccountInactive
		}

		bet := domain.Bet{
			ID:         s.NewID(),
			UserID:     req.UserID,
			RoundID:    round.ID,
			Game:       round.Game,
			Selection:  req.Selection,
			StakeCents: req.StakeCents,
			Status:     domain.BetUnsettled,
			CreatedAt:  now,
		}
		bal, err := s.Ledger.DebitTx(ctx, tx, req.UserID, req.StakeCents, ledger.Posting{
			Kind:    domain.EntryStake,
			RoundID: round.ID,
			BetID:   bet.ID,
		})
		if err != nil {
			if errors.Is(err, domain.ErrInsufficientFunds) {
				return domain.ErrInsufficientBalance
			}
			return err
		}
		if err := tx.InsertBet(ctx, bet); err != nil {
			return fmt.Errorf("bet %s: %w", bet.ID, err)
		}

		out = Placed{Bet: bet, BalanceCents: bal}
		return nil
	})
	return out, err
}
