package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/betbot-engine/internal/game-engine/domain"
	"github.com/radieske/betbot-engine/internal/game-engine/repo"
)

// Posting descreve a origem de um lançamento no ledger
type Posting struct {
	Kind    domain.EntryKind
	RoundID string
	BetID   string
	Ref     string // idempotência para ajustes externos
	Note    string
}

// Ledger é o único ponto que altera saldos; cada mudança gera um lançamento
// na mesma transação. O lock de linha da conta serializa operações do mesmo usuário.
type Ledger struct {
	log   *zap.Logger
	store *repo.Store
	now   func() time.Time
}

func New(log *zap.Logger, store *repo.Store) *Ledger {
	return &Ledger{log: log, store: store, now: time.Now}
}

// Debit debita amount em transação própria e devolve o novo saldo
func (l *Ledger) Debit(ctx context.Context, userID string, amount int64, p Posting) (int64, error) {
	var bal int64
	err := l.store.WithTx(ctx, func(tx *repo.Tx) error {
		var err error
		bal, err = l.DebitTx(ctx, tx, userID, amount, p)
		return err
	})
	return bal, err
}

// Credit credita amount em transação própria e devolve o novo saldo
func (l *Ledger) Credit(ctx context.Context, userID string, amount int64, p Posting) (int64, error) {
	var bal int64
	err := l.store.WithTx(ctx, func(tx *repo.Tx) error {
		var err error
		bal, err = l.CreditTx(ctx, tx, userID, amount, p)
		return err
	})
	return bal, err
}

// DebitTx debita dentro da transação do chamador; saldo insuficiente devolve ErrInsufficientFunds
func (l *Ledger) DebitTx(ctx context.Context, tx *repo.Tx, userID string, amount int64, p Posting) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	return l.apply(ctx, tx, userID, -amount, p)
}

// CreditTx credita dentro da transação do chamador
func (l *Ledger) CreditTx(ctx context.Context, tx *repo.Tx, userID string, amount int64, p Posting) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	return l.apply(ctx, tx, userID, amount, p)
}

func (l *Ledger) apply(ctx context.Context, tx *repo.Tx, userID string, delta int64, p Posting) (int64, error) {
	now := l.now()
	if err := tx.EnsureAccount(ctx, userID, now); err != nil {
		return 0, err
	}
	acc, err := tx.LockAccount(ctx, userID)
	if err != nil {
		return 0, err
	}

	if delta < 0 && acc.BalanceCents < -delta {
		return 0, domain.ErrInsufficientFunds
	}
	next := acc.BalanceCents + delta
	if delta > 0 && next < acc.BalanceCents {
		return 0, domain.Invariantf("balance overflow for %s", userID)
	}
	if next < 0 {
		return 0, domain.Invariantf("negative balance for %s", userID)
	}

	if err := tx.UpdateBalance(ctx, acc, next, now); err != nil {
		return 0, err
	}
	if err := tx.InsertEntry(ctx, domain.LedgerEntry{
		ID:            uuid.NewString(),
		UserID:        userID,
		Seq:           acc.Version + 1,
		Kind:          p.Kind,
		AmountCents:   delta,
		BalanceBefore: acc.BalanceCents,
		BalanceAfter:  next,
		RoundID:       p.RoundID,
		BetID:         p.BetID,
		Ref:           p.Ref,
		Note:          p.Note,
		CreatedAt:     now,
	}); err != nil {
		return 0, err
	}
	return next, nil
}

// Adjust aplica um ajuste administrativo: delta > 0 deposita, delta < 0 retira.
// Uma ref já aplicada para o usuário devolve o saldo atual sem reaplicar.
func (l *Ledger) Adjust(ctx context.Context, userID string, delta int64, ref, note string) (int64, error) {
	if delta == 0 {
		return 0, domain.ErrInvalidAmount
	}
	var bal int64
	err := l.store.WithTx(ctx, func(tx *repo.Tx) error {
		if ref != "" {
			if err := tx.EnsureAccount(ctx, userID, l.now()); err != nil {
				return err
			}
			acc, err := tx.LockAccount(ctx, userID)
			if err != nil {
				return err
			}
			_, seen, err := tx.EntryByRef(ctx, userID, ref)
			if err != nil {
				return err
			}
			if seen {
				bal = acc.BalanceCents
				return nil
			}
		}

		var err error
		if delta > 0 {
			bal, err = l.CreditTx(ctx, tx, userID, delta, Posting{Kind: domain.EntryDeposit, Ref: ref, Note: note})
		} else {
			bal, err = l.DebitTx(ctx, tx, userID, -delta, Posting{Kind: domain.EntryWithdrawal, Ref: ref, Note: note})
		}
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("adjust balance: %w", err)
	}
	l.log.Info("balance adjusted",
		zap.String("user_id", userID),
		zap.Int64("delta_cents", delta),
		zap.String("ref", ref),
		zap.Int64("balance_cents", bal),
	)
	return bal, nil
}

// Balance devolve o saldo do usuário, criando a conta no primeiro contato
func (l *Ledger) Balance(ctx context.Context, userID string) (domain.Account, error) {
	if err := l.store.EnsureAccount(ctx, userID, l.now()); err != nil {
		return domain.Account{}, err
	}
	return l.store.GetAccount(ctx, userID)
}

// History devolve os últimos lançamentos do usuário
func (l *Ledger) History(ctx context.Context, userID string, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	return l.store.ListEntries(ctx, userID, limit)
}

// Deactivate bloqueia novas apostas do usuário; saldo e histórico ficam preservados
func (l *Ledger) Deactivate(ctx context.Context, userID string) error {
	if err := l.setActive(ctx, userID, false); err != nil {
		return err
	}
	l.log.Info("account deactivated", zap.String("user_id", userID))
	return nil
}

// Reactivate libera novas apostas de uma conta desativada
func (l *Ledger) Reactivate(ctx context.Context, userID string) error {
	if err := l.setActive(ctx, userID, true); err != nil {
		return err
	}
	l.log.Info("account reactivated", zap.String("user_id", userID))
	return nil
}

func (l *Ledger) setActive(ctx context.Context, userID string, active bool) error {
	if err := l.store.EnsureAccount(ctx, userID, l.now()); err != nil {
		return err
	}
	if err := l.store.SetAccountActive(ctx, userID, active, l.now()); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Invariantf("account %s vanished", userID)
		}
		return err
	}
	return nil
}
