package repo

import (
	"context"
	"time"

	"github.com/radieske/betbot-engine/internal/game-engine/domain"
)

// EnsureAccount cria a conta com saldo zero se ainda não existir
func (c conn) EnsureAccount(ctx context.Context, userID string, now time.Time) error {
	_, err := c.exec(ctx, `INSERT INTO accounts (user_id, balance_cents, active, version, created_at, updated_at)
		VALUES (?, 0, TRUE, 0, ?, ?) ON CONFLICT (user_id) DO NOTHING`, userID, toMs(now), toMs(now))
	return domain.Resource("ensure account", err)
}

func (c conn) GetAccount(ctx context.Context, userID string) (domain.Account, error) {
	return c.account(ctx, userID, noLock)
}

// LockAccount lê a conta com lock exclusivo de linha
func (c conn) LockAccount(ctx context.Context, userID string) (domain.Account, error) {
	return c.account(ctx, userID, lockUpdate)
}

func (c conn) account(ctx context.Context, userID string, m lockMode) (domain.Account, error) {
	var row accountRow
	err := c.get(ctx, &row, `SELECT user_id, balance_cents, active, version, created_at, updated_at
		FROM accounts WHERE user_id = ?`+c.lock(m), userID)
	if err != nil {
		return domain.Account{}, notFound(err, ErrNotFound, "get account")
	}
	return row.toDomain(), nil
}

// UpdateBalance grava o novo saldo condicionado à versão lida (CAS)
func (c conn) UpdateBalance(ctx context.Context, acc domain.Account, newBalance int64, now time.Time) error {
	return c.execOne(ctx, "update balance", domain.Invariantf("account %s changed under lock", acc.UserID),
		`UPDATE accounts SET balance_cents = ?, version = version + 1, updated_at = ?
		WHERE user_id = ? AND version = ?`, newBalance, toMs(now), acc.UserID, acc.Version)
}

func (c conn) SetAccountActive(ctx context.Context, userID string, active bool, now time.Time) error {
	return c.execOne(ctx, "set account active", ErrNotFound,
		`UPDATE accounts SET active = ?, updated_at = ? WHERE user_id = ?`, active, toMs(now), userID)
}
