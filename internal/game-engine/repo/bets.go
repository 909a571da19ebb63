package repo

import (
	"context"
	"time"

	"github.com/radieske/betbot-engine/internal/game-engine/domain"
)

func (c conn) InsertBet(ctx context.Context, b domain.Bet) error {
	_, err := c.exec(ctx, `INSERT INTO bets (id, user_id, round_id, game, selection, stake_cents, status, payout_cents, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		b.ID, b.UserID, b.RoundID, b.Game, b.Selection, b.StakeCents, string(domain.BetUnsettled), toMs(b.CreatedAt))
	return domain.Resource("insert bet", err)
}

// ListBetsByRound devolve as apostas da rodada ordenadas por usuário,
// a mesma ordem em que a liquidação trava as contas
func (c conn) ListBetsByRound(ctx context.Context, roundID string) ([]domain.Bet, error) {
	var rows []betRow
	if err := c.selectAll(ctx, &rows, `SELECT `+betColumns+` FROM bets WHERE round_id = ?
		ORDER BY user_id, created_at, id`, roundID); err != nil {
		return nil, domain.Resource("list bets by round", err)
	}
	return toBets(rows), nil
}

// ListBetsByUser devolve as últimas apostas do usuário, mais recentes primeiro
func (c conn) ListBetsByUser(ctx context.Context, userID string, limit int) ([]domain.Bet, error) {
	var rows []betRow
	if err := c.selectAll(ctx, &rows, `SELECT `+betColumns+` FROM bets WHERE user_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit); err != nil {
		return nil, domain.Resource("list bets by user", err)
	}
	return toBets(rows), nil
}

// SettleBet marca a aposta como ganha/perdida; só altera apostas ainda não liquidadas
func (c conn) SettleBet(ctx context.Context, id string, status domain.BetStatus, payout int64, now time.Time) error {
	return c.execOne(ctx, "settle bet", domain.ErrAlreadySettled,
		`UPDATE bets SET status = ?, payout_cents = ?, settled_at = ? WHERE id = ? AND status = 'unsettled'`,
		string(status), payout, toMs(now), id)
}

func toBets(rows []betRow) []domain.Bet {
	out := make([]domain.Bet, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out
}
