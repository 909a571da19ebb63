package repo

import (
	"context"

	"github.com/radieske/betbot-engine/internal/game-engine/domain"
)

func (c conn) InsertEntry(ctx context.Context, e domain.LedgerEntry) error {
	_, err := c.exec(ctx, `INSERT INTO ledger_entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Seq, string(e.Kind), e.AmountCents, e.BalanceBefore, e.BalanceAfter,
		e.RoundID, e.BetID, e.Ref, e.Note, toMs(e.CreatedAt))
	return domain.Resource("insert ledger entry", err)
}

// EntryByRef busca um lançamento pela referência externa do usuário
func (c conn) EntryByRef(ctx context.Context, userID, ref string) (domain.LedgerEntry, bool, error) {
	var row entryRow
	err := c.get(ctx, &row, `SELECT `+entryColumns+` FROM ledger_entries WHERE user_id = ? AND ref = ?`, userID, ref)
	if err != nil {
		if isNoRows(err) {
			return domain.LedgerEntry{}, false, nil
		}
		return domain.LedgerEntry{}, false, domain.Resource("entry by ref", err)
	}
	return row.toDomain(), true, nil
}

// ListEntries devolve os últimos lançamentos do usuário, mais recentes primeiro
func (c conn) ListEntries(ctx context.Context, userID string, limit int) ([]domain.LedgerEntry, error) {
	var rows []entryRow
	if err := c.selectAll(ctx, &rows, `SELECT `+entryColumns+` FROM ledger_entries WHERE user_id = ?
		ORDER BY seq DESC LIMIT ?`, userID, limit); err != nil {
		return nil, domain.Resource("list ledger entries", err)
	}
	out := make([]domain.LedgerEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// RoundTotals soma os lançamentos de um tipo vinculados à rodada
type RoundTotals struct {
	Count int64 `db:"n"`
	Sum   int64 `db:"total"`
}

func (c conn) SumEntriesByRound(ctx context.Context, roundID string, kind domain.EntryKind) (RoundTotals, error) {
	var t RoundTotals
	if err := c.get(ctx, &t, `SELECT COUNT(*) AS n, COALESCE(SUM(amount_cents), 0) AS total
		FROM ledger_entries WHERE round_id = ? AND kind = ?`, roundID, string(kind)); err != nil {
		return RoundTotals{}, domain.Resource("sum ledger entries", err)
	}
	return t, nil
}
