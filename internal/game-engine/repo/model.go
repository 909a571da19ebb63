package repo

import (
	"time"

	"github.com/radieske/betbot-engine/internal/game-engine/domain"
)

// linhas persistidas; horários em unix ms, zero quando ausentes

type accountRow struct {
	UserID       string `db:"user_id"`
	BalanceCents int64  `db:"balance_cents"`
	Active       bool   `db:"active"`
	Version      int64  `db:"version"`
	CreatedAt    int64  `db:"created_at"`
	UpdatedAt    int64  `db:"updated_at"`
}

func (r accountRow) toDomain() domain.Account {
	return domain.Account{
		UserID:       r.UserID,
		BalanceCents: r.BalanceCents,
		Active:       r.Active,
		Version:      r.Version,
		CreatedAt:    fromMs(r.CreatedAt),
		UpdatedAt:    fromMs(r.UpdatedAt),
	}
}

type roundRow struct {
	ID             string `db:"id"`
	Game           string `db:"game"`
	Number         int64  `db:"round_number"`
	State          string `db:"state"`
	StartAt        int64  `db:"start_at"`
	CloseAt        int64  `db:"close_at"`
	EndAt          int64  `db:"end_at"`
	Outcome        string `db:"outcome"`
	OutcomeDetail  string `db:"outcome_detail"`
	IsManualResult bool   `db:"is_manual_result"`
	SeedHash       string `db:"seed_hash"`
	DrawProof      string `db:"draw_proof"`
	SettledAt      int64  `db:"settled_at"`
	CreatedAt      int64  `db:"created_at"`
	UpdatedAt      int64  `db:"updated_at"`
}

const roundColumns = `id, game, round_number, state, start_at, close_at, end_at, outcome, outcome_detail,
	is_manual_result, seed_hash, draw_proof, settled_at, created_at, updated_at`

func (r roundRow) toDomain() domain.Round {
	return domain.Round{
		ID:             r.ID,
		Game:           r.Game,
		Number:         r.Number,
		State:          domain.RoundState(r.State),
		StartAt:        fromMs(r.StartAt),
		CloseAt:        fromMs(r.CloseAt),
		EndAt:          fromMs(r.EndAt),
		Outcome:        r.Outcome,
		OutcomeDetail:  r.OutcomeDetail,
		IsManualResult: r.IsManualResult,
		SeedHash:       r.SeedHash,
		DrawProof:      r.DrawProof,
		SettledAt:      fromMs(r.SettledAt),
		CreatedAt:      fromMs(r.CreatedAt),
		UpdatedAt:      fromMs(r.UpdatedAt),
	}
}

type betRow struct {
	ID          string `db:"id"`
	UserID      string `db:"user_id"`
	RoundID     string `db:"round_id"`
	Game        string `db:"game"`
	Selection   string `db:"selection"`
	StakeCents  int64  `db:"stake_cents"`
	Status      string `db:"status"`
	PayoutCents int64  `db:"payout_cents"`
	CreatedAt   int64  `db:"created_at"`
	SettledAt   int64  `db:"settled_at"`
}

const betColumns = `id, user_id, round_id, game, selection, stake_cents, status, payout_cents, created_at, settled_at`

func (r betRow) toDomain() domain.Bet {
	return domain.Bet{
		ID:          r.ID,
		UserID:      r.UserID,
		RoundID:     r.RoundID,
		Game:        r.Game,
		Selection:   r.Selection,
		StakeCents:  r.StakeCents,
		Status:      domain.BetStatus(r.Status),
		PayoutCents: r.PayoutCents,
		CreatedAt:   fromMs(r.CreatedAt),
		SettledAt:   fromMs(r.SettledAt),
	}
}

type entryRow struct {
	ID            string `db:"id"`
	UserID        string `db:"user_id"`
	Seq           int64  `db:"seq"`
	Kind          string `db:"kind"`
	AmountCents   int64  `db:"amount_cents"`
	BalanceBefore int64  `db:"balance_before"`
	BalanceAfter  int64  `db:"balance_after"`
	RoundID       string `db:"round_id"`
	BetID         string `db:"bet_id"`
	Ref           string `db:"ref"`
	Note          string `db:"note"`
	CreatedAt     int64  `db:"created_at"`
}

const entryColumns = `id, user_id, seq, kind, amount_cents, balance_before, balance_after, round_id, bet_id, ref, note, created_at`

func (r entryRow) toDomain() domain.LedgerEntry {
	return domain.LedgerEntry{
		ID:            r.ID,
		UserID:        r.UserID,
		Seq:           r.Seq,
		Kind:          domain.EntryKind(r.Kind),
		AmountCents:   r.AmountCents,
		BalanceBefore: r.BalanceBefore,
		BalanceAfter:  r.BalanceAfter,
		RoundID:       r.RoundID,
		BetID:         r.BetID,
		Ref:           r.Ref,
		Note:          r.Note,
		CreatedAt:     fromMs(r.CreatedAt),
	}
}

func toMs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMs(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
