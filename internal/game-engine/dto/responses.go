package dto

import (
	"time"

	"github.com/radieske/betbot-engine/internal/game-engine/domain"
	"github.com/radieske/betbot-engine/internal/game-engine/game"
	"github.com/radieske/betbot-engine/internal/shared/money"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type GameResponse struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	DurationSeconds int64            `json:"duration_seconds"`
	CutoffSeconds   int64            `json:"cutoff_seconds"`
	Selections      []game.Selection `json:"selections"`
}

func Game(v game.Variant) GameResponse {
	return GameResponse{
		ID:              v.ID,
		Name:            v.Name,
		DurationSeconds: int64(v.Duration / time.Second),
		CutoffSeconds:   int64(v.Cutoff / time.Second),
		Selections:      v.Selections,
	}
}

// RoundResponse é o snapshot da rodada com o tempo restante para apostar
type RoundResponse struct {
	domain.Snapshot
	RemainingMs int64 `json:"remaining_ms"`
}

func Round(s domain.Snapshot, now time.Time) RoundResponse {
	return RoundResponse{Snapshot: s, RemainingMs: s.Remaining(now).Milliseconds()}
}

type RoundSummary struct {
	RoundID        string `json:"round_id"`
	RoundNumber    int64  `json:"round_number"`
	State          string `json:"state"`
	Outcome        string `json:"outcome,omitempty"`
	OutcomeDetail  string `json:"outcome_detail,omitempty"`
	IsManualResult bool   `json:"is_manual_result"`
	DrawProof      string `json:"draw_proof,omitempty"`
	EndAt          string `json:"end_at"`
}

func Rounds(rs []domain.Round) []RoundSummary {
	out := make([]RoundSummary, 0, len(rs))
	for _, r := range rs {
		out = append(out, RoundSummary{
			RoundID:        r.ID,
			RoundNumber:    r.Number,
			State:          string(r.State),
			Outcome:        r.Outcome,
			OutcomeDetail:  r.OutcomeDetail,
			IsManualResult: r.IsManualResult,
			DrawProof:      r.DrawProof,
			EndAt:          r.EndAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return out
}

// SeedResponse publica um seed aposentado; sha256(seed) == hash e os sorteios podem ser refeitos
type SeedResponse struct {
	Hash       string `json:"hash"`
	Seed       string `json:"seed"`
	RevealedAt string `json:"revealed_at"`
}

func Seed(s domain.ServerSeed) SeedResponse {
	return SeedResponse{Hash: s.Hash, Seed: s.Seed, RevealedAt: s.RevealedAt.UTC().Format(time.RFC3339Nano)}
}

type BetResponse struct {
	BetID     string `json:"bet_id"`
	RoundID   string `json:"round_id"`
	Game      string `json:"game"`
	Selection string `json:"selection"`
	Stake     string `json:"stake"`
	Status    string `json:"status"`
	Payout    string `json:"payout,omitempty"`
	Balance   string `json:"balance,omitempty"`
	Message   string `json:"message,omitempty"`
}

func Bet(b domain.Bet) BetResponse {
	resp := BetResponse{
		BetID:     b.ID,
		RoundID:   b.RoundID,
		Game:      b.Game,
		Selection: b.Selection,
		Stake:     money.Format(b.StakeCents),
		Status:    string(b.Status),
	}
	if b.Settled() {
		resp.Payout = money.Format(b.PayoutCents)
	}
	return resp
}

func Bets(bs []domain.Bet) []BetResponse {
	out := make([]BetResponse, 0, len(bs))
	for _, b := range bs {
		out = append(out, Bet(b))
	}
	return out
}

type BalanceResponse struct {
	UserID       string `json:"user_id"`
	Balance      string `json:"balance"`
	BalanceCents int64  `json:"balance_cents"`
	Active       bool   `json:"active"`
}

func Balance(a domain.Account) BalanceResponse {
	return BalanceResponse{UserID: a.UserID, Balance: money.Format(a.BalanceCents), BalanceCents: a.BalanceCents, Active: a.Active}
}

type TransactionResponse struct {
	ID            string `json:"id"`
	Seq           int64  `json:"seq"`
	Kind          string `json:"kind"`
	Amount        string `json:"amount"`
	BalanceBefore string `json:"balance_before"`
	BalanceAfter  string `json:"balance_after"`
	RoundID       string `json:"round_id,omitempty"`
	BetID         string `json:"bet_id,omitempty"`
	Note          string `json:"note,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func Transactions(es []domain.LedgerEntry) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(es))
	for _, e := range es {
		out = append(out, TransactionResponse{
			ID:            e.ID,
			Seq:           e.Seq,
			Kind:          string(e.Kind),
			Amount:        money.Format(e.AmountCents),
			BalanceBefore: money.Format(e.BalanceBefore),
			BalanceAfter:  money.Format(e.BalanceAfter),
			RoundID:       e.RoundID,
			BetID:         e.BetID,
			Note:          e.Note,
			CreatedAt:     e.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return out
}
