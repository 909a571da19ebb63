package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/radieske/betbot-engine/internal/game-engine/domain"
)

// CreateNextRound insere a próxima rodada do jogo com round_number = max + 1.
// Deve rodar em transação; falha com ErrActiveRoundExists se houver rodada não liquidada.
func (c conn) CreateNextRound(ctx context.Context, r domain.Round) (domain.Round, error) {
	if _, ok, err := c.ActiveRound(ctx, r.Game); err != nil {
		return domain.Round{}, err
	} else if ok {
		return domain.Round{}, domain.ErrActiveRoundExists
	}

	var last int64
	if err := c.get(ctx, &last, `SELECT COALESCE(MAX(round_number), 0) FROM rounds WHERE game = ?`, r.Game); err != nil {
		return domain.Round{}, domain.Resource("max round number", err)
	}
	r.Number = last + 1
	r.State = domain.RoundScheduled

	_, err := c.exec(ctx, `INSERT INTO rounds (id, game, round_number, state, start_at, close_at, end_at,
		seed_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Game, r.Number, string(r.State), toMs(r.StartAt), toMs(r.CloseAt), toMs(r.EndAt),
		r.SeedHash, toMs(r.CreatedAt), toMs(r.CreatedAt))
	if err != nil {
		return domain.Round{}, domain.Resource("insert round", err)
	}
	r.UpdatedAt = r.CreatedAt
	return r, nil
}

// ActiveRound devolve a rodada não liquidada do jogo, se houver
func (c conn) ActiveRound(ctx context.Context, game string) (domain.Round, bool, error) {
	var row roundRow
	err := c.get(ctx, &row, `SELECT `+roundColumns+` FROM rounds WHERE game = ? AND state <> 'settled'`, game)
	if err != nil {
		if isNoRows(err) {
			return domain.Round{}, false, nil
		}
		return domain.Round{}, false, domain.Resource("active round", err)
	}
	return row.toDomain(), true, nil
}

// LatestRound devolve a rodada mais recente do jogo, em qualquer estado
func (c conn) LatestRound(ctx context.Context, game string) (domain.Round, bool, error) {
	var row roundRow
	err := c.get(ctx, &row, `SELECT `+roundColumns+` FROM rounds WHERE game = ?
		ORDER BY round_number DESC LIMIT 1`, game)
	if err != nil {
		if isNoRows(err) {
			return domain.Round{}, false, nil
		}
		return domain.Round{}, false, domain.Resource("latest round", err)
	}
	return row.toDomain(), true, nil
}

func (c conn) GetRound(ctx context.Context, id string) (domain.Round, error) {
	return c.round(ctx, id, noLock)
}

// GetRoundForShare trava a rodada em modo compartilhado: apostas concorrem entre si,
// mas a transição de estado espera as apostas em andamento
func (c conn) GetRoundForShare(ctx context.Context, id string) (domain.Round, error) {
	return c.round(ctx, id, lockShare)
}

func (c conn) GetRoundForUpdate(ctx context.Context, id string) (domain.Round, error) {
	return c.round(ctx, id, lockUpdate)
}

func (c conn) round(ctx context.Context, id string, m lockMode) (domain.Round, error) {
	var row roundRow
	if err := c.get(ctx, &row, `SELECT `+roundColumns+` FROM rounds WHERE id = ?`+c.lock(m), id); err != nil {
		return domain.Round{}, notFound(err, domain.ErrRoundNotFound, "get round")
	}
	return row.toDomain(), nil
}

// ListRounds devolve as últimas rodadas do jogo, mais recentes primeiro
func (c conn) ListRounds(ctx context.Context, game string, limit int) ([]domain.Round, error) {
	var rows []roundRow
	if err := c.selectAll(ctx, &rows, `SELECT `+roundColumns+` FROM rounds WHERE game = ?
		ORDER BY round_number DESC LIMIT ?`, game, limit); err != nil {
		return nil, domain.Resource("list rounds", err)
	}
	out := make([]domain.Round, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// TransitionRound troca o estado com compare-and-swap; estado divergente devolve ErrStaleRound
func (c conn) TransitionRound(ctx context.Context, id string, from, to domain.RoundState, now time.Time) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}
	return c.execOne(ctx, "transition round", domain.ErrStaleRound,
		`UPDATE rounds SET state = ?, updated_at = ? WHERE id = ? AND state = ?`,
		string(to), toMs(now), id, string(from))
}

// RecordOutcome grava o resultado e move closed -> resolving
func (c conn) RecordOutcome(ctx context.Context, id, outcome, detail string, manual bool, proof string, now time.Time) error {
	return c.execOne(ctx, "record outcome", domain.ErrStaleRound,
		`UPDATE rounds SET state = 'resolving', outcome = ?, outcome_detail = ?, is_manual_result = ?,
		draw_proof = ?, updated_at = ? WHERE id = ? AND state = 'closed'`,
		outcome, detail, manual, proof, toMs(now), id)
}

// ForceClose encerra a rodada antes do horário com um resultado manual
func (c conn) ForceClose(ctx context.Context, r domain.Round, outcome, detail string, now time.Time) error {
	if !r.State.CanTransition(domain.RoundClosed) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, r.State, domain.RoundClosed)
	}
	startAt, closeAt := r.StartAt, r.CloseAt
	if startAt.After(now) {
		startAt = now
	}
	if closeAt.After(now) {
		closeAt = now
	}
	return c.execOne(ctx, "force close round", domain.ErrStaleRound,
		`UPDATE rounds SET state = 'closed', start_at = ?, close_at = ?, end_at = ?, outcome = ?,
		outcome_detail = ?, is_manual_result = TRUE, updated_at = ?
		WHERE id = ? AND state = ? AND outcome = ''`,
		toMs(startAt), toMs(closeAt), toMs(now), outcome, detail, toMs(now), r.ID, string(r.State))
}

// MarkRoundSettled fecha o ciclo da rodada: resolving -> settled
func (c conn) MarkRoundSettled(ctx context.Context, id string, now time.Time) error {
	return c.execOne(ctx, "mark round settled", domain.ErrStaleRound,
		`UPDATE rounds SET state = 'settled', settled_at = ?, updated_at = ? WHERE id = ? AND state = 'resolving'`,
		toMs(now), toMs(now), id)
}
