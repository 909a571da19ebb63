package repo

import (
	"context"

	"github.com/radieske/betbot-engine/internal/game-engine/domain"
)

// schema roda igual em Postgres e SQLite: horários em unix ms e strings vazias no lugar de NULL
var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		user_id       TEXT PRIMARY KEY,
		balance_cents BIGINT NOT NULL DEFAULT 0 CHECK (balance_cents >= 0),
		active        BOOLEAN NOT NULL DEFAULT TRUE,
		version       BIGINT NOT NULL DEFAULT 0,
		created_at    BIGINT NOT NULL,
		updated_at    BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rounds (
		id               TEXT PRIMARY KEY,
		game             TEXT NOT NULL,
		round_number     BIGINT NOT NULL,
		state            TEXT NOT NULL,
		start_at         BIGINT NOT NULL,
		close_at         BIGINT NOT NULL,
		end_at           BIGINT NOT NULL,
		outcome          TEXT NOT NULL DEFAULT '',
		outcome_detail   TEXT NOT NULL DEFAULT '',
		is_manual_result BOOLEAN NOT NULL DEFAULT FALSE,
		seed_hash        TEXT NOT NULL DEFAULT '',
		draw_proof       TEXT NOT NULL DEFAULT '',
		settled_at       BIGINT NOT NULL DEFAULT 0,
		created_at       BIGINT NOT NULL,
		updated_at       BIGINT NOT NULL,
		UNIQUE (game, round_number)
	)`,
	// no máximo uma rodada não liquidada por jogo
	`CREATE UNIQUE INDEX IF NOT EXISTS rounds_one_active ON rounds (game) WHERE state <> 'settled'`,
	`CREATE TABLE IF NOT EXISTS bets (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL REFERENCES accounts (user_id),
		round_id     TEXT NOT NULL REFERENCES rounds (id),
		game         TEXT NOT NULL,
		selection    TEXT NOT NULL,
		stake_cents  BIGINT NOT NULL CHECK (stake_cents > 0),
		status       TEXT NOT NULL DEFAULT 'unsettled',
		payout_cents BIGINT NOT NULL DEFAULT 0,
		created_at   BIGINT NOT NULL,
		settled_at   BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS bets_round_status ON bets (round_id, status)`,
	`CREATE INDEX IF NOT EXISTS bets_user ON bets (user_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id             TEXT PRIMARY KEY,
		user_id        TEXT NOT NULL REFERENCES accounts (user_id),
		seq            BIGINT NOT NULL,
		kind           TEXT NOT NULL,
		amount_cents   BIGINT NOT NULL,
		balance_before BIGINT NOT NULL,
		balance_after  BIGINT NOT NULL CHECK (balance_after >= 0),
		round_id       TEXT NOT NULL DEFAULT '',
		bet_id         TEXT NOT NULL DEFAULT '',
		ref            TEXT NOT NULL DEFAULT '',
		note           TEXT NOT NULL DEFAULT '',
		created_at     BIGINT NOT NULL,
		UNIQUE (user_id, seq)
	)`,
	`CREATE INDEX IF NOT EXISTS ledger_round_kind ON ledger_entries (round_id, kind)`,
	// seeds comprometidos pelas rodadas (seed_hash); revealed_at > 0 libera a publicação
	`CREATE TABLE IF NOT EXISTS server_seeds (
		hash        TEXT PRIMARY KEY,
		seed        TEXT NOT NULL,
		created_at  BIGINT NOT NULL,
		revealed_at BIGINT NOT NULL DEFAULT 0
	)`,
	// idempotência de ajustes externos
	`CREATE UNIQUE INDEX IF NOT EXISTS ledger_user_ref ON ledger_entries (user_id, ref) WHERE ref <> ''`,
}

// Migrate cria as tabelas e índices se ainda não existirem
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return domain.Resource("migrate", err)
		}
	}
	return nil
}
