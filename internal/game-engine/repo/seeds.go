package repo

import (
	"context"
	"time"

	"github.com/radieske/betbot-engine/internal/game-engine/domain"
)

type seedRow struct {
	Hash       string `db:"hash"`
	Seed       string `db:"seed"`
	CreatedAt  int64  `db:"created_at"`
	RevealedAt int64  `db:"revealed_at"`
}

func (r seedRow) toDomain() domain.ServerSeed {
	return domain.ServerSeed{
		Hash:       r.Hash,
		Seed:       r.Seed,
		CreatedAt:  fromMs(r.CreatedAt),
		RevealedAt: fromMs(r.RevealedAt),
	}
}

// SaveSeed grava o seed do processo; regravar o mesmo hash não faz nada
func (c conn) SaveSeed(ctx context.Context, hash, seedHex string, now time.Time) error {
	_, err := c.exec(ctx, `INSERT INTO server_seeds (hash, seed, created_at, revealed_at)
		VALUES (?, ?, ?, 0) ON CONFLICT (hash) DO NOTHING`, hash, seedHex, toMs(now))
	return domain.Resource("save seed", err)
}

func (c conn) SeedByHash(ctx context.Context, hash string) (domain.ServerSeed, error) {
	var row seedRow
	err := c.get(ctx, &row, `SELECT hash, seed, created_at, revealed_at FROM server_seeds WHERE hash = ?`, hash)
	if err != nil {
		return domain.ServerSeed{}, notFound(err, domain.ErrSeedNotFound, "get seed")
	}
	return row.toDomain(), nil
}

// RevealRetiredSeeds libera os seeds que não são o atual e não têm rodada pendente
func (c conn) RevealRetiredSeeds(ctx context.Context, currentHash string, now time.Time) (int64, error) {
	res, err := c.exec(ctx, `UPDATE server_seeds SET revealed_at = ?
		WHERE revealed_at = 0 AND hash <> ?
		AND hash NOT IN (SELECT seed_hash FROM rounds WHERE state <> 'settled')`, toMs(now), currentHash)
	if err != nil {
		return 0, domain.Resource("reveal seeds", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, domain.Resource("reveal seeds", err)
	}
	return n, nil
}
