package domain

import "time"

// ServerSeed é um seed já usado em rodadas; o valor só é publicado depois de revelado
type ServerSeed struct {
	Hash       string
	Seed       string // hex
	CreatedAt  time.Time
	RevealedAt time.Time
}

func (s ServerSeed) Revealed() bool { return !s.RevealedAt.IsZero() }
