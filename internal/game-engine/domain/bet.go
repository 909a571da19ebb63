package domain

import "time"

type BetStatus string

const (
	BetUnsettled BetStatus = "unsettled"
	BetWon       BetStatus = "won"
	BetLost      BetStatus = "lost"
)

// Bet é uma aposta de um usuário em uma seleção de uma rodada
type Bet struct {
	ID          string
	UserID      string
	RoundID     string
	Game        string
	Selection   string
	StakeCents  int64
	Status      BetStatus
	PayoutCents int64
	CreatedAt   time.Time
	SettledAt   time.Time
}

func (b Bet) Settled() bool { return b.Status != BetUnsettled }
