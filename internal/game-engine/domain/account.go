package domain

import "time"

// Account guarda o saldo de um usuário; criada no primeiro contato e nunca removida
type Account struct {
	UserID       string
	BalanceCents int64
	Active       bool
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type EntryKind string

const (
	EntryStake      EntryKind = "stake"
	EntryPayout     EntryKind = "payout"
	EntryDeposit    EntryKind = "deposit"
	EntryWithdrawal EntryKind = "withdrawal"
	EntryAdjustment EntryKind = "adjustment"
)

// LedgerEntry registra cada mudança de saldo; AmountCents é o delta com sinal
type LedgerEntry struct {
	ID            string
	UserID        string
	Seq           int64 // versão da conta após a mudança; ordena o histórico do usuário
	Kind          EntryKind
	AmountCents   int64
	BalanceBefore int64
	BalanceAfter  int64
	RoundID       string
	BetID         string
	Ref           string
	Note          string
	CreatedAt     time.Time
}
