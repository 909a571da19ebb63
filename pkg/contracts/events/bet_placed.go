package events

// Evento emitido pelo game-engine após uma aposta ser aceita e debitada
type BetPlaced struct {
	BetID        string `json:"bet_id"`
	UserID       string `json:"user_id"`
	RoundID      string `json:"round_id"`
	Game         string `json:"game"`
	Selection    string `json:"selection"`
	StakeCents   int64  `json:"stake_cents"`
	BalanceCents int64  `json:"balance_cents"` // saldo após o débito
	TsUnixMs     int64  `json:"ts_unix_ms"`
}
