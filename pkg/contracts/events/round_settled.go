package events

// Evento publicado no tópico "round_settled" quando a liquidação de uma rodada é confirmada.
// Consumido pelo settlement-auditor.
type RoundSettled struct {
	RoundID          string `json:"round_id"`
	Game             string `json:"game"`
	RoundNumber      int64  `json:"round_number"`
	Outcome          string `json:"outcome"`
	BetsSettled      int    `json:"bets_settled"`
	Winners          int    `json:"winners"`
	TotalStakeCents  int64  `json:"total_stake_cents"`
	TotalPayoutCents int64  `json:"total_payout_cents"`
	SettledUnixMs    int64  `json:"settled_unix_ms"`
	TsUnixMs         int64  `json:"ts_unix_ms"`
}
