package events

// Evento publicado no tópico "round_settled_dlq" pelo settlement-auditor quando a
// liquidação de uma rodada não confere com o banco.
type SettlementViolation struct {
	RoundID  string       `json:"round_id"`
	Game     string       `json:"game"`
	Problems []string     `json:"problems"`
	Event    RoundSettled `json:"event"`
	TsUnixMs int64        `json:"ts_unix_ms"`
}
