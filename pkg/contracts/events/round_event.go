package events

// Evento publicado no tópico "round_events" a cada transição de estado de uma rodada
type RoundEvent struct {
	RoundID        string `json:"round_id"`
	Game           string `json:"game"`
	RoundNumber    int64  `json:"round_number"`
	From           string `json:"from,omitempty"`
	State          string `json:"state"`
	StartUnixMs    int64  `json:"start_unix_ms"`
	CloseUnixMs    int64  `json:"close_unix_ms"`
	EndUnixMs      int64  `json:"end_unix_ms"`
	Outcome        string `json:"outcome,omitempty"`
	OutcomeDetail  string `json:"outcome_detail,omitempty"`
	IsManualResult bool   `json:"is_manual_result"`
	SeedHash       string `json:"seed_hash,omitempty"`
	DrawProof      string `json:"draw_proof,omitempty"`
	TsUnixMs       int64  `json:"ts_unix_ms"`
}
