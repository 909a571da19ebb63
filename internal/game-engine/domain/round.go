package domain

import "time"

// RoundState é o estado do ciclo de vida de uma rodada
type RoundState string

const (
	RoundScheduled RoundState = "scheduled"
	RoundOpen      RoundState = "open"
	RoundCutoff    RoundState = "cutoff"
	RoundClosed    RoundState = "closed"
	RoundResolving RoundState = "resolving"
	RoundSettled   RoundState = "settled"
)

// transições permitidas; scheduled/open/cutoff podem fechar direto em force-resolve
var transitions = map[RoundState][]RoundState{
	RoundScheduled: {RoundOpen, RoundClosed},
	RoundOpen:      {RoundCutoff, RoundClosed},
	RoundCutoff:    {RoundClosed},
	RoundClosed:    {RoundResolving},
	RoundResolving: {RoundSettled},
}

func (s RoundState) CanTransition(to RoundState) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s RoundState) Terminal() bool { return s == RoundSettled }

// AcceptsBets indica se o estado aceita apostas (o horário ainda é checado à parte)
func (s RoundState) AcceptsBets() bool { return s == RoundOpen }

func (s RoundState) Valid() bool {
	switch s {
	case RoundScheduled, RoundOpen, RoundCutoff, RoundClosed, RoundResolving, RoundSettled:
		return true
	}
	return false
}

// Round é uma instância de um jogo com janela de apostas e resultado único
type Round struct {
	ID             string
	Game           string
	Number         int64
	State          RoundState
	StartAt        time.Time
	CloseAt        time.Time // EndAt - cutoff; apostas rejeitadas a partir daqui
	EndAt          time.Time
	Outcome        string
	OutcomeDetail  string
	IsManualResult bool
	SeedHash       string
	DrawProof      string
	SettledAt      time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasOutcome indica se o resultado já foi registrado
func (r Round) HasOutcome() bool { return r.Outcome != "" }

// BettingOpenAt diz se uma aposta feita em now seria aceita pela janela de tempo
func (r Round) BettingOpenAt(now time.Time) bool {
	return r.State.AcceptsBets() && !now.Before(r.StartAt) && now.Before(r.CloseAt)
}

// NextDeadline devolve o instante da próxima transição por tempo do estado atual
func (r Round) NextDeadline() (time.Time, RoundState, bool) {
	switch r.State {
	case RoundScheduled:
		return r.StartAt, RoundOpen, true
	case RoundOpen:
		return r.CloseAt, RoundCutoff, true
	case RoundCutoff:
		return r.EndAt, RoundClosed, true
	}
	return time.Time{}, "", false
}

// Snapshot é a visão pública da rodada corrente de um jogo
type Snapshot struct {
	RoundID        string     `json:"round_id"`
	Game           string     `json:"game"`
	RoundNumber    int64      `json:"round_number"`
	State          RoundState `json:"state"`
	StartAt        time.Time  `json:"start_at"`
	CloseAt        time.Time  `json:"close_at"`
	EndAt          time.Time  `json:"end_at"`
	Outcome        string     `json:"outcome,omitempty"`
	OutcomeDetail  string     `json:"outcome_detail,omitempty"`
	IsManualResult bool       `json:"is_manual_result"`
	SeedHash       string     `json:"seed_hash,omitempty"`
}

func (r Round) Snapshot() Snapshot {
	return Snapshot{
		RoundID:        r.ID,
		Game:           r.Game,
		RoundNumber:    r.Number,
		State:          r.State,
		StartAt:        r.StartAt,
		CloseAt:        r.CloseAt,
		EndAt:          r.EndAt,
		Outcome:        r.Outcome,
		OutcomeDetail:  r.OutcomeDetail,
		IsManualResult: r.IsManualResult,
		SeedHash:       r.SeedHash,
	}
}

// Remaining devolve o tempo até o fechamento das apostas (zero se já passou)
func (s Snapshot) Remaining(now time.Time) time.Duration {
	if d := s.CloseAt.Sub(now); d > 0 {
		return d
	}
	return 0
}
