package engine

import "github.com/prometheus/client_golang/prometheus"

// Metrics agrupa os contadores do game-engine
type Metrics struct {
	BetsPlaced       *prometheus.CounterVec
	BetsRejected     *prometheus.CounterVec
	StakeCents       *prometheus.CounterVec
	PayoutCents      *prometheus.CounterVec
	RoundTransitions *prometheus.CounterVec
	RoundsSettled    *prometheus.CounterVec
	SchedulerRetries *prometheus.CounterVec
	SchedulerFailure *prometheus.CounterVec
	PublishErrors    *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BetsPlaced:       prometheus.NewCounterVec(prometheus.CounterOpts{Name: "engine_bets_placed_total", Help: "apostas aceitas"}, []string{"game"}),
		BetsRejected:     prometheus.NewCounterVec(prometheus.CounterOpts{Name: "engine_bets_rejected_total", Help: "apostas recusadas por motivo"}, []string{"reason"}),
		StakeCents:       prometheus.NewCounterVec(prometheus.CounterOpts{Name: "engine_stake_cents_total", Help: "centavos apostados"}, []string{"game"}),
		PayoutCents:      prometheus.NewCounterVec(prometheus.CounterOpts{Name: "engine_payout_cents_total", Help: "centavos pagos"}, []string{"game"}),
		RoundTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "engine_round_transitions_total", Help: "transições de estado de rodada"}, []string{"game", "state"}),
		RoundsSettled:    prometheus.NewCounterVec(prometheus.CounterOpts{Name: "engine_rounds_settled_total", Help: "rodadas liquidadas"}, []string{"game"}),
		SchedulerRetries: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "engine_scheduler_retries_total", Help: "retries do agendador por operação"}, []string{"game", "op"}),
		SchedulerFailure: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "engine_scheduler_failures_total", Help: "falhas reportadas pelo agendador"}, []string{"game", "kind"}),
		PublishErrors:    prometheus.NewCounterVec(prometheus.CounterOpts{Name: "engine_publish_errors_total", Help: "erros ao publicar eventos por destino"}, []string{"sink"}),
	}
	reg.MustRegister(
		m.BetsPlaced, m.BetsRejected, m.StakeCents, m.PayoutCents,
		m.RoundTransitions, m.RoundsSettled, m.SchedulerRetries, m.SchedulerFailure, m.PublishErrors,
	)
	return m
}
