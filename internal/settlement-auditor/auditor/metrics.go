package auditor

import "github.com/prometheus/client_golang/prometheus"

// Metrics do settlement-auditor
type Metrics struct {
	Consumed   prometheus.Counter
	Verified   *prometheus.CounterVec
	Violations *prometheus.CounterVec
	Errors     *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Consumed:   prometheus.NewCounter(prometheus.CounterOpts{Name: "auditor_messages_consumed_total", Help: "mensagens round_settled consumidas"}),
		Verified:   prometheus.NewCounterVec(prometheus.CounterOpts{Name: "auditor_settlements_verified_total", Help: "liquidações conferidas sem divergência"}, []string{"game"}),
		Violations: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "auditor_settlement_violations_total", Help: "liquidações com divergência"}, []string{"game"}),
		Errors:     prometheus.NewCounterVec(prometheus.CounterOpts{Name: "auditor_errors_total", Help: "erros por fase"}, []string{"phase"}),
	}
	reg.MustRegister(m.Consumed, m.Verified, m.Violations, m.Errors)
	return m
}

// Wire liga os callbacks do Processor aos contadores
func (m *Metrics) Wire(p *Processor) {
	p.OnConsumed = m.Consumed.Inc
	p.OnVerified = func(game string) { m.Verified.WithLabelValues(game).Inc() }
	p.OnViolation = func(game string) { m.Violations.WithLabelValues(game).Inc() }
	p.OnError = func(phase string) { m.Errors.WithLabelValues(phase).Inc() }
}
