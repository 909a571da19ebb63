package game

import (
	"fmt"
	"strconv"
	"strings"
)

// Outcome é o resultado de uma rodada; Value decide o pagamento e Detail é informativo
type Outcome struct {
	Value  string
	Detail string
}

// Rule sorteia, interpreta e paga o resultado de um tipo de jogo
type Rule interface {
	Draw(r *Rand) Outcome
	Parse(raw string) (Outcome, error)
	// Payouts devolve multiplicador por seleção vencedora; seleções ausentes pagam 0
	Payouts(value string) map[string]int64
}

// matchRule: sorteio uniforme entre opções, paga só a opção sorteada
type matchRule struct {
	options []string
	mult    map[string]int64
}

func newMatchRule(sel []Selection) matchRule {
	r := matchRule{mult: make(map[string]int64, len(sel))}
	for _, s := range sel {
		r.options = append(r.options, s.Token)
		r.mult[s.Token] = s.Multiplier
	}
	return r
}

func (m matchRule) Draw(r *Rand) Outcome {
	return Outcome{Value: m.options[r.Intn(len(m.options))]}
}

func (m matchRule) Parse(raw string) (Outcome, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if _, ok := m.mult[v]; !ok {
		return Outcome{}, fmt.Errorf("outcome %q not in %v", raw, m.options)
	}
	return Outcome{Value: v}, nil
}

func (m matchRule) Payouts(value string) map[string]int64 {
	if x, ok := m.mult[value]; ok {
		return map[string]int64{value: x}
	}
	return map[string]int64{}
}

// parityRule: dígito 0-9; paga paridade e dígito exato
type parityRule struct {
	parityMult int64
	digitMult  int64
}

func (p parityRule) Draw(r *Rand) Outcome {
	return Outcome{Value: strconv.Itoa(r.Intn(10))}
}

func (p parityRule) Parse(raw string) (Outcome, error) {
	return parseDigit(raw)
}

func (p parityRule) Payouts(value string) map[string]int64 {
	d, err := strconv.Atoi(value)
	if err != nil || d < 0 || d > 9 {
		return map[string]int64{}
	}
	out := map[string]int64{value: p.digitMult}
	if d%2 == 0 {
		out["even"] = p.parityMult
	} else {
		out["odd"] = p.parityMult
	}
	return out
}

func parseDigit(raw string) (Outcome, error) {
	v := strings.TrimSpace(raw)
	d, err := strconv.Atoi(v)
	if err != nil || d < 0 || d > 9 || len(v) != 1 {
		return Outcome{}, fmt.Errorf("outcome %q is not a digit 0-9", raw)
	}
	return Outcome{Value: v}, nil
}

const (
	LessThan7    = "less_than_7"
	EqualTo7     = "equal_to_7"
	GreaterThan7 = "greater_than_7"
)

// diceRule: soma de dois dados, paga a faixa da soma
type diceRule struct {
	mult map[string]int64
}

func diceCategory(sum int) string {
	switch {
	case sum < 7:
		return LessThan7
	case sum == 7:
		return EqualTo7
	default:
		return GreaterThan7
	}
}

func (d diceRule) Draw(r *Rand) Outcome {
	a, b := r.Intn(6)+1, r.Intn(6)+1
	sum := a + b
	return Outcome{Value: diceCategory(sum), Detail: fmt.Sprintf("%d+%d=%d", a, b, sum)}
}

// Parse aceita a faixa (equal_to_7) ou a soma (2-12)
func (d diceRule) Parse(raw string) (Outcome, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if _, ok := d.mult[v]; ok {
		return Outcome{Value: v}, nil
	}
	sum, err := strconv.Atoi(v)
	if err != nil || sum < 2 || sum > 12 {
		return Outcome{}, fmt.Errorf("outcome %q is neither a category nor a sum 2-12", raw)
	}
	return Outcome{Value: diceCategory(sum), Detail: fmt.Sprintf("sum=%d", sum)}, nil
}

func (d diceRule) Payouts(value string) map[string]int64 {
	if x, ok := d.mult[value]; ok {
		return map[string]int64{value: x}
	}
	return map[string]int64{}
}
