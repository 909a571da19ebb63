package game

import (
	"fmt"
	"sort"
	"time"

	"github.com/radieske/betbot-engine/internal/game-engine/domain"
)

const (
	ColorPrediction  = "color_prediction"
	ParityEvens      = "parity_evens"
	NumberPrediction = "number_prediction"
	WheelSpin        = "wheel_spin"
	Lucky7           = "lucky_7"
)

// Selection é uma opção de aposta e o multiplicador que ela paga quando vence
type Selection struct {
	Token      string `json:"token"`
	Multiplier int64  `json:"multiplier"`
}

// Variant descreve um jogo: tempos da rodada, seleções e regra de resultado
type Variant struct {
	ID         string
	Name       string
	Duration   time.Duration
	Cutoff     time.Duration
	Selections []Selection
	Rule       Rule
}

// ValidSelection indica se o token é uma seleção aceita pelo jogo
func (v Variant) ValidSelection(token string) bool {
	for _, s := range v.Selections {
		if s.Token == token {
			return true
		}
	}
	return false
}

// Window calcula fechamento e fim de uma rodada que começa em start
func (v Variant) Window(start time.Time) (closeAt, endAt time.Time) {
	endAt = start.Add(v.Duration)
	return endAt.Add(-v.Cutoff), endAt
}

// WithTiming devolve uma cópia com outros tempos de rodada
func (v Variant) WithTiming(duration, cutoff time.Duration) Variant {
	v.Duration = duration
	v.Cutoff = cutoff
	return v
}

func digits(mult int64) []Selection {
	out := make([]Selection, 0, 10)
	for d := 0; d <= 9; d++ {
		out = append(out, Selection{Token: fmt.Sprint(d), Multiplier: mult})
	}
	return out
}

func colorPrediction() Variant {
	sel := []Selection{{"red", 2}, {"green", 2}, {"violet", 5}}
	return Variant{ID: ColorPrediction, Name: "Color Prediction", Duration: 3 * time.Minute, Selections: sel, Rule: newMatchRule(sel)}
}

func parityEvens() Variant {
	sel := append([]Selection{{"even", 2}, {"odd", 2}}, digits(10)...)
	return Variant{ID: ParityEvens, Name: "Parity (Evens)", Duration: 3 * time.Minute, Selections: sel, Rule: parityRule{parityMult: 2, digitMult: 10}}
}

func numberPrediction() Variant {
	sel := digits(9)
	return Variant{ID: NumberPrediction, Name: "Number Prediction", Duration: time.Minute, Cutoff: 10 * time.Second, Selections: sel, Rule: newMatchRule(sel)}
}

func wheelSpin() Variant {
	sel := []Selection{{"red", 2}, {"green", 2}, {"blue", 2}, {"x5", 5}, {"x10", 10}, {"x20", 20}}
	return Variant{ID: WheelSpin, Name: "Wheel Spin", Duration: time.Minute, Cutoff: 10 * time.Second, Selections: sel, Rule: newMatchRule(sel)}
}

func lucky7() Variant {
	sel := []Selection{{LessThan7, 2}, {EqualTo7, 5}, {GreaterThan7, 2}}
	mult := map[string]int64{LessThan7: 2, EqualTo7: 5, GreaterThan7: 2}
	return Variant{ID: Lucky7, Name: "Lucky 7", Duration: time.Minute, Cutoff: 10 * time.Second, Selections: sel, Rule: diceRule{mult: mult}}
}

// Registry é o catálogo de jogos ativos
type Registry struct {
	byID map[string]Variant
}

func NewRegistry(vs ...Variant) *Registry {
	r := &Registry{byID: make(map[string]Variant, len(vs))}
	for _, v := range vs {
		r.byID[v.ID] = v
	}
	return r
}

// Default devolve o catálogo com os cinco jogos e seus tempos de produção
func Default() *Registry {
	return NewRegistry(colorPrediction(), parityEvens(), numberPrediction(), wheelSpin(), lucky7())
}

func (r *Registry) Lookup(id string) (Variant, error) {
	v, ok := r.byID[id]
	if !ok {
		return Variant{}, fmt.Errorf("%w: %s", domain.ErrUnknownGame, id)
	}
	return v, nil
}

// All devolve os jogos ordenados por id
func (r *Registry) All() []Variant {
	out := make([]Variant, 0, len(r.byID))
	for _, v := range r.byID {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
