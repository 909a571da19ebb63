package game

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/betbot-engine/internal/game-engine/domain"
)

const testSeed = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func seeds(t *testing.T) *SeedManager {
	t.Helper()
	s, err := NewSeedManager(testSeed)
	require.NoError(t, err)
	return s
}

func TestDefault_Catalog(t *testing.T) {
	reg := Default()

	tests := []struct {
		id       string
		duration time.Duration
		cutoff   time.Duration
	}{
		{ColorPrediction, 3 * time.Minute, 0},
		{ParityEvens, 3 * time.Minute, 0},
		{NumberPrediction, time.Minute, 10 * time.Second},
		{WheelSpin, time.Minute, 10 * time.Second},
		{Lucky7, time.Minute, 10 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			v, err := reg.Lookup(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.duration, v.Duration)
			assert.Equal(t, tt.cutoff, v.Cutoff)
		})
	}

	_, err := reg.Lookup("roulette")
	assert.ErrorIs(t, err, domain.ErrUnknownGame)
	assert.Len(t, reg.All(), 5)
}

func TestPayouts(t *testing.T) {
	reg := Default()
	tests := []struct {
		game    string
		outcome string
		want    map[string]int64
	}{
		{ColorPrediction, "red", map[string]int64{"red": 2}},
		{ColorPrediction, "violet", map[string]int64{"violet": 5}},
		{ParityEvens, "4", map[string]int64{"even": 2, "4": 10}},
		{ParityEvens, "7", map[string]int64{"odd": 2, "7": 10}},
		{NumberPrediction, "3", map[string]int64{"3": 9}},
		{WheelSpin, "x20", map[string]int64{"x20": 20}},
		{WheelSpin, "blue", map[string]int64{"blue": 2}},
		{Lucky7, EqualTo7, map[string]int64{EqualTo7: 5}},
		{Lucky7, LessThan7, map[string]int64{LessThan7: 2}},
		{Lucky7, "bogus", map[string]int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.game+"/"+tt.outcome, func(t *testing.T) {
			v, err := reg.Lookup(tt.game)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Payouts(v, tt.outcome))
		})
	}
}

func TestDraw_Deterministic(t *testing.T) {
	s := seeds(t)
	for _, v := range Default().All() {
		a := Draw(v, s, 42)
		b := Draw(v, s, 42)
		assert.Equal(t, a, b, v.ID)
		assert.NotEmpty(t, a.Proof)
		assert.False(t, a.Manual)
		assert.NotEmpty(t, a.Payouts, v.ID)
	}
}

func TestDraw_OutcomesInRange(t *testing.T) {
	s := seeds(t)
	reg := Default()

	for _, v := range reg.All() {
		seen := map[string]bool{}
		for n := int64(1); n <= 400; n++ {
			res := Draw(v, s, n)
			seen[res.Outcome.Value] = true
			_, err := v.Rule.Parse(res.Outcome.Value)
			assert.NoError(t, err, "%s round %d drew %q", v.ID, n, res.Outcome.Value)
		}
		// 400 sorteios cobrem todas as opções com folga
		switch v.ID {
		case ColorPrediction, Lucky7:
			assert.Len(t, seen, 3, v.ID)
		case WheelSpin:
			assert.Len(t, seen, 6, v.ID)
		default:
			assert.Len(t, seen, 10, v.ID)
		}
	}
}

func TestDraw_Lucky7Detail(t *testing.T) {
	v, _ := Default().Lookup(Lucky7)
	res := Draw(v, seeds(t), 7)

	parts := strings.Split(res.Outcome.Detail, "=")
	require.Len(t, parts, 2)
	dice := strings.Split(parts[0], "+")
	require.Len(t, dice, 2)
	assert.Equal(t, diceCategory(atoi(t, dice[0])+atoi(t, dice[1])), res.Outcome.Value)
}

func TestOverride(t *testing.T) {
	reg := Default()

	v, _ := reg.Lookup(Lucky7)
	res, err := Override(v, "7")
	require.NoError(t, err)
	assert.Equal(t, EqualTo7, res.Outcome.Value)
	assert.True(t, res.Manual)
	assert.Equal(t, map[string]int64{EqualTo7: 5}, res.Payouts)

	res, err = Override(v, "greater_than_7")
	require.NoError(t, err)
	assert.Equal(t, GreaterThan7, res.Outcome.Value)

	_, err = Override(v, "13")
	assert.ErrorIs(t, err, domain.ErrInvalidOutcome)

	c, _ := reg.Lookup(ColorPrediction)
	res, err = Override(c, " Violet ")
	require.NoError(t, err)
	assert.Equal(t, "violet", res.Outcome.Value)

	_, err = Override(c, "blue")
	assert.ErrorIs(t, err, domain.ErrInvalidOutcome)

	p, _ := reg.Lookup(ParityEvens)
	_, err = Override(p, "10")
	assert.ErrorIs(t, err, domain.ErrInvalidOutcome)
}

func TestVariant_Window(t *testing.T) {
	v, _ := Default().Lookup(NumberPrediction)
	start := time.Unix(0, 0)
	closeAt, endAt := v.Window(start)
	assert.Equal(t, start.Add(50*time.Second), closeAt)
	assert.Equal(t, start.Add(60*time.Second), endAt)

	c, _ := Default().Lookup(ColorPrediction)
	closeAt, endAt = c.Window(start)
	assert.Equal(t, endAt, closeAt)

	assert.True(t, v.ValidSelection("0"))
	assert.False(t, v.ValidSelection("even"))
}

func TestSeedManager(t *testing.T) {
	s := seeds(t)
	assert.Len(t, s.Hash, 64)
	assert.Equal(t, testSeed, s.Reveal())

	_, err := NewSeedManager("zz")
	assert.Error(t, err)
	_, err = NewSeedManager("abcd")
	assert.Error(t, err)

	r1, err := NewSeedManager("")
	require.NoError(t, err)
	r2, err := NewSeedManager("")
	require.NoError(t, err)
	assert.NotEqual(t, r1.Hash, r2.Hash)
}

func TestRand_Intn(t *testing.T) {
	r := NewRand([]byte("seed"), "g", 1)
	for i := 0; i < 1000; i++ {
		n := r.Intn(6)
		assert.GreaterOrEqual(t, n, 0)
		assert.Less(t, n, 6)
	}
	assert.Panics(t, func() { r.Intn(0) })
}

func atoi(t *testing.T, s string) int {
	t.Helper()
	n := 0
	for _, c := range s {
		require.True(t, c >= '0' && c <= '9')
		n = n*10 + int(c-'0')
	}
	return n
}
