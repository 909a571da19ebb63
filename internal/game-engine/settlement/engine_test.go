package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/betbot-engine/internal/game-engine/betting"
	"github.com/radieske/betbot-engine/internal/game-engine/domain"
	"github.com/radieske/betbot-engine/internal/game-engine/game"
	"github.com/radieske/betbot-engine/internal/game-engine/ledger"
	"github.com/radieske/betbot-engine/internal/game-engine/repo"
	"github.com/radieske/betbot-engine/internal/game-engine/testutil"
)

var start = time.UnixMilli(1_700_000_000_000).UTC()

type fixture struct {
	store  *repo.Store
	ledger *ledger.Ledger
	bets   *betting.Service
	engine *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := testutil.OpenTestStore(t)
	l := ledger.New(zap.NewNop(), store)
	bets := betting.NewService(zap.NewNop(), store, l, game.Default())
	bets.Now = func() time.Time { return start.Add(time.Second) }
	return &fixture{store: store, ledger: l, bets: bets, engine: New(zap.NewNop(), store, l, game.Default())}
}

func (f *fixture) openRound(t *testing.T, id string) domain.Round {
	t.Helper()
	ctx := context.Background()
	v, err := game.Default().Lookup(id)
	require.NoError(t, err)
	closeAt, endAt := v.Window(start)

	var r domain.Round
	require.NoError(t, f.store.WithTx(ctx, func(tx *repo.Tx) error {
		r, err = tx.CreateNextRound(ctx, domain.Round{ID: uuid.NewString(), Game: id, StartAt: start, CloseAt: closeAt, EndAt: endAt, CreatedAt: start})
		return err
	}))
	require.NoError(t, f.store.TransitionRound(ctx, r.ID, domain.RoundScheduled, domain.RoundOpen, start))
	return r
}

func (f *fixture) fund(t *testing.T, user string, cents int64) {
	t.Helper()
	_, err := f.ledger.Credit(context.Background(), user, cents, ledger.Posting{Kind: domain.EntryDeposit})
	require.NoError(t, err)
}

func (f *fixture) bet(t *testing.T, r domain.Round, user, sel string, stake int64) {
	t.Helper()
	_, err := f.bets.PlaceBet(context.Background(), betting.PlaceBetRequest{UserID: user, Game: r.Game, RoundID: r.ID, Selection: sel, StakeCents: stake})
	require.NoError(t, err)
}

// resolve fecha a rodada e grava o resultado (closed -> resolving)
func (f *fixture) resolve(t *testing.T, r domain.Round, outcome string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.TransitionRound(ctx, r.ID, domain.RoundOpen, domain.RoundCutoff, start))
	require.NoError(t, f.store.TransitionRound(ctx, r.ID, domain.RoundCutoff, domain.RoundClosed, start))
	require.NoError(t, f.store.RecordOutcome(ctx, r.ID, outcome, "", false, "", start))
}

func (f *fixture) balance(t *testing.T, user string) int64 {
	t.Helper()
	acc, err := f.ledger.Balance(context.Background(), user)
	require.NoError(t, err)
	return acc.BalanceCents
}

func TestSettle_ColorRedWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.openRound(t, game.ColorPrediction)
	f.fund(t, "u1", 100)

	f.bet(t, r, "u1", "red", 10)
	assert.Equal(t, int64(90), f.balance(t, "u1"))

	f.resolve(t, r, "red")
	rep, err := f.engine.Settle(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(110), f.balance(t, "u1"))
	assert.Equal(t, 1, rep.BetsSettled)
	assert.Equal(t, 1, rep.Winners)
	assert.Equal(t, int64(20), rep.TotalPayout)
	assert.False(t, rep.AlreadySettled)

	round, err := f.store.GetRound(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoundSettled, round.State)
	assert.False(t, round.SettledAt.IsZero())

	bets, err := f.store.ListBetsByRound(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BetWon, bets[0].Status)
	assert.Equal(t, int64(20), bets[0].PayoutCents)
}

func TestSettle_Lucky7(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.openRound(t, game.Lucky7)
	f.fund(t, "seven", 20)
	f.fund(t, "low", 20)

	f.bet(t, r, "seven", game.EqualTo7, 20)
	f.bet(t, r, "low", game.LessThan7, 20)

	f.resolve(t, r, game.EqualTo7)
	rep, err := f.engine.Settle(ctx, r.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(100), f.balance(t, "seven"))
	assert.Equal(t, int64(0), f.balance(t, "low"))
	assert.Equal(t, 2, rep.BetsSettled)
	assert.Equal(t, 1, rep.Winners)
	assert.Equal(t, int64(40), rep.TotalStake)
}

func TestSettle_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.openRound(t, game.WheelSpin)
	f.fund(t, "u1", 100)
	f.bet(t, r, "u1", "x5", 10)
	f.bet(t, r, "u1", "red", 10)
	f.resolve(t, r, "x5")

	first, err := f.engine.Settle(ctx, r.ID)
	require.NoError(t, err)
	bal := f.balance(t, "u1")
	assert.Equal(t, int64(130), bal)

	second, err := f.engine.Settle(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, second.AlreadySettled)
	assert.Equal(t, bal, f.balance(t, "u1"))
	assert.Equal(t, first.TotalPayout, second.TotalPayout)
	assert.Equal(t, first.BetsSettled, second.BetsSettled)

	hist, err := f.ledger.History(ctx, "u1", 50)
	require.NoError(t, err)
	assert.Len(t, hist, 4) // depósito, duas apostas, um pagamento
}

func TestSettle_RequiresOutcome(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.openRound(t, game.ParityEvens)

	_, err := f.engine.Settle(ctx, r.ID)
	assert.ErrorIs(t, err, domain.ErrRoundNotResolved)

	_, err = f.engine.Settle(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrRoundNotFound)
}

func TestSettle_ForceClosedRound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.openRound(t, game.NumberPrediction)
	f.fund(t, "u1", 50)
	f.bet(t, r, "u1", "4", 5)

	r.State = domain.RoundOpen
	require.NoError(t, f.store.ForceClose(ctx, r, "4", "", start.Add(2*time.Second)))

	rep, err := f.engine.Settle(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(45), rep.TotalPayout)
	assert.Equal(t, int64(90), f.balance(t, "u1"))
}

// soma dos stakes debitados + pagamentos creditados = variação total dos saldos
func TestSettle_LedgerMatchesBets(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.openRound(t, game.ParityEvens)

	users := []string{"a", "b", "c", "d"}
	for _, u := range users {
		f.fund(t, u, 1000)
	}
	sels := []string{"even", "odd", "4", "7", "even", "0"}
	var stake int64
	for i, sel := range sels {
		amt := int64(10 * (i + 1))
		f.bet(t, r, users[i%len(users)], sel, amt)
		stake += amt
	}
	f.resolve(t, r, "4")

	rep, err := f.engine.Settle(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, stake, rep.TotalStake)

	stakes, err := f.store.SumEntriesByRound(ctx, r.ID, domain.EntryStake)
	require.NoError(t, err)
	payouts, err := f.store.SumEntriesByRound(ctx, r.ID, domain.EntryPayout)
	require.NoError(t, err)
	assert.Equal(t, -stake, stakes.Sum)
	assert.Equal(t, int64(len(sels)), stakes.Count)
	assert.Equal(t, rep.TotalPayout, payouts.Sum)

	var total int64
	for _, u := range users {
		total += f.balance(t, u)
	}
	assert.Equal(t, int64(4000)-stake+rep.TotalPayout, total)
	// even 10x2 + 4 30x10 + even 50x2
	assert.Equal(t, int64(20+300+100), rep.TotalPayout)
}

func TestPayoutFor_Overflow(t *testing.T) {
	_, err := payoutFor(domain.Bet{ID: "b", Selection: "x", StakeCents: 1 << 62}, map[string]int64{"x": 20})
	assert.Equal(t, domain.KindInvariant, domain.KindOf(err))

	p, err := payoutFor(domain.Bet{Selection: "y", StakeCents: 10}, map[string]int64{"x": 20})
	require.NoError(t, err)
	assert.Zero(t, p)
}
