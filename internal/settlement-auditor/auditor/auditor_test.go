package auditor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/betbot-engine/internal/game-engine/betting"
	"github.com/radieske/betbot-engine/internal/game-engine/domain"
	"github.com/radieske/betbot-engine/internal/game-engine/game"
	"github.com/radieske/betbot-engine/internal/game-engine/ledger"
	"github.com/radieske/betbot-engine/internal/game-engine/repo"
	"github.com/radieske/betbot-engine/internal/game-engine/settlement"
	storetest "github.com/radieske/betbot-engine/internal/game-engine/testutil"
	"github.com/radieske/betbot-engine/pkg/contracts/events"
)

var start = time.UnixMilli(1_700_000_000_000).UTC()

// settledRound cria uma rodada de color_prediction com duas apostas e a liquida como red
func settledRound(t *testing.T, store *repo.Store) events.RoundSettled {
	t.Helper()
	ctx := context.Background()
	l := ledger.New(zap.NewNop(), store)
	bets := betting.NewService(zap.NewNop(), store, l, game.Default())
	bets.Now = func() time.Time { return start.Add(time.Second) }

	v, err := game.Default().Lookup(game.ColorPrediction)
	require.NoError(t, err)
	closeAt, endAt := v.Window(start)
	var r domain.Round
	require.NoError(t, store.WithTx(ctx, func(tx *repo.Tx) error {
		r, err = tx.CreateNextRound(ctx, domain.Round{ID: uuid.NewString(), Game: v.ID, StartAt: start, CloseAt: closeAt, EndAt: endAt, CreatedAt: start})
		return err
	}))
	require.NoError(t, store.TransitionRound(ctx, r.ID, domain.RoundScheduled, domain.RoundOpen, start))

	for _, u := range []string{"alice", "bob"} {
		_, err := l.Credit(ctx, u, 10_000, ledger.Posting{Kind: domain.EntryDeposit})
		require.NoError(t, err)
	}
	_, err = bets.PlaceBet(ctx, betting.PlaceBetRequest{UserID: "alice", Game: v.ID, RoundID: r.ID, Selection: "red", StakeCents: 1000})
	require.NoError(t, err)
	_, err = bets.PlaceBet(ctx, betting.PlaceBetRequest{UserID: "bob", Game: v.ID, RoundID: r.ID, Selection: "green", StakeCents: 500})
	require.NoError(t, err)

	require.NoError(t, store.TransitionRound(ctx, r.ID, domain.RoundOpen, domain.RoundCutoff, start))
	require.NoError(t, store.TransitionRound(ctx, r.ID, domain.RoundCutoff, domain.RoundClosed, start))
	require.NoError(t, store.RecordOutcome(ctx, r.ID, "red", "", false, "", start))

	rep, err := settlement.New(zap.NewNop(), store, l, game.Default()).Settle(ctx, r.ID)
	require.NoError(t, err)
	return events.RoundSettled{
		RoundID:          rep.RoundID,
		Game:             rep.Game,
		RoundNumber:      rep.RoundNumber,
		Outcome:          rep.Outcome,
		BetsSettled:      rep.BetsSettled,
		Winners:          rep.Winners,
		TotalStakeCents:  rep.TotalStake,
		TotalPayoutCents: rep.TotalPayout,
	}
}

func TestVerify_CleanSettlement(t *testing.T) {
	store := storetest.OpenTestStore(t)
	ev := settledRound(t, store)
	assert.Equal(t, int64(2000), ev.TotalPayoutCents)

	problems, err := New(store, game.Default()).Verify(context.Background(), ev)
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestVerify_DetectsMismatches(t *testing.T) {
	ctx := context.Background()
	store := storetest.OpenTestStore(t)
	ev := settledRound(t, store)
	a := New(store, game.Default())

	reported := ev
	reported.TotalPayoutCents = 9999
	reported.Winners = 2
	problems, err := a.Verify(ctx, reported)
	require.NoError(t, err)
	assert.Contains(t, problems, "winners: store 1, event 2")
	assert.Contains(t, problems, "total payout: store 2000, event 9999")

	// aposta adulterada no banco: paga sem lançamento no razão
	_, err = store.DB().ExecContext(ctx, `UPDATE bets SET status = 'won', payout_cents = 1000 WHERE user_id = 'bob'`)
	require.NoError(t, err)
	problems, err = a.Verify(ctx, ev)
	require.NoError(t, err)
	assert.Contains(t, problems, "total payout: store 3000, event 2000")
	assert.Contains(t, problems, "payout entries: 1 entries summing 2000, winners 2 paid 3000")
	assert.Len(t, problems, 4)

	problems, err = a.Verify(ctx, events.RoundSettled{RoundID: "missing"})
	require.NoError(t, err)
	assert.Equal(t, []string{"round not found"}, problems)
}

type failingStore struct{ Store }

func (failingStore) GetRound(context.Context, string) (domain.Round, error) {
	return domain.Round{}, &domain.ResourceError{Op: "get round", Err: errors.New("db down")}
}

func TestVerify_StoreError(t *testing.T) {
	_, err := New(failingStore{}, game.Default()).Verify(context.Background(), events.RoundSettled{RoundID: "r1"})
	assert.Equal(t, domain.KindResource, domain.KindOf(err))
}

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) commits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func message(t *testing.T, v any) kafka.Message {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return kafka.Message{Value: b}
}

func TestProcessor_Run(t *testing.T) {
	store := storetest.OpenTestStore(t)
	ev := settledRound(t, store)
	bad := ev
	bad.TotalStakeCents = 1

	reader := &fakeReader{msgs: []kafka.Message{
		message(t, ev),
		{Value: []byte("not json")},
		message(t, bad),
	}}
	dlq := &fakeWriter{}
	metrics := NewMetrics(prometheus.NewRegistry())
	p := &Processor{Log: zap.NewNop(), Reader: reader, DLQ: dlq, Auditor: New(store, game.Default()), RetryDelay: time.Millisecond}
	metrics.Wire(p)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return reader.commits() == 3 }, 3*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	require.Len(t, dlq.msgs, 1)
	var v events.SettlementViolation
	require.NoError(t, json.Unmarshal(dlq.msgs[0].Value, &v))
	assert.Equal(t, ev.RoundID, v.RoundID)
	assert.Equal(t, []string{"total stake: store 1500, event 1"}, v.Problems)

	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.Consumed))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Verified.WithLabelValues(game.ColorPrediction)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Violations.WithLabelValues(game.ColorPrediction)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Errors.WithLabelValues("decode")))
}
