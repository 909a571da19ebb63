package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/betbot-engine/internal/game-engine/betting"
	"github.com/radieske/betbot-engine/internal/game-engine/domain"
	"github.com/radieske/betbot-engine/internal/game-engine/dto"
	"github.com/radieske/betbot-engine/internal/game-engine/game"
)

type fakeEngine struct {
	snap     domain.Snapshot
	hasRound bool
	betReq   betting.PlaceBetRequest
	betErr   error
	resolved [2]string
	delta    int64
	adjErr   error
	storeErr error
	inactive map[string]bool
}

func (f *fakeEngine) Games() []game.Variant { return game.Default().All() }

func (f *fakeEngine) GetCurrentRound(_ context.Context, gameID string) (domain.Snapshot, bool, error) {
	if _, err := game.Default().Lookup(gameID); err != nil {
		return domain.Snapshot{}, false, err
	}
	return f.snap, f.hasRound, f.storeErr
}

func (f *fakeEngine) RecentRounds(context.Context, string, int) ([]domain.Round, error) {
	return []domain.Round{{ID: "r1", Number: 1, State: domain.RoundSettled, Outcome: "red"}}, nil
}

func (f *fakeEngine) PlaceBetDetailed(_ context.Context, req betting.PlaceBetRequest) (betting.Placed, error) {
	f.betReq = req
	if f.betErr != nil {
		return betting.Placed{}, f.betErr
	}
	return betting.Placed{
		Bet:          domain.Bet{ID: "b1", UserID: req.UserID, RoundID: req.RoundID, Game: req.Game, Selection: req.Selection, StakeCents: req.StakeCents, Status: domain.BetUnsettled},
		BalanceCents: 9000,
	}, nil
}

func (f *fakeEngine) Balance(_ context.Context, userID string) (domain.Account, error) {
	return domain.Account{UserID: userID, BalanceCents: 12345, Active: true}, nil
}

func (f *fakeEngine) History(context.Context, string, int) ([]domain.LedgerEntry, error) {
	return []domain.LedgerEntry{{ID: "e1", Seq: 2, Kind: domain.EntryStake, AmountCents: -1000, BalanceBefore: 10000, BalanceAfter: 9000}}, nil
}

func (f *fakeEngine) UserBets(context.Context, string, int) ([]domain.Bet, error) {
	return []domain.Bet{{ID: "b1", StakeCents: 1000, Status: domain.BetWon, PayoutCents: 2000}}, nil
}

func (f *fakeEngine) ForceResolve(_ context.Context, roundID, outcome string) error {
	f.resolved = [2]string{roundID, outcome}
	return nil
}

func (f *fakeEngine) AdjustBalance(_ context.Context, _ string, delta int64, _, _ string) (int64, error) {
	f.delta = delta
	if f.adjErr != nil {
		return 0, f.adjErr
	}
	return 10000 + delta, nil
}

func (f *fakeEngine) DeactivateUser(_ context.Context, userID string) error {
	if f.inactive == nil {
		f.inactive = map[string]bool{}
	}
	f.inactive[userID] = true
	return nil
}

func (f *fakeEngine) ReactivateUser(_ context.Context, userID string) error {
	delete(f.inactive, userID)
	return nil
}

func (f *fakeEngine) Seed(_ context.Context, hash string) (domain.ServerSeed, error) {
	switch hash {
	case "old":
		return domain.ServerSeed{Hash: "old", Seed: "abcd", RevealedAt: time.UnixMilli(1_700_000_000_000)}, nil
	case "current":
		return domain.ServerSeed{}, domain.ErrSeedNotRevealed
	}
	return domain.ServerSeed{}, domain.ErrSeedNotFound
}

func do(t *testing.T, h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func newServer(f *fakeEngine) http.Handler {
	return NewServer(zap.NewNop(), f, "s3cret").Router()
}

func TestListGames(t *testing.T) {
	rec := do(t, newServer(&fakeEngine{}), http.MethodGet, "/v1/games", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var games []dto.GameResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&games))
	require.Len(t, games, 5)
	assert.Equal(t, game.ColorPrediction, games[0].ID)
	assert.Equal(t, int64(180), games[0].DurationSeconds)
}

func TestCurrentRound(t *testing.T) {
	f := &fakeEngine{}
	h := newServer(f)

	rec := do(t, h, http.MethodGet, "/v1/games/bingo/current", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown_game")

	rec = do(t, h, http.MethodGet, "/v1/games/lucky_7/current", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no_active_round")

	f.hasRound = true
	f.snap = domain.Snapshot{RoundID: "r9", Game: game.Lucky7, RoundNumber: 9, State: domain.RoundOpen, CloseAt: time.Now().Add(time.Minute)}
	rec = do(t, h, http.MethodGet, "/v1/games/lucky_7/current", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got dto.RoundResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "r9", got.RoundID)
	assert.Greater(t, got.RemainingMs, int64(0))

	f.storeErr = &domain.ResourceError{Op: "active round", Err: assert.AnError}
	rec = do(t, h, http.MethodGet, "/v1/games/lucky_7/current", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPlaceBet(t *testing.T) {
	f := &fakeEngine{}
	h := newServer(f)

	rec := do(t, h, http.MethodPost, "/v1/bets", `{"user_id":"u1","game":"color_prediction","round_id":"r1","selection":"red","amount":"10.00"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, int64(1000), f.betReq.StakeCents)

	var got dto.BetResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "Bet placed: 10.00 on red. Balance: 90.00", got.Message)

	rec = do(t, h, http.MethodPost, "/v1/bets", `{"user_id":"u1","game":"color_prediction","round_id":"r1","selection":"red"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_payload")

	rec = do(t, h, http.MethodPost, "/v1/bets", `{"user_id":"u1","game":"color_prediction","round_id":"r1","selection":"red","amount":"1.001"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_amount")

	rec = do(t, h, http.MethodPost, "/v1/bets", `{bad`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlaceBet_ErrorStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{domain.ErrRoundNotFound, http.StatusNotFound},
		{domain.ErrInvalidSelection, http.StatusBadRequest},
		{domain.ErrRoundClosed, http.StatusConflict},
		{domain.ErrInsufficientBalance, http.StatusUnprocessableEntity},
		{domain.Invariantf("broken"), http.StatusInternalServerError},
		{assert.AnError, http.StatusServiceUnavailable},
	}
	body := `{"user_id":"u1","game":"color_prediction","round_id":"r1","selection":"red","amount":"1"}`
	for _, tc := range cases {
		rec := do(t, newServer(&fakeEngine{betErr: tc.err}), http.MethodPost, "/v1/bets", body, nil)
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
	}
}

func TestUserRoutes(t *testing.T) {
	h := newServer(&fakeEngine{})

	rec := do(t, h, http.MethodGet, "/v1/users/u1/balance", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"balance":"123.45"`)

	rec = do(t, h, http.MethodGet, "/v1/users/u1/transactions?limit=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"amount":"-10.00"`)

	rec = do(t, h, http.MethodGet, "/v1/users/u1/bets", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"payout":"20.00"`)
}

func TestAdminRoutes(t *testing.T) {
	f := &fakeEngine{}
	h := newServer(f)
	admin := map[string]string{"X-Admin-Token": "s3cret"}

	rec := do(t, h, http.MethodPost, "/admin/rounds/r1/resolve", `{"outcome":"red"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/admin/rounds/r1/resolve", `{"outcome":"red"}`, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, [2]string{"r1", "red"}, f.resolved)
	assert.Contains(t, rec.Body.String(), "Round r1 resolved as red")

	rec = do(t, h, http.MethodPost, "/admin/users/u1/adjust", `{"amount":"-2.50"}`, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(-250), f.delta)
	assert.Contains(t, rec.Body.String(), "New balance: 97.50")

	f.adjErr = domain.ErrInsufficientFunds
	rec = do(t, h, http.MethodPost, "/admin/users/u1/adjust", `{"amount":"-500"}`, admin)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient funds")

	rec = do(t, h, http.MethodPost, "/admin/users/u1/deactivate", "", admin)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, f.inactive["u1"])

	rec = do(t, h, http.MethodPost, "/admin/users/u1/activate", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.True(t, f.inactive["u1"])

	rec = do(t, h, http.MethodPost, "/admin/users/u1/activate", "", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "User u1 activated")
	assert.False(t, f.inactive["u1"])
}

func TestSeed(t *testing.T) {
	h := newServer(&fakeEngine{})

	rec := do(t, h, http.MethodGet, "/v1/seeds/old", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got dto.SeedResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "abcd", got.Seed)

	rec = do(t, h, http.MethodGet, "/v1/seeds/current", "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "seed_not_revealed")

	rec = do(t, h, http.MethodGet, "/v1/seeds/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminDisabledWithoutToken(t *testing.T) {
	h := NewServer(zap.NewNop(), &fakeEngine{}, "").Router()
	rec := do(t, h, http.MethodPost, "/admin/users/u1/deactivate", "", map[string]string{"X-Admin-Token": ""})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
