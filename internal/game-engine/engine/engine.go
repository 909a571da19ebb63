package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/betbot-engine/internal/game-engine/betting"
	"github.com/radieske/betbot-engine/internal/game-engine/cache"
	"github.com/radieske/betbot-engine/internal/game-engine/domain"
	"github.com/radieske/betbot-engine/internal/game-engine/game"
	"github.com/radieske/betbot-engine/internal/game-engine/ledger"
	"github.com/radieske/betbot-engine/internal/game-engine/repo"
	"github.com/radieske/betbot-engine/internal/game-engine/scheduler"
	"github.com/radieske/betbot-engine/internal/game-engine/settlement"
	"github.com/radieske/betbot-engine/internal/shared/money"
	"github.com/radieske/betbot-engine/pkg/contracts/events"
)

// Publisher publica os eventos do motor (Kafka em produção)
type Publisher interface {
	PublishRoundEvent(ctx context.Context, e events.RoundEvent) error
	PublishBetPlaced(ctx context.Context, e events.BetPlaced) error
	PublishRoundSettled(ctx context.Context, e events.RoundSettled) error
}

// Deps são as dependências do motor; Cache, Broadcaster, Publisher e Metrics são opcionais
type Deps struct {
	Log         *zap.Logger
	Store       *repo.Store
	Games       *game.Registry
	Seeds       *game.SeedManager
	Scheduler   scheduler.Config
	Cache       *cache.RoundCache
	Broadcaster *cache.Broadcaster
	Publisher   Publisher
	Metrics     *Metrics
}

// Engine é a API de biblioteca do motor de rodadas usada pela camada de chat/HTTP
type Engine struct {
	log      *zap.Logger
	store    *repo.Store
	games    *game.Registry
	seeds    *game.SeedManager
	ledger   *ledger.Ledger
	bets     *betting.Service
	settler  *settlement.Engine
	group    *scheduler.Group
	cache    *cache.RoundCache
	bcast    *cache.Broadcaster
	pub      Publisher
	metrics  *Metrics
	hookWait time.Duration
}

func New(d Deps) *Engine {
	e := &Engine{
		log:      d.Log,
		store:    d.Store,
		games:    d.Games,
		seeds:    d.Seeds,
		ledger:   ledger.New(d.Log, d.Store),
		cache:    d.Cache,
		bcast:    d.Broadcaster,
		pub:      d.Publisher,
		metrics:  d.Metrics,
		hookWait: 500 * time.Millisecond,
	}
	e.bets = betting.NewService(d.Log, d.Store, e.ledger, d.Games)
	e.bets.OnPlaced = e.onBetPlaced
	e.bets.OnRejected = e.onBetRejected
	e.settler = settlement.New(d.Log, d.Store, e.ledger, d.Games)

	var ss []*scheduler.Scheduler
	for _, v := range d.Games.All() {
		gameID := v.ID
		ss = append(ss, scheduler.New(d.Log, d.Store, e.settler, v, d.Seeds, d.Scheduler, scheduler.Hooks{
			OnTransition: e.onTransition,
			OnSettled:    e.onSettled,
			OnRetry: func(op string, _ error, _ time.Duration) {
				if e.metrics != nil {
					e.metrics.SchedulerRetries.WithLabelValues(gameID, op).Inc()
				}
			},
			OnFailure: func(_ string, err error) { e.onFailure(gameID, err) },
		}))
	}
	e.group = scheduler.NewGroup(d.Log, ss...)
	return e
}

// Run roda os agendadores de todos os jogos até ctx ser cancelado
func (e *Engine) Run(ctx context.Context) error {
	// seeds de execuções anteriores sem rodada pendente podem ser publicados
	n, err := e.store.RevealRetiredSeeds(ctx, e.seeds.Hash, time.Now())
	if err != nil {
		e.log.Warn("reveal seeds failed", zap.Error(err))
	} else if n > 0 {
		e.log.Info("server seeds revealed", zap.Int64("count", n))
	}
	return e.group.Run(ctx)
}

// SeedHash é o compromisso do seed em uso, gravado em cada rodada nova
func (e *Engine) SeedHash() string { return e.seeds.Hash }

// Seed devolve um seed revelado para conferência dos sorteios; o seed em uso nunca é exposto
func (e *Engine) Seed(ctx context.Context, hash string) (domain.ServerSeed, error) {
	seed, err := e.store.SeedByHash(ctx, hash)
	if err != nil {
		return domain.ServerSeed{}, err
	}
	if !seed.Revealed() {
		return domain.ServerSeed{}, domain.ErrSeedNotRevealed
	}
	return seed, nil
}

// Games devolve o catálogo de jogos
func (e *Engine) Games() []game.Variant { return e.games.All() }

// PlaceBet registra uma aposta e devolve (ok, mensagem para o usuário)
func (e *Engine) PlaceBet(ctx context.Context, userID, gameID, roundID, selection string, amount int64) (bool, string) {
	placed, err := e.PlaceBetDetailed(ctx, betting.PlaceBetRequest{
		UserID:     userID,
		Game:       gameID,
		RoundID:    roundID,
		Selection:  selection,
		StakeCents: amount,
	})
	if err != nil {
		return false, domain.Message(err)
	}
	return true, fmt.Sprintf("Bet placed: %s on %s. Balance: %s",
		money.Format(placed.Bet.StakeCents), placed.Bet.Selection, money.Format(placed.BalanceCents))
}

func (e *Engine) PlaceBetDetailed(ctx context.Context, req betting.PlaceBetRequest) (betting.Placed, error) {
	return e.bets.PlaceBet(ctx, req)
}

// GetCurrentRound devolve a rodada não liquidada do jogo, consultando o cache antes do banco
func (e *Engine) GetCurrentRound(ctx context.Context, gameID string) (domain.Snapshot, bool, error) {
	if _, err := e.games.Lookup(gameID); err != nil {
		return domain.Snapshot{}, false, err
	}

	if e.cache != nil {
		snap, ok, err := e.cache.GetCurrent(ctx, gameID)
		if err != nil {
			e.log.Warn("round cache get failed", zap.String("game", gameID), zap.Error(err))
		} else if ok && !snap.State.Terminal() {
			return snap, true, nil
		}
	}

	r, ok, err := e.store.ActiveRound(ctx, gameID)
	if err != nil || !ok {
		return domain.Snapshot{}, false, err
	}
	snap := r.Snapshot()
	if e.cache != nil {
		if err := e.cache.SetCurrent(ctx, snap); err != nil {
			e.log.Warn("round cache set failed", zap.String("game", gameID), zap.Error(err))
		}
	}
	return snap, true, nil
}

// RecentRounds devolve as últimas rodadas do jogo
func (e *Engine) RecentRounds(ctx context.Context, gameID string, limit int) ([]domain.Round, error) {
	if _, err := e.games.Lookup(gameID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return e.store.ListRounds(ctx, gameID, limit)
}

// AdminForceResolve fecha a rodada com o resultado informado e a liquida
func (e *Engine) AdminForceResolve(ctx context.Context, roundID, outcome string) (bool, string) {
	if err := e.ForceResolve(ctx, roundID, outcome); err != nil {
		return false, domain.Message(err)
	}
	return true, fmt.Sprintf("Round %s resolved as %s", roundID, outcome)
}

func (e *Engine) ForceResolve(ctx context.Context, roundID, outcome string) error {
	r, err := e.store.GetRound(ctx, roundID)
	if err != nil {
		return err
	}
	s, ok := e.group.Get(r.Game)
	if !ok {
		return domain.ErrUnknownGame
	}
	if err := s.ForceResolve(ctx, roundID, outcome); err != nil {
		e.log.Warn("force resolve rejected", zap.String("round_id", roundID), zap.String("outcome", outcome), zap.Error(err))
		return err
	}
	return nil
}

// AdminAdjustBalance credita (delta > 0) ou debita (delta < 0) o saldo do usuário
func (e *Engine) AdminAdjustBalance(ctx context.Context, userID string, delta int64, ref, note string) (bool, string) {
	bal, err := e.ledger.Adjust(ctx, userID, delta, ref, note)
	if err != nil {
		return false, domain.Message(err)
	}
	return true, fmt.Sprintf("Balance updated. New balance: %s", money.Format(bal))
}

func (e *Engine) AdjustBalance(ctx context.Context, userID string, delta int64, ref, note string) (int64, error) {
	return e.ledger.Adjust(ctx, userID, delta, ref, note)
}

func (e *Engine) Balance(ctx context.Context, userID string) (domain.Account, error) {
	return e.ledger.Balance(ctx, userID)
}

// History devolve os últimos lançamentos do usuário (10 por padrão)
func (e *Engine) History(ctx context.Context, userID string, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return e.ledger.History(ctx, userID, limit)
}

func (e *Engine) UserBets(ctx context.Context, userID string, limit int) ([]domain.Bet, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return e.store.ListBetsByUser(ctx, userID, limit)
}

func (e *Engine) DeactivateUser(ctx context.Context, userID string) error {
	return e.ledger.Deactivate(ctx, userID)
}

func (e *Engine) ReactivateUser(ctx context.Context, userID string) error {
	return e.ledger.Reactivate(ctx, userID)
}

// Ping valida o banco; usado pelo /healthz
func (e *Engine) Ping(ctx context.Context) error { return e.store.Ping(ctx) }

func (e *Engine) onTransition(r domain.Round, from domain.RoundState) {
	if e.metrics != nil {
		e.metrics.RoundTransitions.WithLabelValues(r.Game, string(r.State)).Inc()
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.hookWait)
	defer cancel()

	if e.cache != nil {
		if err := e.cache.SetCurrent(ctx, r.Snapshot()); err != nil {
			e.publishFailed("cache", r, err)
		}
	}

	ev := roundEvent(r, from)
	if e.bcast != nil {
		if err := e.bcast.Publish(ctx, ev); err != nil {
			e.publishFailed("pubsub", r, err)
		}
	}
	if e.pub != nil {
		if err := e.pub.PublishRoundEvent(ctx, ev); err != nil {
			e.publishFailed("kafka", r, err)
		}
	}
}

// onFailure conta a falha; num jogo parado por invariante o snapshot em cache deixa de valer
func (e *Engine) onFailure(gameID string, err error) {
	kind := domain.KindOf(err)
	if e.metrics != nil {
		e.metrics.SchedulerFailure.WithLabelValues(gameID, string(kind)).Inc()
	}
	if kind != domain.KindInvariant || e.cache == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.hookWait)
	defer cancel()
	if err := e.cache.Clear(ctx, gameID); err != nil {
		e.log.Warn("round cache clear failed", zap.String("game", gameID), zap.Error(err))
	}
}

func (e *Engine) onSettled(rep settlement.Report) {
	if e.metrics != nil {
		e.metrics.RoundsSettled.WithLabelValues(rep.Game).Inc()
		e.metrics.PayoutCents.WithLabelValues(rep.Game).Add(float64(rep.TotalPayout))
	}
	if e.pub == nil || rep.AlreadySettled {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.hookWait)
	defer cancel()
	if err := e.pub.PublishRoundSettled(ctx, events.RoundSettled{
		RoundID:          rep.RoundID,
		Game:             rep.Game,
		RoundNumber:      rep.RoundNumber,
		Outcome:          rep.Outcome,
		BetsSettled:      rep.BetsSettled,
		Winners:          rep.Winners,
		TotalStakeCents:  rep.TotalStake,
		TotalPayoutCents: rep.TotalPayout,
		SettledUnixMs:    rep.SettledAt.UnixMilli(),
	}); err != nil {
		e.publishFailed("kafka", domain.Round{ID: rep.RoundID, Game: rep.Game}, err)
	}
}

func (e *Engine) onBetPlaced(p betting.Placed) {
	if e.metrics != nil {
		e.metrics.BetsPlaced.WithLabelValues(p.Bet.Game).Inc()
		e.metrics.StakeCents.WithLabelValues(p.Bet.Game).Add(float64(p.Bet.StakeCents))
	}
	if e.pub == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.hookWait)
	defer cancel()
	if err := e.pub.PublishBetPlaced(ctx, events.BetPlaced{
		BetID:        p.Bet.ID,
		UserID:       p.Bet.UserID,
		RoundID:      p.Bet.RoundID,
		Game:         p.Bet.Game,
		Selection:    p.Bet.Selection,
		StakeCents:   p.Bet.StakeCents,
		BalanceCents: p.BalanceCents,
	}); err != nil {
		e.publishFailed("kafka", domain.Round{ID: p.Bet.RoundID, Game: p.Bet.Game}, err)
	}
}

func (e *Engine) onBetRejected(err error) {
	if e.metrics == nil {
		return
	}
	reason := string(domain.KindOf(err))
	var de *domain.Error
	if errors.As(err, &de) {
		reason = de.Code
	}
	e.metrics.BetsRejected.WithLabelValues(reason).Inc()
}

// publishFailed registra falhas de cache/eventos; não interrompem o ciclo da rodada
func (e *Engine) publishFailed(sink string, r domain.Round, err error) {
	e.log.Warn("round publish failed", zap.String("sink", sink), zap.String("round_id", r.ID), zap.String("game", r.Game), zap.Error(err))
	if e.metrics != nil {
		e.metrics.PublishErrors.WithLabelValues(sink).Inc()
	}
}

func roundEvent(r domain.Round, from domain.RoundState) events.RoundEvent {
	return events.RoundEvent{
		RoundID:        r.ID,
		Game:           r.Game,
		RoundNumber:    r.Number,
		From:           string(from),
		State:          string(r.State),
		StartUnixMs:    r.StartAt.UnixMilli(),
		CloseUnixMs:    r.CloseAt.UnixMilli(),
		EndUnixMs:      r.EndAt.UnixMilli(),
		Outcome:        r.Outcome,
		OutcomeDetail:  r.OutcomeDetail,
		IsManualResult: r.IsManualResult,
		SeedHash:       r.SeedHash,
		DrawProof:      r.DrawProof,
	}
}
