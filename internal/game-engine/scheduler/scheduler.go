package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/betbot-engine/internal/game-engine/domain"
	"github.com/radieske/betbot-engine/internal/game-engine/game"
	"github.com/radieske/betbot-engine/internal/game-engine/repo"
	"github.com/radieske/betbot-engine/internal/game-engine/settlement"
)

// Config controla o intervalo entre rodadas e o retry de falhas de persistência
type Config struct {
	Intermission    time.Duration
	RetryInitial    time.Duration
	RetryMax        time.Duration
	RetryMaxElapsed time.Duration
	FailurePause    time.Duration // espera após desistir de um retry antes de tentar de novo
}

// Hooks são chamados na goroutine do agendador; devem ser rápidos
type Hooks struct {
	OnTransition func(r domain.Round, from domain.RoundState)
	OnSettled    func(rep settlement.Report)
	OnRetry      func(op string, err error, next time.Duration)
	OnFailure    func(op string, err error)
}

type forceRequest struct {
	roundID string
	outcome string
	reply   chan error
}

// Scheduler conduz as rodadas de um jogo: abre, corta, fecha, resolve, liquida e recomeça.
// Há exatamente um Scheduler por jogo; o estado vive no banco, então um restart retoma a rodada aberta.
type Scheduler struct {
	log     *zap.Logger
	store   *repo.Store
	settler *settlement.Engine
	variant game.Variant
	seeds   *game.SeedManager
	cfg     Config
	hooks   Hooks

	now   func() time.Time
	newID func() string

	requests chan forceRequest
	running  atomic.Bool
	done     chan struct{}
}

func New(log *zap.Logger, store *repo.Store, settler *settlement.Engine, v game.Variant, seeds *game.SeedManager, cfg Config, hooks Hooks) *Scheduler {
	if cfg.RetryInitial <= 0 {
		cfg.RetryInitial = 200 * time.Millisecond
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = 5 * time.Second
	}
	if cfg.FailurePause <= 0 {
		cfg.FailurePause = 10 * time.Second
	}
	return &Scheduler{
		log:      log.With(zap.String("game", v.ID)),
		store:    store,
		settler:  settler,
		variant:  v,
		seeds:    seeds,
		cfg:      cfg,
		hooks:    hooks,
		now:      time.Now,
		newID:    uuid.NewString,
		requests: make(chan forceRequest),
		done:     make(chan struct{}),
	}
}

func (s *Scheduler) Game() string { return s.variant.ID }

func (s *Scheduler) Running() bool { return s.running.Load() }

// Run roda o ciclo de rodadas até ctx ser cancelado. Só devolve erro em violação de invariante;
// falhas de persistência são reportadas e o ciclo tenta de novo após uma pausa.
func (s *Scheduler) Run(ctx context.Context) error {
	s.running.Store(true)
	defer func() {
		s.running.Store(false)
		close(s.done)
	}()

	s.log.Info("scheduler started")
	for {
		err := s.cycle(ctx)
		if ctx.Err() != nil {
			s.log.Info("scheduler stopped")
			return nil
		}
		if err == nil {
			continue
		}

		if domain.KindOf(err) == domain.KindInvariant {
			s.log.Error("scheduler halted", zap.Error(err))
			s.failure("cycle", err)
			return fmt.Errorf("%s: %w", s.variant.ID, err)
		}

		s.log.Error("round cycle failed", zap.Error(err), zap.Duration("pause", s.cfg.FailurePause))
		s.failure("cycle", err)
		if _, err := s.wait(ctx, nil, s.now().Add(s.cfg.FailurePause)); err != nil {
			return nil
		}
	}
}

// cycle leva uma rodada do estado atual até settled
func (s *Scheduler) cycle(ctx context.Context) error {
	round, err := s.ensureRound(ctx)
	if err != nil {
		return err
	}
	for !round.State.Terminal() {
		if round, err = s.step(ctx, round); err != nil {
			return err
		}
	}
	return nil
}

// ensureRound retoma a rodada não liquidada do jogo ou cria a próxima
func (s *Scheduler) ensureRound(ctx context.Context) (domain.Round, error) {
	return retry(ctx, s, "ensure round", func() (domain.Round, error) {
		var round domain.Round
		created := false
		err := s.store.WithTx(ctx, func(tx *repo.Tx) error {
			active, ok, err := tx.ActiveRound(ctx, s.variant.ID)
			if err != nil {
				return err
			}
			if ok {
				round = active
				s.log.Info("resuming round", zap.String("round_id", active.ID), zap.Int64("round_number", active.Number), zap.String("state", string(active.State)))
				return nil
			}

			now := s.now()
			// o seed fica guardado junto da rodada para que um restart com outro seed ainda a sorteie
			if err := tx.SaveSeed(ctx, s.seeds.Hash, s.seeds.Reveal(), now); err != nil {
				return err
			}
			start := now.Add(s.cfg.Intermission).Truncate(time.Millisecond)
			closeAt, endAt := s.variant.Window(start)
			round, err = tx.CreateNextRound(ctx, domain.Round{
				ID:        s.newID(),
				Game:      s.variant.ID,
				StartAt:   start,
				CloseAt:   closeAt,
				EndAt:     endAt,
				SeedHash:  s.seeds.Hash,
				CreatedAt: now,
			})
			created = err == nil
			return err
		})
		if err != nil {
			return domain.Round{}, err
		}
		if created {
			s.log.Info("round scheduled", zap.String("round_id", round.ID), zap.Int64("round_number", round.Number), zap.Time("start_at", round.StartAt))
		}
		return round, nil
	})
}

func (s *Scheduler) step(ctx context.Context, r domain.Round) (domain.Round, error) {
	switch r.State {
	case domain.RoundScheduled, domain.RoundOpen, domain.RoundCutoff:
		at, next, _ := r.NextDeadline()
		forced, err := s.wait(ctx, &r, at)
		if err != nil {
			return r, err
		}
		if forced != nil {
			return *forced, nil
		}
		return s.transition(ctx, r, next)

	case domain.RoundClosed:
		return s.resolve(ctx, r)

	case domain.RoundResolving:
		return s.settle(ctx, r)
	}
	return r, domain.Invariantf("round %s in unknown state %q", r.ID, r.State)
}

func (s *Scheduler) transition(ctx context.Context, r domain.Round, next domain.RoundState) (domain.Round, error) {
	from := r.State
	_, err := retry(ctx, s, "transition round", func() (struct{}, error) {
		return struct{}{}, s.store.TransitionRound(ctx, r.ID, from, next, s.now())
	})
	if errors.Is(err, domain.ErrStaleRound) {
		return s.reload(ctx, r.ID)
	}
	if err != nil {
		return r, err
	}
	r.State = next
	s.log.Debug("round transition", zap.String("round_id", r.ID), zap.String("from", string(from)), zap.String("to", string(next)))
	s.transitioned(r, from)
	return r, nil
}

// resolve sorteia o resultado (ou usa o resultado manual já gravado) e move para resolving
func (s *Scheduler) resolve(ctx context.Context, r domain.Round) (domain.Round, error) {
	outcome, detail, manual, proof := r.Outcome, r.OutcomeDetail, r.IsManualResult, r.DrawProof
	if !r.HasOutcome() {
		seeds, err := s.seedFor(ctx, r)
		if err != nil {
			return r, err
		}
		res := game.Draw(s.variant, seeds, r.Number)
		outcome, detail, manual, proof = res.Outcome.Value, res.Outcome.Detail, false, res.Proof
	}

	_, err := retry(ctx, s, "record outcome", func() (struct{}, error) {
		return struct{}{}, s.store.RecordOutcome(ctx, r.ID, outcome, detail, manual, proof, s.now())
	})
	if errors.Is(err, domain.ErrStaleRound) {
		return s.reload(ctx, r.ID)
	}
	if err != nil {
		return r, err
	}

	from := r.State
	r.State = domain.RoundResolving
	r.Outcome, r.OutcomeDetail, r.IsManualResult, r.DrawProof = outcome, detail, manual, proof
	s.log.Info("round resolved",
		zap.String("round_id", r.ID),
		zap.Int64("round_number", r.Number),
		zap.String("outcome", outcome),
		zap.String("detail", detail),
		zap.Bool("manual", manual),
	)
	s.transitioned(r, from)
	return r, nil
}

// seedFor devolve o seed com que a rodada foi comprometida, que pode ser de um processo anterior
func (s *Scheduler) seedFor(ctx context.Context, r domain.Round) (*game.SeedManager, error) {
	if r.SeedHash == "" || r.SeedHash == s.seeds.Hash {
		return s.seeds, nil
	}
	stored, err := retry(ctx, s, "load seed", func() (domain.ServerSeed, error) {
		return s.store.SeedByHash(ctx, r.SeedHash)
	})
	if errors.Is(err, domain.ErrSeedNotFound) {
		return nil, domain.Invariantf("round %s committed to unknown seed %s", r.ID, r.SeedHash)
	}
	if err != nil {
		return nil, err
	}
	seeds, err := game.NewSeedManager(stored.Seed)
	if err != nil || seeds.Hash != r.SeedHash {
		return nil, domain.Invariantf("stored seed does not match hash %s of round %s", r.SeedHash, r.ID)
	}
	s.log.Info("drawing with previous seed", zap.String("round_id", r.ID), zap.String("seed_hash", r.SeedHash))
	return seeds, nil
}

func (s *Scheduler) settle(ctx context.Context, r domain.Round) (domain.Round, error) {
	rep, err := retry(ctx, s, "settle round", func() (settlement.Report, error) {
		return s.settler.Settle(ctx, r.ID)
	})
	if err != nil {
		return r, err
	}

	from := r.State
	r.State = domain.RoundSettled
	r.SettledAt = rep.SettledAt
	s.transitioned(r, from)
	if s.hooks.OnSettled != nil {
		s.hooks.OnSettled(rep)
	}
	if r.SeedHash != "" && r.SeedHash != s.seeds.Hash {
		s.revealRetired(ctx)
	}
	return r, nil
}

// revealRetired publica seeds antigos cujas rodadas já foram todas liquidadas
func (s *Scheduler) revealRetired(ctx context.Context) {
	n, err := s.store.RevealRetiredSeeds(ctx, s.seeds.Hash, s.now())
	if err != nil {
		s.log.Warn("reveal seeds failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("server seeds revealed", zap.Int64("count", n))
	}
}

// reload relê a rodada depois de um CAS perdido (ex.: force-resolve concorrente)
func (s *Scheduler) reload(ctx context.Context, id string) (domain.Round, error) {
	return retry(ctx, s, "reload round", func() (domain.Round, error) {
		return s.store.GetRound(ctx, id)
	})
}

// wait dorme até at atendendo pedidos de force-resolve. Devolve a rodada atualizada
// quando um pedido fecha a rodada corrente antes do horário.
func (s *Scheduler) wait(ctx context.Context, current *domain.Round, at time.Time) (*domain.Round, error) {
	timer := time.NewTimer(at.Sub(s.now()))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, nil
		case req := <-s.requests:
			r, err := s.force(ctx, current, req)
			req.reply <- err
			if err == nil {
				return &r, nil
			}
		}
	}
}

func (s *Scheduler) force(ctx context.Context, current *domain.Round, req forceRequest) (domain.Round, error) {
	if current == nil || current.ID != req.roundID {
		r, err := s.store.GetRound(ctx, req.roundID)
		if err != nil {
			return domain.Round{}, err
		}
		if r.Game != s.variant.ID {
			return domain.Round{}, domain.ErrRoundNotFound
		}
		if r.HasOutcome() || r.State == domain.RoundClosed || r.State == domain.RoundResolving || r.State == domain.RoundSettled {
			return domain.Round{}, domain.ErrAlreadyResolved
		}
		// sem rodada em mãos (pausa após falha) a rodada lida do banco é a atual
		if current != nil {
			return domain.Round{}, domain.ErrStaleRound
		}
		current = &r
	}

	res, err := game.Override(s.variant, req.outcome)
	if err != nil {
		return domain.Round{}, err
	}

	now := s.now()
	_, err = retry(ctx, s, "force close round", func() (struct{}, error) {
		return struct{}{}, s.store.ForceClose(ctx, *current, res.Outcome.Value, res.Outcome.Detail, now)
	})
	if err != nil {
		if errors.Is(err, domain.ErrStaleRound) {
			return domain.Round{}, domain.ErrAlreadyResolved
		}
		return domain.Round{}, err
	}

	r := *current
	from := r.State
	r.State = domain.RoundClosed
	if r.StartAt.After(now) {
		r.StartAt = now
	}
	if r.CloseAt.After(now) {
		r.CloseAt = now
	}
	r.EndAt = now
	r.Outcome, r.OutcomeDetail, r.IsManualResult = res.Outcome.Value, res.Outcome.Detail, true
	s.log.Warn("round force resolved", zap.String("round_id", r.ID), zap.String("outcome", r.Outcome))
	s.transitioned(r, from)
	return r, nil
}

// ForceResolve pede à goroutine do agendador que feche a rodada com o resultado informado
func (s *Scheduler) ForceResolve(ctx context.Context, roundID, outcome string) error {
	if !s.Running() {
		return domain.ErrSchedulerNotActive
	}
	req := forceRequest{roundID: roundID, outcome: outcome, reply: make(chan error, 1)}
	select {
	case s.requests <- req:
	case <-s.done:
		return domain.ErrSchedulerNotActive
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) transitioned(r domain.Round, from domain.RoundState) {
	if s.hooks.OnTransition != nil {
		s.hooks.OnTransition(r, from)
	}
}

func (s *Scheduler) failure(op string, err error) {
	if s.hooks.OnFailure != nil {
		s.hooks.OnFailure(op, err)
	}
}

// retry repete fn com backoff exponencial enquanto o erro for de recurso
func retry[T any](ctx context.Context, s *Scheduler, op string, fn func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.RetryInitial
	b.MaxInterval = s.cfg.RetryMax
	b.MaxElapsedTime = s.cfg.RetryMaxElapsed

	return backoff.RetryNotifyWithData(func() (T, error) {
		v, err := fn()
		if err != nil && domain.KindOf(err) != domain.KindResource {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		s.log.Warn("retrying", zap.String("op", op), zap.Error(err), zap.Duration("next", next))
		if s.hooks.OnRetry != nil {
			s.hooks.OnRetry(op, err, next)
		}
	})
}
