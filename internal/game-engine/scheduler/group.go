package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Group roda um Scheduler por jogo. A parada de um jogo por invariante
// não derruba os outros; Run só retorna quando todos terminam.
type Group struct {
	log        *zap.Logger
	schedulers map[string]*Scheduler
}

func NewGroup(log *zap.Logger, ss ...*Scheduler) *Group {
	g := &Group{log: log, schedulers: make(map[string]*Scheduler, len(ss))}
	for _, s := range ss {
		g.schedulers[s.Game()] = s
	}
	return g
}

func (g *Group) Get(game string) (*Scheduler, bool) {
	s, ok := g.schedulers[game]
	return s, ok
}

// Games devolve os jogos do grupo em ordem
func (g *Group) Games() []string {
	out := make([]string, 0, len(g.schedulers))
	for id := range g.schedulers {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (g *Group) Run(ctx context.Context) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for _, s := range g.schedulers {
		wg.Add(1)

		go func(s *Scheduler) {
			defer wg.Done()
			if err := s.Run(ctx); err != nil {
				g.log.Error("game scheduler stopped", zap.String("game", s.Game()), zap.Error(err))
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(s)
	}

	wg.Wait()
	return errors.Join(errs...)
}
