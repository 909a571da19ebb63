package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/betbot-engine/internal/game-engine/betting"
	"github.com/radieske/betbot-engine/internal/game-engine/domain"
	"github.com/radieske/betbot-engine/internal/game-engine/dto"
	"github.com/radieske/betbot-engine/internal/game-engine/game"
	"github.com/radieske/betbot-engine/internal/shared/money"
)

// Engine define as operações do motor usadas pelos handlers HTTP
type Engine interface {
	Games() []game.Variant
	GetCurrentRound(ctx context.Context, gameID string) (domain.Snapshot, bool, error)
	RecentRounds(ctx context.Context, gameID string, limit int) ([]domain.Round, error)
	PlaceBetDetailed(ctx context.Context, req betting.PlaceBetRequest) (betting.Placed, error)
	Balance(ctx context.Context, userID string) (domain.Account, error)
	History(ctx context.Context, userID string, limit int) ([]domain.LedgerEntry, error)
	UserBets(ctx context.Context, userID string, limit int) ([]domain.Bet, error)
	ForceResolve(ctx context.Context, roundID, outcome string) error
	AdjustBalance(ctx context.Context, userID string, delta int64, ref, note string) (int64, error)
	DeactivateUser(ctx context.Context, userID string) error
	ReactivateUser(ctx context.Context, userID string) error
	Seed(ctx context.Context, hash string) (domain.ServerSeed, error)
}

// Server expõe a API REST do motor de rodadas
type Server struct {
	log        *zap.Logger
	engine     Engine
	adminToken string
	now        func() time.Time
}

// NewServer instancia o servidor; adminToken vazio desabilita as rotas /admin
func NewServer(log *zap.Logger, e Engine, adminToken string) *Server {
	return &Server{log: log, engine: e, adminToken: adminToken, now: time.Now}
}

// Router retorna o roteador HTTP com os endpoints REST
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(withCORS)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/games", s.listGames)                      // catálogo de jogos
		r.Get("/games/{game}/current", s.currentRound)    // rodada corrente
		r.Get("/games/{game}/rounds", s.recentRounds)     // últimas rodadas
		r.Post("/bets", s.placeBet)                       // aposta
		r.Get("/users/{id}/balance", s.balance)           // saldo
		r.Get("/users/{id}/transactions", s.transactions) // extrato
		r.Get("/users/{id}/bets", s.userBets)             // apostas do usuário
		r.Get("/seeds/{hash}", s.seed)                    // seed revelado
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Post("/rounds/{id}/resolve", s.forceResolve)
		r.Post("/users/{id}/adjust", s.adjust)
		r.Post("/users/{id}/deactivate", s.deactivate)
		r.Post("/users/{id}/activate", s.activate)
	})
	return r
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken == "" {
			writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "admin api disabled"})
			return
		}
		got := r.Header.Get("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.adminToken)) != 1 {
			s.log.Warn("admin request rejected", zap.String("path", r.URL.Path), zap.String("remote", r.RemoteAddr))
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid admin token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) listGames(w http.ResponseWriter, r *http.Request) {
	vs := s.engine.Games()
	out := make([]dto.GameResponse, 0, len(vs))
	for _, v := range vs {
		out = append(out, dto.Game(v))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) currentRound(w http.ResponseWriter, r *http.Request) {
	snap, ok, err := s.engine.GetCurrentRound(r.Context(), chi.URLParam(r, "game"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "no active round", Code: "no_active_round"})
		return
	}
	writeJSON(w, http.StatusOK, dto.Round(snap, s.now()))
}

func (s *Server) recentRounds(w http.ResponseWriter, r *http.Request) {
	rs, err := s.engine.RecentRounds(r.Context(), chi.URLParam(r, "game"), limitParam(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.Rounds(rs))
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if !s.decode(w, r, &req, req.Validate) {
		return
	}
	stake, err := money.Parse(req.Amount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error(), Code: "invalid_amount"})
		return
	}

	placed, err := s.engine.PlaceBetDetailed(r.Context(), betting.PlaceBetRequest{
		UserID:     req.UserID,
		Game:       req.Game,
		RoundID:    req.RoundID,
		Selection:  req.Selection,
		StakeCents: stake,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := dto.Bet(placed.Bet)
	resp.Balance = money.Format(placed.BalanceCents)
	resp.Message = "Bet placed: " + resp.Stake + " on " + resp.Selection + ". Balance: " + resp.Balance
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) balance(w http.ResponseWriter, r *http.Request) {
	acc, err := s.engine.Balance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.Balance(acc))
}

func (s *Server) transactions(w http.ResponseWriter, r *http.Request) {
	es, err := s.engine.History(r.Context(), chi.URLParam(r, "id"), limitParam(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.Transactions(es))
}

func (s *Server) userBets(w http.ResponseWriter, r *http.Request) {
	bs, err := s.engine.UserBets(r.Context(), chi.URLParam(r, "id"), limitParam(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.Bets(bs))
}

func (s *Server) forceResolve(w http.ResponseWriter, r *http.Request) {
	var req dto.ResolveRequest
	if !s.decode(w, r, &req, req.Validate) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.engine.ForceResolve(r.Context(), id, req.Outcome); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "Round " + id + " resolved as " + req.Outcome})
}

func (s *Server) adjust(w http.ResponseWriter, r *http.Request) {
	var req dto.AdjustRequest
	if !s.decode(w, r, &req, req.Validate) {
		return
	}
	delta, err := money.Parse(req.Amount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error(), Code: "invalid_amount"})
		return
	}
	bal, err := s.engine.AdjustBalance(r.Context(), chi.URLParam(r, "id"), delta, req.Ref, req.Note)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "Balance updated. New balance: " + money.Format(bal)})
}

func (s *Server) deactivate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.engine.DeactivateUser(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "User " + id + " deactivated"})
}

func (s *Server) activate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.engine.ReactivateUser(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "User " + id + " activated"})
}

func (s *Server) seed(w http.ResponseWriter, r *http.Request) {
	seed, err := s.engine.Seed(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.Seed(seed))
}

// decode lê o corpo JSON e roda a validação do DTO
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any, validate func() error) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json", Code: "bad_json"})
		return false
	}
	if err := validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error(), Code: "invalid_payload"})
		return false
	}
	return true
}

// writeError traduz o tipo do erro de domínio em status HTTP
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	resp := dto.ErrorResponse{Error: domain.Message(err)}
	var de *domain.Error
	if errors.As(err, &de) {
		resp.Code = de.Code
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		if errors.Is(err, domain.ErrRoundNotFound) || errors.Is(err, domain.ErrUnknownGame) || errors.Is(err, domain.ErrSeedNotFound) {
			return http.StatusNotFound
		}
		return http.StatusBadRequest
	case domain.KindState:
		return http.StatusConflict
	case domain.KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	case domain.KindInvariant:
		return http.StatusInternalServerError
	}
	return http.StatusServiceUnavailable
}

func limitParam(r *http.Request) int {
	n, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return n
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Admin-Token")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}
