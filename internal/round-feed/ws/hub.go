package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/betbot-engine/internal/game-engine/domain"
	"github.com/radieske/betbot-engine/internal/game-engine/game"
	"github.com/radieske/betbot-engine/pkg/contracts/events"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 32 // mensagens pendentes por cliente antes de ser derrubado
)

// CurrentRounds fornece o snapshot da rodada corrente enviado logo após o subscribe
type CurrentRounds interface {
	GetCurrent(ctx context.Context, game string) (domain.Snapshot, bool, error)
}

// Metrics do round-feed
type Metrics struct {
	Clients    prometheus.Gauge
	Broadcasts *prometheus.CounterVec
	Dropped    prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Clients:    prometheus.NewGauge(prometheus.GaugeOpts{Name: "feed_clients", Help: "conexões websocket abertas"}),
		Broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "feed_broadcasts_total", Help: "atualizações de rodada enviadas por jogo"}, []string{"game"}),
		Dropped:    prometheus.NewCounter(prometheus.CounterOpts{Name: "feed_clients_dropped_total", Help: "clientes derrubados por fila de saída cheia"}),
	}
	reg.MustRegister(m.Clients, m.Broadcasts, m.Dropped)
	return m
}

// client tem uma fila de saída própria; só writePump escreve na conexão
type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newClient(conn *websocket.Conn) *client {
	return &client{conn: conn, send: make(chan []byte, sendBuffer), done: make(chan struct{})}
}

// enqueue não bloqueia; com a fila cheia o cliente é fechado
func (c *client) enqueue(b []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- b:
		return true
	default:
		c.close()
		return false
	}
}

func (c *client) write(v any) bool {
	b, err := json.Marshal(v)
	if err != nil {
		return false
	}
	return c.enqueue(b)
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

func (c *client) writePump() {
	defer c.close()
	for {
		select {
		case b := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// Hub gerencia conexões WebSocket e assinaturas por jogo
// subs: mapeia o id do jogo para o conjunto de clientes inscritos
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader
	games    *game.Registry
	current  CurrentRounds
	metrics  *Metrics

	mu   sync.RWMutex
	subs map[string]map[*client]struct{}
}

// NewHub cria o hub; current e metrics podem ser nil
func NewHub(log *zap.Logger, games *game.Registry, current CurrentRounds, metrics *Metrics, allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		games:    games,
		current:  current,
		metrics:  metrics,
		subs:     make(map[string]map[*client]struct{}),
	}
}

// HandleWS gerencia o ciclo de vida de uma conexão WebSocket
// Cada cliente pode se inscrever em vários jogos
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("ws upgrade failed", zap.Error(err))
		return
	}
	c := newClient(conn)
	go c.writePump()
	defer c.close()

	if h.metrics != nil {
		h.metrics.Clients.Inc()
		defer h.metrics.Clients.Dec()
	}

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "subscribe":
			if _, err := h.games.Lookup(msg.Game); err != nil {
				_ = c.write(ServerMsg{Type: "error", Game: msg.Game, Error: "unknown game"})
				continue
			}
			h.subscribe(msg.Game, c)
			_ = c.write(ServerMsg{Type: "subscribed", Game: msg.Game})
			h.sendSnapshot(r.Context(), c, msg.Game)
		case "unsubscribe":
			h.unsubscribe(msg.Game, c)
			_ = c.write(ServerMsg{Type: "unsubscribed", Game: msg.Game})
		case "ping":
			_ = c.write(ServerMsg{Type: "pong"})
		default:
			_ = c.write(ServerMsg{Type: "error", Error: "unknown message type"})
		}
	}

	h.remove(c)
}

// remove tira o cliente de todas as assinaturas
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for g, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, g)
		}
	}
}

func (h *Hub) subscribe(gameID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[gameID]; !ok {
		h.subs[gameID] = make(map[*client]struct{})
	}
	h.subs[gameID][c] = struct{}{}
}

func (h *Hub) unsubscribe(gameID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.subs[gameID]; ok {
		delete(m, c)
		if len(m) == 0 {
			delete(h.subs, gameID)
		}
	}
}

func (h *Hub) sendSnapshot(ctx context.Context, c *client, gameID string) {
	if h.current == nil {
		return
	}
	snap, ok, err := h.current.GetCurrent(ctx, gameID)
	if err != nil {
		h.log.Warn("current round lookup failed", zap.String("game", gameID), zap.Error(err))
		return
	}
	if ok {
		_ = c.write(ServerMsg{Type: "snapshot", Game: gameID, Snapshot: &snap})
	}
}

// Subscribers devolve quantos clientes estão inscritos no jogo
func (h *Hub) Subscribers(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[gameID])
}

// Broadcast envia a atualização de rodada a todos os clientes inscritos no jogo
func (h *Hub) Broadcast(update events.RoundUpdate) {
	h.mu.RLock()
	conns := make([]*client, 0, len(h.subs[update.Game]))
	for c := range h.subs[update.Game] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	if len(conns) == 0 {
		return
	}

	b, err := json.Marshal(ServerMsg{Type: "round", Game: update.Game, Round: &update.Payload})
	if err != nil {
		h.log.Error("ws marshal failed", zap.Error(err))
		return
	}
	for _, c := range conns {
		if c.enqueue(b) {
			continue
		}
		h.log.Debug("ws client dropped", zap.String("game", update.Game))
		h.remove(c)
		if h.metrics != nil {
			h.metrics.Dropped.Inc()
		}
	}
	if h.metrics != nil {
		h.metrics.Broadcasts.WithLabelValues(update.Game).Inc()
	}
}
