package ws

import (
	"github.com/radieske/betbot-engine/internal/game-engine/domain"
	"github.com/radieske/betbot-engine/pkg/contracts/events"
)

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
type ClientMsg struct {
	Type string `json:"type"`
	Game string `json:"game"` // requerido em subscribe/unsubscribe
}

// ServerMsg é a mensagem enviada ao cliente
// Type: round | snapshot | subscribed | unsubscribed | pong | error
type ServerMsg struct {
	Type     string             `json:"type"`
	Game     string             `json:"game,omitempty"`
	Round    *events.RoundEvent `json:"round,omitempty"`
	Snapshot *domain.Snapshot   `json:"snapshot,omitempty"`
	Error    string             `json:"error,omitempty"`
}
