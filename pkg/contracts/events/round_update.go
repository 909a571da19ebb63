package events

// RoundUpdate é o envelope publicado no Redis Pub/Sub e repassado aos clientes WebSocket do round-feed
type RoundUpdate struct {
	Game    string     `json:"game"`
	Payload RoundEvent `json:"payload"`
}
