package topics

const (
	// Rounds
	RoundEvents  = "round_events"
	RoundSettled = "round_settled"

	// Bets
	BetPlaced = "bet_placed"

	// DLQs
	RoundSettledDLQ = "round_settled_dlq"
)
