package model

type Session struct {
	SessionID         string  `db:"session_id" json:"session_id"`
	TotalLuck         int64   `db:"total_luck" json:"total_luck"`
	InteractionsCount int64   `db:"interactions_count" json:"interactions_count"`
	FirstInteraction  *string `db:"first_interaction" json:"first_interaction,omitempty"`
	LastInteraction   *string `db:"last_interaction" json:"last_interaction,omitempty"`
}

type ApplyInteractionParams struct {
	SessionID  string
	LuckChange int64
	Timestamp  string
}
