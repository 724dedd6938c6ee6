package model

// TimestampLayout is fixed width so that text ordering is chronological.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// Outcome values the front-end sends. Storage does not enforce them.
const (
	OutcomeFortune    = "fortune"
	OutcomeMisfortune = "misfortune"
)

type Interaction struct {
	ID           int64  `db:"id" json:"id"`
	Superstition string `db:"superstition" json:"superstition"`
	Outcome      string `db:"outcome" json:"outcome"`
	LuckChange   int64  `db:"luck_change" json:"luck_change"`
	Timestamp    string `db:"timestamp" json:"timestamp"`
	SessionID    string `db:"session_id" json:"session_id"`
}

// HistoryEntry is the per-session history row returned to clients.
type HistoryEntry struct {
	Superstition string `db:"superstition" json:"superstition"`
	Outcome      string `db:"outcome" json:"outcome"`
	LuckChange   int64  `db:"luck_change" json:"luck_change"`
	Timestamp    string `db:"timestamp" json:"timestamp"`
}

type CreateInteractionParams struct {
	Superstition string
	Outcome      string
	LuckChange   int64
	Timestamp    string
	SessionID    string
}
