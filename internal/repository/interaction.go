package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/folklore/luck-server-go/internal/model"
)

type InteractionRepository interface {
	Create(ctx context.Context, params model.CreateInteractionParams) (*model.Interaction, error)
	FindHistoryBySessionID(ctx context.Context, sessionID string) ([]model.HistoryEntry, error)
	Count(ctx context.Context) (int64, error)
	BreakdownBySuperstition(ctx context.Context) ([]model.SuperstitionBreakdown, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) InteractionRepository
}

type interactionRepo struct {
	db queryer
}

func NewInteractionRepository(db *sqlx.DB) InteractionRepository {
	return &interactionRepo{db: db}
}

func (r *interactionRepo) WithTx(tx *sqlx.Tx) InteractionRepository {
	return &interactionRepo{db: tx}
}

func (r *interactionRepo) Create(ctx context.Context, params model.CreateInteractionParams) (*model.Interaction, error) {
	var interaction model.Interaction
	err := r.db.GetContext(ctx, &interaction, r.db.Rebind(`
		INSERT INTO interactions (superstition, outcome, luck_change, timestamp, session_id)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id, superstition, outcome, luck_change, timestamp, session_id
	`), params.Superstition, params.Outcome, params.LuckChange, params.Timestamp, params.SessionID)
	if err != nil {
		return nil, err
	}
	return &interaction, nil
}

// FindHistoryBySessionID returns the newest interaction first. Rows sharing a
// timestamp fall back to insertion order. A NULL luck_change reads as 0.
func (r *interactionRepo) FindHistoryBySessionID(ctx context.Context, sessionID string) ([]model.HistoryEntry, error) {
	history := []model.HistoryEntry{}
	err := r.db.SelectContext(ctx, &history, r.db.Rebind(`
		SELECT superstition, outcome, COALESCE(luck_change, 0) AS luck_change, timestamp
		FROM interactions
		WHERE session_id = ?
		ORDER BY timestamp DESC, id DESC
	`), sessionID)
	return history, err
}

func (r *interactionRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM interactions`)
	return count, err
}

func (r *interactionRepo) BreakdownBySuperstition(ctx context.Context) ([]model.SuperstitionBreakdown, error) {
	breakdown := []model.SuperstitionBreakdown{}
	err := r.db.SelectContext(ctx, &breakdown, r.db.Rebind(`
		SELECT
			superstition,
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0) AS fortunes,
			COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0) AS misfortunes
		FROM interactions
		GROUP BY superstition
		ORDER BY total DESC, superstition ASC
	`), model.OutcomeFortune, model.OutcomeMisfortune)
	return breakdown, err
}
