package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/folklore/luck-server-go/internal/model"
)

type SessionRepository interface {
	FindByID(ctx context.Context, sessionID string) (*model.Session, error)
	// ApplyInteraction adds one interaction to the session's running totals,
	// creating the row on first use, and returns the new total luck.
	ApplyInteraction(ctx context.Context, params model.ApplyInteractionParams) (int64, error)
	Count(ctx context.Context) (int64, error)
	AverageLuck(ctx context.Context) (sql.NullFloat64, error)
	// RecomputeDrifted rewrites totals that disagree with the interactions table.
	RecomputeDrifted(ctx context.Context) (int64, error)
	// CreateMissing adds rows for session ids that only exist in interactions.
	CreateMissing(ctx context.Context) (int64, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) SessionRepository
}

type sessionRepo struct {
	db queryer
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) WithTx(tx *sqlx.Tx) SessionRepository {
	return &sessionRepo{db: tx}
}

func (r *sessionRepo) FindByID(ctx context.Context, sessionID string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, r.db.Rebind(`
		SELECT
			session_id,
			COALESCE(total_luck, 0) AS total_luck,
			COALESCE(interactions_count, 0) AS interactions_count,
			first_interaction,
			last_interaction
		FROM sessions WHERE session_id = ?
	`), sessionID)
	return HandleNotFound(&session, err)
}

// ApplyInteraction is a single statement so concurrent writers for the same
// session never lose an increment. Older databases may hold NULL totals,
// which count as 0.
func (r *sessionRepo) ApplyInteraction(ctx context.Context, params model.ApplyInteractionParams) (int64, error) {
	var totalLuck int64
	err := r.db.GetContext(ctx, &totalLuck, r.db.Rebind(`
		INSERT INTO sessions (session_id, total_luck, interactions_count, first_interaction, last_interaction)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			total_luck = COALESCE(sessions.total_luck, 0) + excluded.total_luck,
			interactions_count = COALESCE(sessions.interactions_count, 0) + 1,
			last_interaction = excluded.last_interaction
		RETURNING total_luck
	`), params.SessionID, params.LuckChange, params.Timestamp, params.Timestamp)
	return totalLuck, err
}

func (r *sessionRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM sessions`)
	return count, err
}

// AverageLuck is NULL when there are no sessions.
func (r *sessionRepo) AverageLuck(ctx context.Context) (sql.NullFloat64, error) {
	var avg sql.NullFloat64
	err := r.db.GetContext(ctx, &avg, `SELECT AVG(COALESCE(total_luck, 0)) FROM sessions`)
	return avg, err
}

func (r *sessionRepo) RecomputeDrifted(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET
			total_luck = (SELECT COALESCE(SUM(i.luck_change), 0) FROM interactions i WHERE i.session_id = sessions.session_id),
			interactions_count = (SELECT COUNT(*) FROM interactions i WHERE i.session_id = sessions.session_id),
			first_interaction = COALESCE((SELECT MIN(i.timestamp) FROM interactions i WHERE i.session_id = sessions.session_id), first_interaction),
			last_interaction = COALESCE((SELECT MAX(i.timestamp) FROM interactions i WHERE i.session_id = sessions.session_id), last_interaction)
		WHERE total_luck IS NULL
		OR interactions_count IS NULL
		OR total_luck <> (SELECT COALESCE(SUM(i.luck_change), 0) FROM interactions i WHERE i.session_id = sessions.session_id)
		OR interactions_count <> (SELECT COUNT(*) FROM interactions i WHERE i.session_id = sessions.session_id)
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *sessionRepo) CreateMissing(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, total_luck, interactions_count, first_interaction, last_interaction)
		SELECT i.session_id, COALESCE(SUM(i.luck_change), 0), COUNT(*), MIN(i.timestamp), MAX(i.timestamp)
		FROM interactions i
		WHERE i.session_id IS NOT NULL
		AND NOT EXISTS (SELECT 1 FROM sessions s WHERE s.session_id = i.session_id)
		GROUP BY i.session_id
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
