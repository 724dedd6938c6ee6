package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/folklore/luck-server-go/internal/database"
	apperrors "github.com/folklore/luck-server-go/internal/errors"
	"github.com/folklore/luck-server-go/internal/model"
	"github.com/folklore/luck-server-go/internal/repository"
)

// TxRunner is satisfied by *database.DB.
type TxRunner interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

type RecordParams struct {
	Superstition string
	Outcome      string
	LuckChange   int64
	SessionID    string
}

func (p RecordParams) Validate() error {
	if p.Superstition == "" || p.Outcome == "" || p.SessionID == "" {
		return apperrors.MissingRequired("superstition", "outcome", "session_id")
	}
	return nil
}

type RecordResult struct {
	Success     bool  `json:"success"`
	CurrentLuck int64 `json:"current_luck"`
}

type LuckResult struct {
	Luck      int64  `json:"luck"`
	SessionID string `json:"session_id"`
}

type HistoryResult struct {
	History   []model.HistoryEntry `json:"history"`
	SessionID string               `json:"session_id"`
}

type LuckService struct {
	db           TxRunner
	interactions repository.InteractionRepository
	sessions     repository.SessionRepository
	now          func() time.Time
}

func NewLuckService(
	db TxRunner,
	interactions repository.InteractionRepository,
	sessions repository.SessionRepository,
) *LuckService {
	return &LuckService{
		db:           db,
		interactions: interactions,
		sessions:     sessions,
		now:          time.Now,
	}
}

func (s *LuckService) timestamp() string {
	return s.now().UTC().Format(model.TimestampLayout)
}

// Record stores the interaction and folds its delta into the session total.
// Both writes commit together or not at all.
func (s *LuckService) Record(ctx context.Context, params RecordParams) (*RecordResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	ts := s.timestamp()
	var currentLuck int64

	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.interactions.WithTx(tx).Create(ctx, model.CreateInteractionParams{
			Superstition: params.Superstition,
			Outcome:      params.Outcome,
			LuckChange:   params.LuckChange,
			Timestamp:    ts,
			SessionID:    params.SessionID,
		}); err != nil {
			return fmt.Errorf("insert interaction: %w", err)
		}

		total, err := s.sessions.WithTx(tx).ApplyInteraction(ctx, model.ApplyInteractionParams{
			SessionID:  params.SessionID,
			LuckChange: params.LuckChange,
			Timestamp:  ts,
		})
		if err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		currentLuck = total
		return nil
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Debug().
		Str("sessionId", params.SessionID).
		Str("superstition", params.Superstition).
		Int64("currentLuck", currentLuck).
		Msg("interaction recorded")

	return &RecordResult{Success: true, CurrentLuck: currentLuck}, nil
}

// GetLuck returns 0 for sessions that have never recorded anything.
func (s *LuckService) GetLuck(ctx context.Context, sessionID string) (*LuckResult, error) {
	if sessionID == "" {
		return nil, apperrors.MissingRequired("session_id")
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("find session: %w", err))
	}

	result := &LuckResult{SessionID: sessionID}
	if session != nil {
		result.Luck = session.TotalLuck
	}
	return result, nil
}

func (s *LuckService) GetHistory(ctx context.Context, sessionID string) (*HistoryResult, error) {
	if sessionID == "" {
		return nil, apperrors.MissingRequired("session_id")
	}

	history, err := s.interactions.FindHistoryBySessionID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("find history: %w", err))
	}
	if history == nil {
		history = []model.HistoryEntry{}
	}

	return &HistoryResult{History: history, SessionID: sessionID}, nil
}
