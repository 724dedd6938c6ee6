package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/folklore/luck-server-go/internal/audit"
	"github.com/folklore/luck-server-go/internal/config"
	"github.com/folklore/luck-server-go/internal/repository"
	"github.com/folklore/luck-server-go/internal/service"
)

type ReconcileResult struct {
	Created    int64 `json:"created"`
	Recomputed int64 `json:"recomputed"`
}

func (r ReconcileResult) Total() int64 {
	return r.Created + r.Recomputed
}

// ReconcileJob rebuilds session aggregates from the interactions table.
// It only inserts and updates session rows.
type ReconcileJob struct {
	db       service.TxRunner
	sessions repository.SessionRepository
	interval time.Duration
	done     chan struct{}
}

func NewReconcileJob(db service.TxRunner, sessions repository.SessionRepository, interval time.Duration) *ReconcileJob {
	return &ReconcileJob{
		db:       db,
		sessions: sessions,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (j *ReconcileJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("reconcile job started")
}

func (j *ReconcileJob) Stop() {
	close(j.done)
	log.Info().Msg("reconcile job stopped")
}

func (j *ReconcileJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.tick()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.tick()
		}
	}
}

func (j *ReconcileJob) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), config.ReconcileTimeout)
	defer cancel()

	result, err := j.RunOnce(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to reconcile sessions")
		return
	}
	if result.Total() > 0 {
		audit.Log(ctx, audit.Event{
			Type: audit.EventSessionsReconciled,
			Details: map[string]interface{}{
				"created":    result.Created,
				"recomputed": result.Recomputed,
			},
		})
	}
}

// RunOnce repairs all sessions in one transaction.
func (j *ReconcileJob) RunOnce(ctx context.Context) (ReconcileResult, error) {
	var result ReconcileResult

	err := j.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		sessions := j.sessions.WithTx(tx)

		created, err := sessions.CreateMissing(ctx)
		if err != nil {
			return fmt.Errorf("create missing sessions: %w", err)
		}
		recomputed, err := sessions.RecomputeDrifted(ctx)
		if err != nil {
			return fmt.Errorf("recompute sessions: %w", err)
		}

		result = ReconcileResult{Created: created, Recomputed: recomputed}
		return nil
	})
	if err != nil {
		return ReconcileResult{}, err
	}

	return result, nil
}
