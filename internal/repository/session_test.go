package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folklore/luck-server-go/internal/model"
)

func TestSessionRepository_ApplyInteraction(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepository(db.DB)
	ctx := context.Background()

	t.Run("creates session on first interaction", func(t *testing.T) {
		total, err := repo.ApplyInteraction(ctx, model.ApplyInteractionParams{
			SessionID: "s1", LuckChange: -5, Timestamp: "2026-01-01T10:00:00.000000Z",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(-5), total)

		session, err := repo.FindByID(ctx, "s1")
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, int64(-5), session.TotalLuck)
		assert.Equal(t, int64(1), session.InteractionsCount)
		assert.Equal(t, "2026-01-01T10:00:00.000000Z", *session.FirstInteraction)
		assert.Equal(t, "2026-01-01T10:00:00.000000Z", *session.LastInteraction)
	})

	t.Run("increments existing session", func(t *testing.T) {
		total, err := repo.ApplyInteraction(ctx, model.ApplyInteractionParams{
			SessionID: "s1", LuckChange: 3, Timestamp: "2026-01-01T10:01:00.000000Z",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(-2), total)

		session, err := repo.FindByID(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), session.InteractionsCount)
		assert.Equal(t, "2026-01-01T10:00:00.000000Z", *session.FirstInteraction)
		assert.Equal(t, "2026-01-01T10:01:00.000000Z", *session.LastInteraction)
	})

	t.Run("concurrent writers do not lose increments", func(t *testing.T) {
		const writers = 20

		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.ApplyInteraction(ctx, model.ApplyInteractionParams{
					SessionID: "busy", LuckChange: 2, Timestamp: "2026-01-01T11:00:00.000000Z",
				})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		session, err := repo.FindByID(ctx, "busy")
		require.NoError(t, err)
		assert.Equal(t, int64(2*writers), session.TotalLuck)
		assert.Equal(t, int64(writers), session.InteractionsCount)
	})
}

func TestSessionRepository_FindByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepository(db.DB)

	session, err := repo.FindByID(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestSessionRepository_CountAndAverage(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepository(db.DB)
	ctx := context.Background()

	t.Run("no sessions", func(t *testing.T) {
		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)

		avg, err := repo.AverageLuck(ctx)
		require.NoError(t, err)
		assert.False(t, avg.Valid)
	})

	t.Run("with sessions", func(t *testing.T) {
		for _, p := range []model.ApplyInteractionParams{
			{SessionID: "a", LuckChange: 1, Timestamp: "t"},
			{SessionID: "b", LuckChange: 2, Timestamp: "t"},
			{SessionID: "c", LuckChange: 2, Timestamp: "t"},
		} {
			_, err := repo.ApplyInteraction(ctx, p)
			require.NoError(t, err)
		}

		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)

		avg, err := repo.AverageLuck(ctx)
		require.NoError(t, err)
		assert.True(t, avg.Valid)
		assert.InDelta(t, 5.0/3.0, avg.Float64, 1e-9)
	})
}

func TestSessionRepository_WithTx(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepository(db.DB)
	ctx := context.Background()

	err := db.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := repo.WithTx(tx).ApplyInteraction(ctx, model.ApplyInteractionParams{
			SessionID: "rolled-back", LuckChange: 9, Timestamp: "t",
		})
		require.NoError(t, err)
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	session, err := repo.FindByID(ctx, "rolled-back")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestSessionRepository_Reconcile(t *testing.T) {
	db := setupTestDB(t)
	sessions := NewSessionRepository(db.DB)
	interactions := NewInteractionRepository(db.DB)
	ctx := context.Background()

	insertInteraction(t, interactions, "drifted", "black_cat", "misfortune", -3, "2026-01-01T10:00:00.000000Z")
	insertInteraction(t, interactions, "drifted", "horseshoe", "fortune", 5, "2026-01-01T10:00:02.000000Z")
	insertInteraction(t, interactions, "healthy", "horseshoe", "fortune", 1, "2026-01-01T10:00:01.000000Z")
	insertInteraction(t, interactions, "orphan", "ladder", "misfortune", -2, "2026-01-01T10:00:03.000000Z")

	// a lost update: one delta never reached the aggregate
	_, err := db.Exec(`INSERT INTO sessions VALUES ('drifted', -3, 1, '2026-01-01T10:00:00.000000Z', '2026-01-01T10:00:00.000000Z')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO sessions VALUES ('healthy', 1, 1, '2026-01-01T10:00:01.000000Z', '2026-01-01T10:00:01.000000Z')`)
	require.NoError(t, err)

	repaired, err := sessions.RecomputeDrifted(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), repaired)

	created, err := sessions.CreateMissing(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), created)

	drifted, err := sessions.FindByID(ctx, "drifted")
	require.NoError(t, err)
	assert.Equal(t, int64(2), drifted.TotalLuck)
	assert.Equal(t, int64(2), drifted.InteractionsCount)
	assert.Equal(t, "2026-01-01T10:00:02.000000Z", *drifted.LastInteraction)

	orphan, err := sessions.FindByID(ctx, "orphan")
	require.NoError(t, err)
	require.NotNil(t, orphan)
	assert.Equal(t, int64(-2), orphan.TotalLuck)
	assert.Equal(t, int64(1), orphan.InteractionsCount)

	t.Run("second pass is a no-op", func(t *testing.T) {
		repaired, err := sessions.RecomputeDrifted(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), repaired)

		created, err := sessions.CreateMissing(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), created)
	})
}
