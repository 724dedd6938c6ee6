package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/folklore/luck-server-go/internal/config"
	"github.com/folklore/luck-server-go/internal/database"
	"github.com/folklore/luck-server-go/internal/model"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Connect(config.DriverSQLite, filepath.Join(t.TempDir(), "folklore_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.InitSchema(context.Background()))
	return db
}

func insertInteraction(t *testing.T, repo InteractionRepository, sessionID, superstition, outcome string, delta int64, ts string) {
	t.Helper()
	_, err := repo.Create(context.Background(), model.CreateInteractionParams{
		Superstition: superstition,
		Outcome:      outcome,
		LuckChange:   delta,
		Timestamp:    ts,
		SessionID:    sessionID,
	})
	require.NoError(t, err)
}
