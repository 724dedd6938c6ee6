package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/folklore/luck-server-go/internal/config"
	"github.com/folklore/luck-server-go/internal/database"
	"github.com/folklore/luck-server-go/internal/repository"
)

type testEnv struct {
	db    *database.DB
	luck  *LuckService
	stats *StatsService
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Connect(config.DriverSQLite, filepath.Join(t.TempDir(), "service_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.InitSchema(context.Background()))

	interactions := repository.NewInteractionRepository(db.DB)
	sessions := repository.NewSessionRepository(db.DB)

	return &testEnv{
		db:    db,
		luck:  NewLuckService(db, interactions, sessions),
		stats: NewStatsService(interactions, sessions),
	}
}

// tickingClock advances one second per call.
func tickingClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}
