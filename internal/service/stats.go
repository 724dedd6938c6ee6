package service

import (
	"context"
	"fmt"
	"math"

	apperrors "github.com/folklore/luck-server-go/internal/errors"
	"github.com/folklore/luck-server-go/internal/model"
	"github.com/folklore/luck-server-go/internal/repository"
)

// StatsService aggregates over the whole store on every call. Nothing is cached.
type StatsService struct {
	interactions repository.InteractionRepository
	sessions     repository.SessionRepository
}

func NewStatsService(
	interactions repository.InteractionRepository,
	sessions repository.SessionRepository,
) *StatsService {
	return &StatsService{
		interactions: interactions,
		sessions:     sessions,
	}
}

func (s *StatsService) Compute(ctx context.Context) (*model.Stats, error) {
	totalInteractions, err := s.interactions.Count(ctx)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("count interactions: %w", err))
	}

	totalUsers, err := s.sessions.Count(ctx)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("count sessions: %w", err))
	}

	breakdown, err := s.interactions.BreakdownBySuperstition(ctx)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("superstition breakdown: %w", err))
	}
	if breakdown == nil {
		breakdown = []model.SuperstitionBreakdown{}
	}
	for i := range breakdown {
		breakdown[i].FortuneRate = FortuneRate(breakdown[i].Fortunes, breakdown[i].Total)
	}

	avg, err := s.sessions.AverageLuck(ctx)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("average luck: %w", err))
	}
	averageLuck := 0.0
	if avg.Valid {
		averageLuck = round(avg.Float64, 2)
	}

	return &model.Stats{
		TotalInteractions:     totalInteractions,
		TotalUsers:            totalUsers,
		AverageLuck:           averageLuck,
		SuperstitionBreakdown: breakdown,
	}, nil
}

// FortuneRate is the percentage of fortunes, one decimal place.
func FortuneRate(fortunes, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return round(float64(fortunes)/float64(total)*100, 1)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
