package service

import (
	"context"

	"go.uber.org/zap"

	"teamroping/internal/models"
	"teamroping/internal/standings"
)

func (s *Service) GetStandings(ctx context.Context, eventID int64) ([]models.Standing, error) {
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	if rows, hit, err := s.cache.Get(ctx, eventID); err != nil {
		s.log.Warn("standings cache read failed", zap.Int64("event_id", eventID), zap.Error(err))
	} else if hit {
		return rows, nil
	}

	runs, err := s.store.ListRunsExpanded(ctx, eventID, 0)
	if err != nil {
		return nil, err
	}
	rows := standings.Compute(runs)
	if err := s.cache.Set(ctx, eventID, rows); err != nil {
		s.log.Warn("standings cache write failed", zap.Int64("event_id", eventID), zap.Error(err))
	}
	return rows, nil
}
