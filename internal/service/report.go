package service

import (
	"context"

	"teamroping/internal/models"
)

// EventReport gathers an event's full state for export.
func (s *Service) EventReport(ctx context.Context, eventID int64) (*models.EventReport, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	teams, err := s.ListTeamDetails(ctx, eventID)
	if err != nil {
		return nil, err
	}
	runs, err := s.store.ListRunsExpanded(ctx, eventID, 0)
	if err != nil {
		return nil, err
	}
	board, err := s.GetPayoffBoard(ctx, eventID)
	if err != nil {
		return nil, err
	}
	rows, err := s.GetStandings(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return &models.EventReport{
		Event:     *ev,
		Teams:     teams,
		Runs:      runs,
		Standings: rows,
		Payouts:   board.Breakdown,
		Board:     board.Places,
	}, nil
}
