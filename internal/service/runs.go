package service

import (
	"context"
	"math"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"teamroping/internal/apperr"
	"teamroping/internal/models"
)

type SaveRunInput struct {
	EventID  int64
	TeamID   int64
	Round    int
	Position int
	TimeSec  *float64
	Penalty  float64
	NoTime   bool
	DQ       bool
}

type SaveRunResult struct {
	Run    models.Run `json:"run"`
	Locked bool       `json:"locked"`
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (in SaveRunInput) validate() error {
	if in.NoTime && in.DQ {
		return apperr.Validation("a run cannot be both no-time and disqualified")
	}
	if !in.NoTime && !in.DQ {
		if in.TimeSec == nil || !finite(*in.TimeSec) || *in.TimeSec <= 0 {
			return apperr.Validation("time required")
		}
	}
	if !finite(in.Penalty) || in.Penalty < 0 {
		return apperr.Validation("penalty must not be negative")
	}
	if in.Round < 1 {
		return apperr.Validation("round must be at least 1")
	}
	if in.Position < 1 {
		return apperr.Validation("position must be at least 1")
	}
	return nil
}

// SaveRun records a result. The first saved result of a draft or active
// event locks it; only that save reports Locked.
func (s *Service) SaveRun(ctx context.Context, in SaveRunInput) (*SaveRunResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	ev, err := s.store.GetEvent(ctx, in.EventID)
	if err != nil {
		return nil, err
	}
	if ev.Status.Closed() {
		return nil, apperr.Precondition("event %d is %s and its results are final", ev.ID, ev.Status)
	}
	if ev.Rounds > 0 && in.Round > ev.Rounds {
		return nil, apperr.Validation("round %d exceeds the event's %d round(s)", in.Round, ev.Rounds)
	}
	team, err := s.store.GetTeam(ctx, in.TeamID)
	if err != nil {
		return nil, err
	}
	if team.EventID != in.EventID {
		return nil, apperr.NotFound("team %d not found in event %d", in.TeamID, in.EventID)
	}

	run := models.Run{
		EventID:  in.EventID,
		TeamID:   in.TeamID,
		Round:    in.Round,
		Position: in.Position,
		Penalty:  in.Penalty,
		NoTime:   in.NoTime,
		DQ:       in.DQ,
	}
	if !in.NoTime && !in.DQ {
		t := *in.TimeSec
		total := decimal.NewFromFloat(t).Add(decimal.NewFromFloat(in.Penalty)).Round(3).InexactFloat64()
		run.TimeSec = &t
		run.TotalSec = &total
	}

	_, locked, err := s.store.SaveRun(ctx, &run)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, in.EventID)
	s.log.Info("run saved",
		zap.Int64("event_id", in.EventID),
		zap.Int64("team_id", in.TeamID),
		zap.Int("round", in.Round),
		zap.Bool("no_time", in.NoTime),
		zap.Bool("dq", in.DQ))
	if locked {
		s.log.Info("event locked by first result", zap.Int64("event_id", in.EventID), zap.String("previous", string(ev.Status)))
		s.notifier.Notify(in.EventID, KindEventLocked, map[string]any{"event_id": in.EventID, "status": models.EventLocked})
	}
	s.notifier.Notify(in.EventID, KindRunSaved, run)
	return &SaveRunResult{Run: run, Locked: locked}, nil
}

// GetRunsExpanded lists runs with team and roper names; round 0 means all.
func (s *Service) GetRunsExpanded(ctx context.Context, eventID int64, round int) ([]models.RunExpanded, error) {
	if round < 0 {
		return nil, apperr.Validation("round must not be negative")
	}
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.store.ListRunsExpanded(ctx, eventID, round)
}
