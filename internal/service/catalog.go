package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"teamroping/internal/apperr"
	"teamroping/internal/auth"
	"teamroping/internal/models"
)

func (s *Service) ListRopers(ctx context.Context) ([]models.Roper, error) {
	return s.store.ListRopers(ctx)
}

func validateRoper(r *models.Roper) error {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	if r.FirstName == "" && r.LastName == "" {
		return apperr.Validation("roper name required")
	}
	if !r.Specialty.Valid() {
		return apperr.Validation("specialty must be header, heeler or both")
	}
	if r.Rating < 0 {
		return apperr.Validation("rating must not be negative")
	}
	return nil
}

func (s *Service) CreateRoper(ctx context.Context, r *models.Roper) (int64, error) {
	if err := validateRoper(r); err != nil {
		return 0, err
	}
	return s.store.CreateRoper(ctx, r)
}

// UpdateRoper never touches existing team ratings; those are snapshots.
// Cached standings carry roper names, so every event the roper entered is
// invalidated.
func (s *Service) UpdateRoper(ctx context.Context, r *models.Roper) error {
	if err := validateRoper(r); err != nil {
		return err
	}
	if err := s.store.UpdateRoper(ctx, r); err != nil {
		return err
	}
	events, err := s.store.RoperEventIDs(ctx, r.ID)
	if err != nil {
		s.log.Warn("roper events lookup failed", zap.Int64("roper_id", r.ID), zap.Error(err))
		return nil
	}
	for _, eventID := range events {
		s.invalidate(ctx, eventID)
		s.notifier.Notify(eventID, KindTeamsChanged, map[string]int64{"roper_id": r.ID})
	}
	return nil
}

func (s *Service) DeleteRoper(ctx context.Context, id int64) error {
	return s.store.DeleteRoper(ctx, id)
}

func (s *Service) ListSeries(ctx context.Context) ([]models.Series, error) {
	return s.store.ListSeries(ctx)
}

func validateSeries(sr *models.Series) error {
	sr.Name = strings.TrimSpace(sr.Name)
	if sr.Name == "" {
		return apperr.Validation("series name required")
	}
	if sr.Status == "" {
		sr.Status = models.SeriesUpcoming
	}
	if sr.StartDate != nil && sr.EndDate != nil && sr.EndDate.Before(*sr.StartDate) {
		return apperr.Validation("series end date is before start date")
	}
	return nil
}

func (s *Service) CreateSeries(ctx context.Context, sr *models.Series) (int64, error) {
	if err := validateSeries(sr); err != nil {
		return 0, err
	}
	return s.store.CreateSeries(ctx, sr)
}

func (s *Service) UpdateSeries(ctx context.Context, sr *models.Series) error {
	if err := validateSeries(sr); err != nil {
		return err
	}
	return s.store.UpdateSeries(ctx, sr)
}

// DeleteSeries removes the series with all of its events. A series holding a
// locked event is refused.
func (s *Service) DeleteSeries(ctx context.Context, id int64) error {
	events, err := s.store.ListEvents(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteSeries(ctx, id); err != nil {
		return err
	}
	s.log.Warn("series deleted", zap.Int64("series_id", id), zap.Int("events", len(events)))
	for _, ev := range events {
		s.invalidate(ctx, ev.ID)
		s.notifier.Notify(ev.ID, KindEventDeleted, map[string]int64{"series_id": id})
	}
	return nil
}

type CreateEventInput struct {
	SeriesID      int64
	Name          string
	Date          *time.Time
	Location      string
	Rounds        int
	EntryFee      decimal.Decimal
	PrizePool     decimal.Decimal
	DeductionPct  decimal.Decimal
	MaxTeamRating int
	AdminPin      string
}

var one = decimal.NewFromInt(1)

func validateEvent(ev *models.Event) error {
	ev.Name = strings.TrimSpace(ev.Name)
	ev.Location = strings.TrimSpace(ev.Location)
	switch {
	case ev.Name == "":
		return apperr.Validation("event name required")
	case ev.Rounds < 1:
		return apperr.Validation("event needs at least one round")
	case ev.EntryFee.IsNegative():
		return apperr.Validation("entry fee must not be negative")
	case ev.PrizePool.IsNegative():
		return apperr.Validation("prize pool must not be negative")
	case ev.DeductionPct.IsNegative() || ev.DeductionPct.GreaterThan(one):
		return apperr.Validation("deduction percentage must be between 0 and 1")
	case ev.MaxTeamRating < 0:
		return apperr.Validation("max team rating must not be negative")
	}
	return nil
}

func (s *Service) CreateEvent(ctx context.Context, in CreateEventInput) (*models.Event, error) {
	ev := &models.Event{
		SeriesID:      in.SeriesID,
		Name:          in.Name,
		Date:          in.Date,
		Location:      in.Location,
		Rounds:        in.Rounds,
		Status:        models.EventDraft,
		EntryFee:      in.EntryFee,
		PrizePool:     in.PrizePool,
		DeductionPct:  in.DeductionPct,
		MaxTeamRating: in.MaxTeamRating,
	}
	if err := validateEvent(ev); err != nil {
		return nil, err
	}
	hash, err := auth.HashPin(in.AdminPin)
	if err != nil {
		return nil, apperr.Persistence("failed to hash event pin", err)
	}
	ev.AdminPinHash = hash
	if _, err := s.store.CreateEvent(ctx, ev); err != nil {
		return nil, err
	}
	s.log.Info("event created", zap.Int64("event_id", ev.ID), zap.String("name", ev.Name), zap.Int("rounds", ev.Rounds))
	return ev, nil
}

func (s *Service) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	return s.store.GetEvent(ctx, id)
}

func (s *Service) ListEvents(ctx context.Context, seriesID int64) ([]models.Event, error) {
	return s.store.ListEvents(ctx, seriesID)
}

type UpdateEventInput struct {
	Name          string
	Date          *time.Time
	Location      string
	Rounds        int
	EntryFee      decimal.Decimal
	PrizePool     decimal.Decimal
	DeductionPct  decimal.Decimal
	MaxTeamRating int
}

// UpdateEvent edits an event that holds no results yet. Rounds cannot drop
// below a round that has already been drawn. A lowered rating cap only
// applies to teams created afterwards.
func (s *Service) UpdateEvent(ctx context.Context, eventID int64, in UpdateEventInput) (*models.Event, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := ensureOpen(ev); err != nil {
		return nil, err
	}
	next := *ev
	next.Name = in.Name
	next.Date = in.Date
	next.Location = in.Location
	next.Rounds = in.Rounds
	next.EntryFee = in.EntryFee
	next.PrizePool = in.PrizePool
	next.DeductionPct = in.DeductionPct
	next.MaxTeamRating = in.MaxTeamRating
	if err := validateEvent(&next); err != nil {
		return nil, err
	}
	for round := next.Rounds + 1; round <= ev.Rounds; round++ {
		slots, err := s.store.ListDraw(ctx, eventID, round)
		if err != nil {
			return nil, err
		}
		if len(slots) > 0 {
			return nil, apperr.Precondition("round %d is already drawn; event needs at least %d rounds", round, round)
		}
	}
	if err := s.store.UpdateEvent(ctx, &next); err != nil {
		return nil, err
	}
	s.log.Info("event updated", zap.Int64("event_id", eventID), zap.Int("rounds", next.Rounds))
	s.invalidate(ctx, eventID)
	s.notifier.Notify(eventID, KindEventUpdated, &next)
	return &next, nil
}

// DeleteEvent removes the event with its teams, draw, runs and payoff rules.
// A locked event is mid-competition and is refused.
func (s *Service) DeleteEvent(ctx context.Context, eventID int64) error {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if ev.Status == models.EventLocked {
		return apperr.Precondition("event %d is locked; complete or archive it before deleting", eventID)
	}
	if err := s.store.DeleteEvent(ctx, eventID); err != nil {
		return err
	}
	s.log.Warn("event deleted", zap.Int64("event_id", eventID), zap.String("name", ev.Name))
	s.invalidate(ctx, eventID)
	s.notifier.Notify(eventID, KindEventDeleted, map[string]int64{"event_id": eventID})
	return nil
}

// UpdateEventStatus refuses to reopen an event that already holds results.
func (s *Service) UpdateEventStatus(ctx context.Context, eventID int64, status models.EventStatus) error {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if status == models.EventDraft || status == models.EventActive {
		runs, err := s.store.ListRuns(ctx, eventID)
		if err != nil {
			return err
		}
		for _, r := range runs {
			if r.Status == models.RunCompleted {
				return apperr.Precondition("event %d has captured results and cannot return to %s", eventID, status)
			}
		}
	}
	if err := s.store.UpdateEventStatus(ctx, eventID, status); err != nil {
		return err
	}
	s.log.Info("event status changed",
		zap.Int64("event_id", eventID),
		zap.String("from", string(ev.Status)),
		zap.String("to", string(status)))
	return nil
}

// VerifyEventPin returns auth.ErrPinMismatch when the event is pin-protected
// and pin does not match.
func (s *Service) VerifyEventPin(ctx context.Context, eventID int64, pin string) error {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	return auth.CheckPin(ev.AdminPinHash, pin)
}
