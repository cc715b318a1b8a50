package service

import (
	"context"

	"go.uber.org/zap"

	"teamroping/internal/apperr"
	"teamroping/internal/draw"
	"teamroping/internal/models"
)

func (s *Service) ListTeams(ctx context.Context, eventID int64) ([]models.Team, error) {
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.store.ListTeams(ctx, eventID, false)
}

// ListTeamDetails joins teams with roper names.
func (s *Service) ListTeamDetails(ctx context.Context, eventID int64) ([]models.TeamDetail, error) {
	teams, err := s.ListTeams(ctx, eventID)
	if err != nil {
		return nil, err
	}
	ropers, err := s.store.ListRopers(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(ropers))
	for _, r := range ropers {
		names[r.ID] = r.FullName()
	}
	out := make([]models.TeamDetail, 0, len(teams))
	for _, t := range teams {
		out = append(out, models.TeamDetail{Team: t, HeaderName: names[t.HeaderID], HeelerName: names[t.HeelerID]})
	}
	return out, nil
}

// CreateTeam adds one team by hand. rating may be 0, in which case the
// ropers' combined rating is used; any other value must match it.
func (s *Service) CreateTeam(ctx context.Context, eventID, headerID, heelerID int64, rating int) (*models.Team, error) {
	if headerID == heelerID {
		return nil, apperr.Validation("header and heeler must be different ropers")
	}
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := ensureOpen(ev); err != nil {
		return nil, err
	}
	header, err := s.store.GetRoper(ctx, headerID)
	if err != nil {
		return nil, err
	}
	heeler, err := s.store.GetRoper(ctx, heelerID)
	if err != nil {
		return nil, err
	}
	if !header.Specialty.CanHead() {
		return nil, apperr.Validation("roper %d cannot head", headerID)
	}
	if !heeler.Specialty.CanHeel() {
		return nil, apperr.Validation("roper %d cannot heel", heelerID)
	}
	combined := header.Rating + heeler.Rating
	if rating != 0 && rating != combined {
		return nil, apperr.Validation("team rating %d does not match combined roper rating %d", rating, combined)
	}
	if ev.MaxTeamRating > 0 && combined > ev.MaxTeamRating {
		return nil, apperr.Validation("team rating %d exceeds event cap %d", combined, ev.MaxTeamRating)
	}
	team := &models.Team{EventID: eventID, HeaderID: headerID, HeelerID: heelerID, Rating: combined, Status: models.TeamActive}
	if _, err := s.store.CreateTeam(ctx, team); err != nil {
		return nil, err
	}
	s.invalidate(ctx, eventID)
	s.notifier.Notify(eventID, KindTeamsChanged, team)
	return team, nil
}

func (s *Service) DeleteTeam(ctx context.Context, eventID, teamID int64) error {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if err := ensureOpen(ev); err != nil {
		return err
	}
	if err := s.store.DeleteTeam(ctx, eventID, teamID); err != nil {
		return err
	}
	s.invalidate(ctx, eventID)
	s.notifier.Notify(eventID, KindTeamsChanged, map[string]int64{"deleted": teamID})
	return nil
}

// UpdateTeamStatus benches or restores a team. Inactive teams stay listed
// but are left out of new draws and the entry pot.
func (s *Service) UpdateTeamStatus(ctx context.Context, eventID, teamID int64, status models.TeamStatus) error {
	if !status.Valid() {
		return apperr.Validation("team status must be active or inactive")
	}
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if err := ensureOpen(ev); err != nil {
		return err
	}
	if err := s.store.UpdateTeamStatus(ctx, eventID, teamID, status); err != nil {
		return err
	}
	s.log.Info("team status changed", zap.Int64("event_id", eventID), zap.Int64("team_id", teamID), zap.String("status", string(status)))
	s.invalidate(ctx, eventID)
	s.notifier.Notify(eventID, KindTeamsChanged, map[string]any{"team_id": teamID, "status": status})
	return nil
}

// HardDeleteTeamsForEvent removes every team with its draw and runs.
func (s *Service) HardDeleteTeamsForEvent(ctx context.Context, eventID int64) (int64, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if err := ensureOpen(ev); err != nil {
		return 0, err
	}
	n, err := s.store.DeleteTeamsForEvent(ctx, eventID)
	if err != nil {
		return 0, err
	}
	s.log.Warn("event teams purged", zap.Int64("event_id", eventID), zap.Int64("teams", n))
	s.invalidate(ctx, eventID)
	s.notifier.Notify(eventID, KindTeamsChanged, map[string]int64{"purged": n})
	return n, nil
}

type GenerateTeamsInput struct {
	Strategy        draw.Strategy
	EntriesPerRoper int
	ClearExisting   bool
}

type PairingReport struct {
	Created    int              `json:"created"`
	Duplicates int              `json:"duplicates"`
	Failed     int              `json:"failed"`
	Exclusions []draw.Exclusion `json:"exclusions"`
}

// GenerateTeams creates teams from the roper pool. Individual creation
// failures are tallied and never abort the batch.
func (s *Service) GenerateTeams(ctx context.Context, eventID int64, in GenerateTeamsInput) (*PairingReport, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := ensureOpen(ev); err != nil {
		return nil, err
	}
	if in.Strategy == "" {
		in.Strategy = draw.StrategyBalanced
	}
	if in.EntriesPerRoper <= 0 {
		in.EntriesPerRoper = s.defaultEntries
	}
	if in.ClearExisting {
		n, err := s.store.DeleteTeamsForEvent(ctx, eventID)
		if err != nil {
			return nil, err
		}
		s.log.Warn("event teams cleared before generation", zap.Int64("event_id", eventID), zap.Int64("teams", n))
	}

	ropers, err := s.store.ListRopers(ctx)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.ListTeams(ctx, eventID, false)
	if err != nil {
		return nil, err
	}
	plan := draw.PlanPairs(ropers, draw.PairingOptions{
		Strategy:        in.Strategy,
		MaxTeamRating:   ev.MaxTeamRating,
		EntriesPerRoper: in.EntriesPerRoper,
		Existing:        existing,
	}, s.newRNG())

	report := &PairingReport{Duplicates: plan.Duplicates, Exclusions: plan.Exclusions}
	for _, p := range plan.Pairs {
		team := &models.Team{EventID: eventID, HeaderID: p.HeaderID, HeelerID: p.HeelerID, Rating: p.Rating, Status: models.TeamActive}
		_, err := s.store.CreateTeam(ctx, team)
		switch {
		case err == nil:
			report.Created++
		case apperr.Is(err, apperr.KindConflict):
			report.Duplicates++
		default:
			report.Failed++
			s.log.Warn("team creation failed",
				zap.Int64("event_id", eventID),
				zap.Int64("header_id", p.HeaderID),
				zap.Int64("heeler_id", p.HeelerID),
				zap.Error(err))
		}
	}
	s.log.Info("teams generated",
		zap.Int64("event_id", eventID),
		zap.String("strategy", string(in.Strategy)),
		zap.Int("created", report.Created),
		zap.Int("duplicates", report.Duplicates),
		zap.Int("failed", report.Failed),
		zap.Int("excluded", len(report.Exclusions)))
	if report.Exclusions == nil {
		report.Exclusions = []draw.Exclusion{}
	}
	s.invalidate(ctx, eventID)
	s.notifier.Notify(eventID, KindTeamsChanged, report)
	return report, nil
}
