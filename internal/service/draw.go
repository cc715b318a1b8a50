package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"teamroping/internal/apperr"
	"teamroping/internal/draw"
	"teamroping/internal/models"
)

func validateRound(ev *models.Event, round int) error {
	if round < 1 {
		return apperr.Validation("round must be at least 1")
	}
	if ev.Rounds > 0 && round > ev.Rounds {
		return apperr.Validation("round %d exceeds the event's %d round(s)", round, ev.Rounds)
	}
	return nil
}

// GenerateDraw lays out one round. Teams eliminated earlier are left out and
// any run row they already hold in the round is marked skipped.
func (s *Service) GenerateDraw(ctx context.Context, eventID int64, round int, reseed, seedRuns bool) (int, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if err := ensureNotClosed(ev); err != nil {
		return 0, err
	}
	if err := validateRound(ev, round); err != nil {
		return 0, err
	}

	runs, err := s.store.ListRuns(ctx, eventID)
	if err != nil {
		return 0, err
	}
	var current, previous []models.Run
	completed := 0
	for _, r := range runs {
		switch r.Round {
		case round:
			current = append(current, r)
			if r.Status == models.RunCompleted {
				completed++
			}
		case round - 1:
			previous = append(previous, r)
		}
	}
	if round > 1 && len(previous) == 0 {
		return 0, apperr.Precondition("round %d must be drawn before round %d", round-1, round)
	}
	if completed > 0 {
		return 0, apperr.Precondition("round %d has %d completed run(s) and cannot be regenerated", round, completed)
	}

	teams, err := s.store.ListTeams(ctx, eventID, true)
	if err != nil {
		return 0, err
	}
	eliminated := draw.EliminatedTeams(runs, round)
	eligible := make([]draw.Entry, 0, len(teams))
	for _, t := range teams {
		if !eliminated[t.ID] {
			eligible = append(eligible, draw.EntryFromTeam(t))
		}
	}
	if len(eligible) == 0 {
		return 0, apperr.Precondition("no eligible teams for round %d", round)
	}

	var ordered []draw.Entry
	if reseed {
		ordered = draw.ShuffleAndSpace(eligible, s.newRNG())
	} else {
		prior, err := s.priorOrder(ctx, eventID, round, current, previous)
		if err != nil {
			return 0, err
		}
		ordered = draw.OrderSlots(eligible, prior)
	}

	plan := draw.PlanRound(eventID, round, ordered, current, eliminated, seedRuns)
	n, err := s.store.ApplyRoundPlans(ctx, eventID, []draw.RoundPlan{plan})
	if err != nil {
		return 0, err
	}
	s.log.Info("draw generated",
		zap.Int64("event_id", eventID),
		zap.Int("round", round),
		zap.Bool("reseed", reseed),
		zap.Int("slots", n),
		zap.Int("skipped", len(plan.Skip)))
	s.invalidate(ctx, eventID)
	s.notifier.Notify(eventID, KindDrawGenerated, map[string]int{"round": round, "slots": n})
	return n, nil
}

// priorOrder finds the order to preserve: this round's slots, then the
// previous round's slots, then run positions.
func (s *Service) priorOrder(ctx context.Context, eventID int64, round int, current, previous []models.Run) ([]int64, error) {
	for _, r := range []int{round, round - 1} {
		if r < 1 {
			continue
		}
		slots, err := s.store.ListDraw(ctx, eventID, r)
		if err != nil {
			return nil, err
		}
		if len(slots) > 0 {
			ids := make([]int64, len(slots))
			for i, sl := range slots {
				ids[i] = sl.TeamID
			}
			return ids, nil
		}
	}
	for _, runs := range [][]models.Run{current, previous} {
		if ids := runOrder(runs); len(ids) > 0 {
			return ids, nil
		}
	}
	return nil, nil
}

func runOrder(runs []models.Run) []int64 {
	active := make([]models.Run, 0, len(runs))
	for _, r := range runs {
		if r.Status != models.RunSkipped {
			active = append(active, r)
		}
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].Position < active[j].Position })
	ids := make([]int64, len(active))
	for i, r := range active {
		ids[i] = r.TeamID
	}
	return ids
}

// GenerateDrawBatch seeds rounds 1..rounds with every active team. It is the
// bootstrap path and applies no elimination.
func (s *Service) GenerateDrawBatch(ctx context.Context, eventID int64, rounds int, shuffle bool) (int, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if err := ensureOpen(ev); err != nil {
		return 0, err
	}
	if err := validateRound(ev, rounds); err != nil {
		return 0, err
	}
	teams, err := s.store.ListTeams(ctx, eventID, true)
	if err != nil {
		return 0, err
	}
	if len(teams) == 0 {
		return 0, apperr.Precondition("event %d has no active teams", eventID)
	}
	runs, err := s.store.ListRuns(ctx, eventID)
	if err != nil {
		return 0, err
	}
	byRound := make(map[int][]models.Run)
	for _, r := range runs {
		byRound[r.Round] = append(byRound[r.Round], r)
	}

	entries := make([]draw.Entry, len(teams))
	for i, t := range teams {
		entries[i] = draw.EntryFromTeam(t)
	}
	rng := s.newRNG()
	plans := make([]draw.RoundPlan, 0, rounds)
	for r := 1; r <= rounds; r++ {
		ordered := entries
		if shuffle {
			ordered = draw.ShuffleAndSpace(entries, rng)
		}
		plans = append(plans, draw.PlanRound(eventID, r, ordered, byRound[r], nil, true))
	}
	n, err := s.store.ApplyRoundPlans(ctx, eventID, plans)
	if err != nil {
		return 0, err
	}
	s.log.Info("draw batch generated",
		zap.Int64("event_id", eventID),
		zap.Int("rounds", rounds),
		zap.Bool("shuffle", shuffle),
		zap.Int("slots", n))
	s.invalidate(ctx, eventID)
	s.notifier.Notify(eventID, KindDrawGenerated, map[string]int{"rounds": rounds, "slots": n})
	return n, nil
}

func (s *Service) GetDraw(ctx context.Context, eventID int64, round int) ([]models.DrawSlot, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := validateRound(ev, round); err != nil {
		return nil, err
	}
	return s.store.ListDraw(ctx, eventID, round)
}
