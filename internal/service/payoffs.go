package service

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"teamroping/internal/apperr"
	"teamroping/internal/models"
	"teamroping/internal/standings"
)

func (s *Service) ListPayoffRules(ctx context.Context, eventID int64) ([]models.PayoffRule, error) {
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.store.ListPayoffRules(ctx, eventID)
}

// CreatePayoffRule sets the share for one place, replacing any rule already
// held for that place. Rules are not normalized to sum to 1.
func (s *Service) CreatePayoffRule(ctx context.Context, eventID int64, position int, pct decimal.Decimal) (*models.PayoffRule, error) {
	if position < 1 {
		return nil, apperr.Validation("payoff place must be at least 1")
	}
	if pct.IsNegative() || pct.GreaterThan(one) {
		return nil, apperr.Validation("payoff percentage must be between 0 and 1")
	}
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	rule := &models.PayoffRule{EventID: eventID, Position: position, Percentage: pct}
	if _, err := s.store.UpsertPayoffRule(ctx, rule); err != nil {
		return nil, err
	}
	s.notifier.Notify(eventID, KindPayoffsChanged, rule)
	return rule, nil
}

func (s *Service) DeletePayoffRule(ctx context.Context, eventID, ruleID int64) error {
	if err := s.store.DeletePayoffRule(ctx, eventID, ruleID); err != nil {
		return err
	}
	s.notifier.Notify(eventID, KindPayoffsChanged, map[string]int64{"deleted": ruleID})
	return nil
}

// ApplyPayoffPreset replaces the whole rule set in one transaction.
func (s *Service) ApplyPayoffPreset(ctx context.Context, eventID int64, name string) ([]models.PayoffRule, error) {
	preset, ok := standings.PresetByName(name)
	if !ok {
		return nil, apperr.Validation("unknown payoff preset %q", name)
	}
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	if err := s.store.ReplacePayoffRules(ctx, eventID, preset.Rules(eventID)); err != nil {
		return nil, err
	}
	rules, err := s.store.ListPayoffRules(ctx, eventID)
	if err != nil {
		return nil, err
	}
	s.log.Info("payoff preset applied", zap.Int64("event_id", eventID), zap.String("preset", name), zap.Int("places", len(rules)))
	s.notifier.Notify(eventID, KindPayoffsChanged, rules)
	return rules, nil
}

func (s *Service) GetPayoutBreakdown(ctx context.Context, eventID int64) (*models.PayoutBreakdown, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	teams, err := s.store.ListTeams(ctx, eventID, true)
	if err != nil {
		return nil, err
	}
	rules, err := s.store.ListPayoffRules(ctx, eventID)
	if err != nil {
		return nil, err
	}
	total, deductions := standings.EventPot(*ev, len(teams))
	b := standings.Breakdown(total, deductions, rules)
	return &b, nil
}

type PayoffBoard struct {
	Breakdown models.PayoutBreakdown `json:"breakdown"`
	Places    []models.PayoffPlace   `json:"places"`
}

// GetPayoffBoard joins each payout place with the qualified team holding
// that rank. Unfilled places come back vacant.
func (s *Service) GetPayoffBoard(ctx context.Context, eventID int64) (*PayoffBoard, error) {
	b, err := s.GetPayoutBreakdown(ctx, eventID)
	if err != nil {
		return nil, err
	}
	rows, err := s.GetStandings(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return &PayoffBoard{Breakdown: *b, Places: standings.Join(*b, rows)}, nil
}
