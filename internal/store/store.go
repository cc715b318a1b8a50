package store

import (
	"context"

	"teamroping/internal/draw"
	"teamroping/internal/models"
)

// Store is the persistence boundary. Every multi-row mutation is atomic.
type Store interface {
	ListRopers(ctx context.Context) ([]models.Roper, error)
	GetRoper(ctx context.Context, id int64) (*models.Roper, error)
	CreateRoper(ctx context.Context, r *models.Roper) (int64, error)
	UpdateRoper(ctx context.Context, r *models.Roper) error
	DeleteRoper(ctx context.Context, id int64) error
	// RoperEventIDs lists the events where the roper is on a team.
	RoperEventIDs(ctx context.Context, roperID int64) ([]int64, error)

	ListSeries(ctx context.Context) ([]models.Series, error)
	CreateSeries(ctx context.Context, s *models.Series) (int64, error)
	UpdateSeries(ctx context.Context, s *models.Series) error
	// DeleteSeries removes the series and every event in it. It refuses
	// while any of those events is locked.
	DeleteSeries(ctx context.Context, id int64) error

	// ListEvents returns all events when seriesID is 0.
	ListEvents(ctx context.Context, seriesID int64) ([]models.Event, error)
	GetEvent(ctx context.Context, id int64) (*models.Event, error)
	CreateEvent(ctx context.Context, e *models.Event) (int64, error)
	// UpdateEvent rewrites the editable event fields. Status and pin are
	// left alone.
	UpdateEvent(ctx context.Context, e *models.Event) error
	UpdateEventStatus(ctx context.Context, id int64, status models.EventStatus) error
	// DeleteEvent removes the event with its teams, draw, runs and payoff rules.
	DeleteEvent(ctx context.Context, id int64) error

	ListTeams(ctx context.Context, eventID int64, activeOnly bool) ([]models.Team, error)
	GetTeam(ctx context.Context, id int64) (*models.Team, error)
	// CreateTeam fails with a conflict when the ordered pair already exists in the event.
	CreateTeam(ctx context.Context, t *models.Team) (int64, error)
	UpdateTeamStatus(ctx context.Context, eventID, teamID int64, status models.TeamStatus) error
	// DeleteTeam removes the team together with its draw slots and runs.
	DeleteTeam(ctx context.Context, eventID, teamID int64) error
	DeleteTeamsForEvent(ctx context.Context, eventID int64) (int64, error)

	ListRuns(ctx context.Context, eventID int64) ([]models.Run, error)
	// ListRunsExpanded returns every round when round is 0.
	ListRunsExpanded(ctx context.Context, eventID int64, round int) ([]models.RunExpanded, error)
	ListDraw(ctx context.Context, eventID int64, round int) ([]models.DrawSlot, error)
	// ApplyRoundPlans rewrites each planned round in a single transaction and
	// refuses the whole batch when any targeted round already holds a
	// completed run. It returns the number of slots written.
	ApplyRoundPlans(ctx context.Context, eventID int64, plans []draw.RoundPlan) (int, error)
	// SaveRun upserts a completed run on (event, round, team) and locks the
	// event when it is still draft or active. lockedNow is true only for the
	// call that performed the transition.
	SaveRun(ctx context.Context, run *models.Run) (id int64, lockedNow bool, err error)

	ListPayoffRules(ctx context.Context, eventID int64) ([]models.PayoffRule, error)
	UpsertPayoffRule(ctx context.Context, rule *models.PayoffRule) (int64, error)
	DeletePayoffRule(ctx context.Context, eventID, ruleID int64) error
	ReplacePayoffRules(ctx context.Context, eventID int64, rules []models.PayoffRule) error
}

// lockableStatuses are the event statuses a first saved run moves to locked.
var lockableStatuses = []models.EventStatus{models.EventDraft, models.EventActive}

func lockable(st models.EventStatus) bool {
	for _, s := range lockableStatuses {
		if s == st {
			return true
		}
	}
	return false
}
