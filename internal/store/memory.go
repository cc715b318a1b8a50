package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"teamroping/internal/apperr"
	"teamroping/internal/draw"
	"teamroping/internal/models"
)

type runKey struct {
	eventID int64
	round   int
	teamID  int64
}

// MemoryStore backs the service when the database is disabled. It holds one
// mutex for the whole dataset so every call is atomic.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	now    func() time.Time

	ropers  map[int64]models.Roper
	series  map[int64]models.Series
	events  map[int64]models.Event
	teams   map[int64]models.Team
	runs    map[runKey]models.Run
	slots   map[int64]map[int][]models.DrawSlot
	payoffs map[int64]models.PayoffRule
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:     time.Now,
		ropers:  map[int64]models.Roper{},
		series:  map[int64]models.Series{},
		events:  map[int64]models.Event{},
		teams:   map[int64]models.Team{},
		runs:    map[runKey]models.Run{},
		slots:   map[int64]map[int][]models.DrawSlot{},
		payoffs: map[int64]models.PayoffRule{},
	}
}

func (m *MemoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MemoryStore) ListRopers(_ context.Context) ([]models.Roper, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Roper, 0, len(m.ropers))
	for _, r := range m.ropers {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		if out[i].FirstName != out[j].FirstName {
			return out[i].FirstName < out[j].FirstName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) GetRoper(_ context.Context, id int64) (*models.Roper, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.ropers[id]
	if !ok {
		return nil, apperr.NotFound("roper %d not found", id)
	}
	return &r, nil
}

func (m *MemoryStore) CreateRoper(_ context.Context, r *models.Roper) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = m.id()
	r.CreatedAt = m.now()
	r.UpdatedAt = r.CreatedAt
	m.ropers[r.ID] = *r
	return r.ID, nil
}

func (m *MemoryStore) UpdateRoper(_ context.Context, r *models.Roper) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.ropers[r.ID]
	if !ok {
		return apperr.NotFound("roper %d not found", r.ID)
	}
	r.CreatedAt = prev.CreatedAt
	r.UpdatedAt = m.now()
	m.ropers[r.ID] = *r
	return nil
}

func (m *MemoryStore) DeleteRoper(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ropers[id]; !ok {
		return apperr.NotFound("roper %d not found", id)
	}
	teams := 0
	for _, t := range m.teams {
		if t.HeaderID == id || t.HeelerID == id {
			teams++
		}
	}
	if teams > 0 {
		return apperr.Conflict("roper %d is on %d team(s)", id, teams)
	}
	delete(m.ropers, id)
	return nil
}

func (m *MemoryStore) RoperEventIDs(_ context.Context, roperID int64) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := map[int64]bool{}
	var out []int64
	for _, t := range m.teams {
		if (t.HeaderID == roperID || t.HeelerID == roperID) && !seen[t.EventID] {
			seen[t.EventID] = true
			out = append(out, t.EventID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *MemoryStore) ListSeries(_ context.Context) ([]models.Series, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Series, 0, len(m.series))
	for _, s := range m.series {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *MemoryStore) CreateSeries(_ context.Context, s *models.Series) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.id()
	s.CreatedAt = m.now()
	m.series[s.ID] = *s
	return s.ID, nil
}

func (m *MemoryStore) UpdateSeries(_ context.Context, sr *models.Series) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.series[sr.ID]
	if !ok {
		return apperr.NotFound("series %d not found", sr.ID)
	}
	sr.CreatedAt = prev.CreatedAt
	m.series[sr.ID] = *sr
	return nil
}

func (m *MemoryStore) DeleteSeries(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.series[id]; !ok {
		return apperr.NotFound("series %d not found", id)
	}
	var events []int64
	locked := 0
	for _, e := range m.events {
		if e.SeriesID != id {
			continue
		}
		events = append(events, e.ID)
		if e.Status == models.EventLocked {
			locked++
		}
	}
	if locked > 0 {
		return apperr.Precondition("series %d has %d locked event(s)", id, locked)
	}
	for _, eventID := range events {
		m.dropEvent(eventID)
	}
	delete(m.series, id)
	return nil
}

func (m *MemoryStore) ListEvents(_ context.Context, seriesID int64) ([]models.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Event
	for _, e := range m.events {
		if seriesID > 0 && e.SeriesID != seriesID {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *MemoryStore) GetEvent(_ context.Context, id int64) (*models.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.events[id]
	if !ok {
		return nil, apperr.NotFound("event %d not found", id)
	}
	return &e, nil
}

func (m *MemoryStore) CreateEvent(_ context.Context, e *models.Event) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = m.id()
	e.CreatedAt = m.now()
	e.UpdatedAt = e.CreatedAt
	m.events[e.ID] = *e
	return e.ID, nil
}

func (m *MemoryStore) UpdateEvent(_ context.Context, e *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.events[e.ID]
	if !ok {
		return apperr.NotFound("event %d not found", e.ID)
	}
	cur.Name = e.Name
	cur.Date = e.Date
	cur.Location = e.Location
	cur.Rounds = e.Rounds
	cur.EntryFee = e.EntryFee
	cur.PrizePool = e.PrizePool
	cur.DeductionPct = e.DeductionPct
	cur.MaxTeamRating = e.MaxTeamRating
	cur.UpdatedAt = m.now()
	m.events[e.ID] = cur
	return nil
}

func (m *MemoryStore) DeleteEvent(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return apperr.NotFound("event %d not found", id)
	}
	m.dropEvent(id)
	return nil
}

// dropEvent removes the event and everything keyed by it. Callers hold mu.
func (m *MemoryStore) dropEvent(id int64) {
	delete(m.events, id)
	delete(m.slots, id)
	for k, t := range m.teams {
		if t.EventID == id {
			delete(m.teams, k)
		}
	}
	for k := range m.runs {
		if k.eventID == id {
			delete(m.runs, k)
		}
	}
	for k, p := range m.payoffs {
		if p.EventID == id {
			delete(m.payoffs, k)
		}
	}
}

func (m *MemoryStore) UpdateEventStatus(_ context.Context, id int64, status models.EventStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return apperr.NotFound("event %d not found", id)
	}
	e.Status = status
	e.UpdatedAt = m.now()
	m.events[id] = e
	return nil
}

func (m *MemoryStore) ListTeams(_ context.Context, eventID int64, activeOnly bool) ([]models.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Team
	for _, t := range m.teams {
		if t.EventID != eventID || (activeOnly && t.Status != models.TeamActive) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) GetTeam(_ context.Context, id int64) (*models.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.teams[id]
	if !ok {
		return nil, apperr.NotFound("team %d not found", id)
	}
	return &t, nil
}

func (m *MemoryStore) CreateTeam(_ context.Context, t *models.Team) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.teams {
		if existing.EventID == t.EventID && existing.HeaderID == t.HeaderID && existing.HeelerID == t.HeelerID {
			return 0, apperr.Conflict("team %d/%d already exists in event %d", t.HeaderID, t.HeelerID, t.EventID)
		}
	}
	if t.Status == "" {
		t.Status = models.TeamActive
	}
	t.ID = m.id()
	t.CreatedAt = m.now()
	m.teams[t.ID] = *t
	return t.ID, nil
}

func (m *MemoryStore) UpdateTeamStatus(_ context.Context, eventID, teamID int64, status models.TeamStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teams[teamID]
	if !ok || t.EventID != eventID {
		return apperr.NotFound("team %d not found", teamID)
	}
	t.Status = status
	m.teams[teamID] = t
	return nil
}

func (m *MemoryStore) DeleteTeam(_ context.Context, eventID, teamID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teams[teamID]
	if !ok || t.EventID != eventID {
		return apperr.NotFound("team %d not found", teamID)
	}
	delete(m.teams, teamID)
	for k := range m.runs {
		if k.eventID == eventID && k.teamID == teamID {
			delete(m.runs, k)
		}
	}
	for round, slots := range m.slots[eventID] {
		kept := slots[:0]
		for _, s := range slots {
			if s.TeamID != teamID {
				kept = append(kept, s)
			}
		}
		m.slots[eventID][round] = kept
	}
	return nil
}

func (m *MemoryStore) DeleteTeamsForEvent(_ context.Context, eventID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, t := range m.teams {
		if t.EventID == eventID {
			delete(m.teams, id)
			n++
		}
	}
	for k := range m.runs {
		if k.eventID == eventID {
			delete(m.runs, k)
		}
	}
	delete(m.slots, eventID)
	return n, nil
}

func sortRuns(runs []models.Run) {
	sort.Slice(runs, func(i, j int) bool {
		a, b := runs[i], runs[j]
		if a.Round != b.Round {
			return a.Round < b.Round
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.TeamID < b.TeamID
	})
}

func (m *MemoryStore) ListRuns(_ context.Context, eventID int64) ([]models.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Run
	for k, r := range m.runs {
		if k.eventID == eventID {
			out = append(out, r)
		}
	}
	sortRuns(out)
	return out, nil
}

func (m *MemoryStore) ListRunsExpanded(_ context.Context, eventID int64, round int) ([]models.RunExpanded, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var runs []models.Run
	for k, r := range m.runs {
		if k.eventID == eventID && (round <= 0 || k.round == round) {
			runs = append(runs, r)
		}
	}
	sortRuns(runs)
	out := make([]models.RunExpanded, 0, len(runs))
	for _, r := range runs {
		t, ok := m.teams[r.TeamID]
		if !ok {
			continue
		}
		out = append(out, models.RunExpanded{
			Run:        r,
			HeaderID:   t.HeaderID,
			HeelerID:   t.HeelerID,
			HeaderName: m.ropers[t.HeaderID].FullName(),
			HeelerName: m.ropers[t.HeelerID].FullName(),
		})
	}
	return out, nil
}

func (m *MemoryStore) ListDraw(_ context.Context, eventID int64, round int) ([]models.DrawSlot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	slots := m.slots[eventID][round]
	return append([]models.DrawSlot(nil), slots...), nil
}

func (m *MemoryStore) ApplyRoundPlans(_ context.Context, eventID int64, plans []draw.RoundPlan) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Validate every round before touching anything.
	for _, p := range plans {
		completed := 0
		for k, r := range m.runs {
			if k.eventID == eventID && k.round == p.Round && r.Status == models.RunCompleted {
				completed++
			}
		}
		if completed > 0 {
			return 0, apperr.Precondition("round %d already has %d completed run(s)", p.Round, completed)
		}
	}

	total := 0
	for _, p := range plans {
		if m.slots[eventID] == nil {
			m.slots[eventID] = map[int][]models.DrawSlot{}
		}
		slots := make([]models.DrawSlot, len(p.Slots))
		for i, s := range p.Slots {
			s.EventID = eventID
			s.Round = p.Round
			slots[i] = s
		}
		m.slots[eventID][p.Round] = slots

		for _, teamID := range p.Skip {
			k := runKey{eventID, p.Round, teamID}
			if r, ok := m.runs[k]; ok {
				r.Status = models.RunSkipped
				r.Position = 0
				r.UpdatedAt = m.now()
				m.runs[k] = r
			}
		}
		for _, teamID := range p.Drop {
			k := runKey{eventID, p.Round, teamID}
			if r, ok := m.runs[k]; ok && r.Status == models.RunPending {
				delete(m.runs, k)
			}
		}
		for _, planned := range p.Runs {
			k := runKey{eventID, p.Round, planned.TeamID}
			r, ok := m.runs[k]
			if !ok {
				r = models.Run{ID: m.id(), EventID: eventID, TeamID: planned.TeamID, Round: p.Round}
			}
			r.Position = planned.Position
			r.Status = models.RunPending
			r.TimeSec, r.TotalSec = nil, nil
			r.Penalty, r.NoTime, r.DQ = 0, false, false
			r.UpdatedAt = m.now()
			m.runs[k] = r
		}
		total += len(p.Slots)
	}
	return total, nil
}

func (m *MemoryStore) SaveRun(_ context.Context, run *models.Run) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := runKey{run.EventID, run.Round, run.TeamID}
	existing, ok := m.runs[k]
	if ok && existing.Status == models.RunSkipped {
		return 0, false, apperr.Precondition("team %d was skipped in round %d", run.TeamID, run.Round)
	}
	saved := *run
	if ok {
		saved.ID = existing.ID
	} else {
		saved.ID = m.id()
	}
	saved.Status = models.RunCompleted
	saved.UpdatedAt = m.now()
	m.runs[k] = saved

	locked := false
	if e, ok := m.events[run.EventID]; ok && lockable(e.Status) {
		e.Status = models.EventLocked
		e.UpdatedAt = m.now()
		m.events[run.EventID] = e
		locked = true
	}
	run.ID = saved.ID
	run.Status = saved.Status
	return saved.ID, locked, nil
}

func (m *MemoryStore) ListPayoffRules(_ context.Context, eventID int64) ([]models.PayoffRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.PayoffRule
	for _, r := range m.payoffs {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *MemoryStore) UpsertPayoffRule(_ context.Context, rule *models.PayoffRule) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.payoffs {
		if r.EventID == rule.EventID && r.Position == rule.Position {
			r.Percentage = rule.Percentage
			m.payoffs[id] = r
			rule.ID = id
			return id, nil
		}
	}
	rule.ID = m.id()
	m.payoffs[rule.ID] = *rule
	return rule.ID, nil
}

func (m *MemoryStore) DeletePayoffRule(_ context.Context, eventID, ruleID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.payoffs[ruleID]
	if !ok || r.EventID != eventID {
		return apperr.NotFound("payoff rule %d not found", ruleID)
	}
	delete(m.payoffs, ruleID)
	return nil
}

func (m *MemoryStore) ReplacePayoffRules(_ context.Context, eventID int64, rules []models.PayoffRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[int]bool, len(rules))
	for _, r := range rules {
		if seen[r.Position] {
			return apperr.Conflict("duplicate payoff place %d", r.Position)
		}
		seen[r.Position] = true
	}
	for id, r := range m.payoffs {
		if r.EventID == eventID {
			delete(m.payoffs, id)
		}
	}
	for _, r := range rules {
		r.ID = m.id()
		r.EventID = eventID
		m.payoffs[r.ID] = r
	}
	return nil
}
