package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"teamroping/internal/apperr"
	"teamroping/internal/draw"
	"teamroping/internal/models"
)

const mysqlDuplicateEntry = 1062

type MySQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ Store = (*MySQLStore)(nil)

func NewMySQLStore(db *sql.DB, logger *zap.Logger) *MySQLStore {
	return &MySQLStore{db: db, logger: logger}
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

func persistence(msg string, err error) error {
	return apperr.Persistence(msg, err)
}

type scanner interface {
	Scan(dest ...any) error
}

const roperColumns = `id, first_name, last_name, specialty, rating, level, phone, email, created_at, updated_at`

func scanRoper(row scanner) (models.Roper, error) {
	var r models.Roper
	var spec string
	err := row.Scan(&r.ID, &r.FirstName, &r.LastName, &spec, &r.Rating, &r.Level, &r.Phone, &r.Email, &r.CreatedAt, &r.UpdatedAt)
	r.Specialty = models.Specialty(spec)
	return r, err
}

func (s *MySQLStore) ListRopers(ctx context.Context) ([]models.Roper, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+roperColumns+` FROM ropers ORDER BY last_name, first_name, id`)
	if err != nil {
		return nil, persistence("failed to list ropers", err)
	}
	defer rows.Close()
	var out []models.Roper
	for rows.Next() {
		r, err := scanRoper(rows)
		if err != nil {
			return nil, persistence("failed to scan roper", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("failed to list ropers", err)
	}
	return out, nil
}

func (s *MySQLStore) GetRoper(ctx context.Context, id int64) (*models.Roper, error) {
	r, err := scanRoper(s.db.QueryRowContext(ctx, `SELECT `+roperColumns+` FROM ropers WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("roper %d not found", id)
	}
	if err != nil {
		return nil, persistence("failed to get roper", err)
	}
	return &r, nil
}

func (s *MySQLStore) CreateRoper(ctx context.Context, r *models.Roper) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO ropers (first_name, last_name, specialty, rating, level, phone, email) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.FirstName, r.LastName, string(r.Specialty), r.Rating, r.Level, r.Phone, r.Email)
	if err != nil {
		return 0, persistence("failed to create roper", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, persistence("failed to read roper id", err)
	}
	r.ID = id
	return id, nil
}

func (s *MySQLStore) UpdateRoper(ctx context.Context, r *models.Roper) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE ropers SET first_name=?, last_name=?, specialty=?, rating=?, level=?, phone=?, email=? WHERE id=?`,
		r.FirstName, r.LastName, string(r.Specialty), r.Rating, r.Level, r.Phone, r.Email, r.ID)
	if err != nil {
		return persistence("failed to update roper", err)
	}
	return s.expectRow(res, "roper", r.ID)
}

func (s *MySQLStore) DeleteRoper(ctx context.Context, id int64) error {
	var teams int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM teams WHERE header_id = ? OR heeler_id = ?`, id, id).Scan(&teams); err != nil {
		return persistence("failed to check roper teams", err)
	}
	if teams > 0 {
		return apperr.Conflict("roper %d is on %d team(s)", id, teams)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM ropers WHERE id = ?`, id)
	if err != nil {
		return persistence("failed to delete roper", err)
	}
	return s.expectRow(res, "roper", id)
}

func (s *MySQLStore) RoperEventIDs(ctx context.Context, roperID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT event_id FROM teams WHERE header_id = ? OR heeler_id = ? ORDER BY event_id`, roperID, roperID)
	if err != nil {
		return nil, persistence("failed to list roper events", err)
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, persistence("failed to scan roper event", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("failed to list roper events", err)
	}
	return out, nil
}

// expectRow maps zero affected rows to NotFound. MySQL reports zero for an
// UPDATE that changes nothing, so callers only use it where a row must change
// or be deleted.
func (s *MySQLStore) expectRow(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return persistence("failed to read affected rows", err)
	}
	if n == 0 {
		return apperr.NotFound("%s %d not found", what, id)
	}
	return nil
}

// requireRow is the existence check ahead of an UPDATE, whose affected-row
// count cannot tell a missing row from an unchanged one.
func (s *MySQLStore) requireRow(ctx context.Context, table, what string, id int64) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("%s %d not found", what, id)
	}
	if err != nil {
		return persistence("failed to get "+what, err)
	}
	return nil
}

func (s *MySQLStore) ListSeries(ctx context.Context) ([]models.Series, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, season, status, start_date, end_date, created_at FROM series ORDER BY id DESC`)
	if err != nil {
		return nil, persistence("failed to list series", err)
	}
	defer rows.Close()
	var out []models.Series
	for rows.Next() {
		var sr models.Series
		var status string
		var start, end sql.NullTime
		if err := rows.Scan(&sr.ID, &sr.Name, &sr.Season, &status, &start, &end, &sr.CreatedAt); err != nil {
			return nil, persistence("failed to scan series", err)
		}
		sr.Status = models.SeriesStatus(status)
		sr.StartDate = nullTime(start)
		sr.EndDate = nullTime(end)
		out = append(out, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("failed to list series", err)
	}
	return out, nil
}

func (s *MySQLStore) CreateSeries(ctx context.Context, sr *models.Series) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO series (name, season, status, start_date, end_date) VALUES (?, ?, ?, ?, ?)`,
		sr.Name, sr.Season, string(sr.Status), sr.StartDate, sr.EndDate)
	if err != nil {
		return 0, persistence("failed to create series", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, persistence("failed to read series id", err)
	}
	sr.ID = id
	return id, nil
}

func (s *MySQLStore) UpdateSeries(ctx context.Context, sr *models.Series) error {
	if err := s.requireRow(ctx, "series", "series", sr.ID); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE series SET name=?, season=?, status=?, start_date=?, end_date=? WHERE id=?`,
		sr.Name, sr.Season, string(sr.Status), sr.StartDate, sr.EndDate, sr.ID); err != nil {
		return persistence("failed to update series", err)
	}
	return nil
}

// eventChildTables hold rows keyed by event_id.
var eventChildTables = []string{"runs", "draw_slots", "teams", "payoff_rules"}

func (s *MySQLStore) DeleteSeries(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence("failed to begin transaction", err)
	}
	var locked int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE series_id = ? AND status = 'locked'`, id).Scan(&locked); err != nil {
		_ = tx.Rollback()
		return persistence("failed to check series events", err)
	}
	if locked > 0 {
		_ = tx.Rollback()
		return apperr.Precondition("series %d has %d locked event(s)", id, locked)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM series WHERE id = ?`, id)
	if err != nil {
		_ = tx.Rollback()
		return persistence("failed to delete series", err)
	}
	if err := s.expectRow(res, "series", id); err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, table := range eventChildTables {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE event_id IN (SELECT id FROM events WHERE series_id = ?)`, id); err != nil {
			_ = tx.Rollback()
			return persistence("failed to delete series "+table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE series_id = ?`, id); err != nil {
		_ = tx.Rollback()
		return persistence("failed to delete series events", err)
	}
	if err := tx.Commit(); err != nil {
		return persistence("failed to commit series delete", err)
	}
	return nil
}

const eventColumns = `id, series_id, name, event_date, location, rounds, status, entry_fee, prize_pool, deduction_pct, max_team_rating, admin_pin_hash, created_at, updated_at`

func scanEvent(row scanner) (models.Event, error) {
	var e models.Event
	var status string
	var date sql.NullTime
	err := row.Scan(&e.ID, &e.SeriesID, &e.Name, &date, &e.Location, &e.Rounds, &status,
		&e.EntryFee, &e.PrizePool, &e.DeductionPct, &e.MaxTeamRating, &e.AdminPinHash, &e.CreatedAt, &e.UpdatedAt)
	e.Status = models.EventStatus(status)
	e.Date = nullTime(date)
	return e, err
}

func (s *MySQLStore) ListEvents(ctx context.Context, seriesID int64) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events`
	var args []any
	if seriesID > 0 {
		query += ` WHERE series_id = ?`
		args = append(args, seriesID)
	}
	query += ` ORDER BY event_date DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistence("failed to list events", err)
	}
	defer rows.Close()
	var out []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, persistence("failed to scan event", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("failed to list events", err)
	}
	return out, nil
}

func (s *MySQLStore) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	e, err := scanEvent(s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("event %d not found", id)
	}
	if err != nil {
		return nil, persistence("failed to get event", err)
	}
	return &e, nil
}

func (s *MySQLStore) CreateEvent(ctx context.Context, e *models.Event) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO events (series_id, name, event_date, location, rounds, status, entry_fee, prize_pool, deduction_pct, max_team_rating, admin_pin_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.SeriesID, e.Name, e.Date, e.Location, e.Rounds, string(e.Status),
		e.EntryFee, e.PrizePool, e.DeductionPct, e.MaxTeamRating, e.AdminPinHash)
	if err != nil {
		return 0, persistence("failed to create event", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, persistence("failed to read event id", err)
	}
	e.ID = id
	return id, nil
}

func (s *MySQLStore) UpdateEvent(ctx context.Context, e *models.Event) error {
	if err := s.requireRow(ctx, "events", "event", e.ID); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE events SET name=?, event_date=?, location=?, rounds=?, entry_fee=?, prize_pool=?, deduction_pct=?, max_team_rating=? WHERE id=?`,
		e.Name, e.Date, e.Location, e.Rounds, e.EntryFee, e.PrizePool, e.DeductionPct, e.MaxTeamRating, e.ID); err != nil {
		return persistence("failed to update event", err)
	}
	return nil
}

func (s *MySQLStore) UpdateEventStatus(ctx context.Context, id int64, status models.EventStatus) error {
	if err := s.requireRow(ctx, "events", "event", id); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE events SET status = ? WHERE id = ?`, string(status), id); err != nil {
		return persistence("failed to update event status", err)
	}
	return nil
}

func (s *MySQLStore) DeleteEvent(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence("failed to begin transaction", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		_ = tx.Rollback()
		return persistence("failed to delete event", err)
	}
	if err := s.expectRow(res, "event", id); err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, table := range eventChildTables {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE event_id = ?`, id); err != nil {
			_ = tx.Rollback()
			return persistence("failed to delete event "+table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return persistence("failed to commit event delete", err)
	}
	return nil
}

func (s *MySQLStore) ListTeams(ctx context.Context, eventID int64, activeOnly bool) ([]models.Team, error) {
	query := `SELECT id, event_id, header_id, heeler_id, rating, status, created_at FROM teams WHERE event_id = ?`
	if activeOnly {
		query += ` AND status = 'active'`
	}
	query += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, persistence("failed to list teams", err)
	}
	defer rows.Close()
	var out []models.Team
	for rows.Next() {
		var t models.Team
		var status string
		if err := rows.Scan(&t.ID, &t.EventID, &t.HeaderID, &t.HeelerID, &t.Rating, &status, &t.CreatedAt); err != nil {
			return nil, persistence("failed to scan team", err)
		}
		t.Status = models.TeamStatus(status)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("failed to list teams", err)
	}
	return out, nil
}

func (s *MySQLStore) GetTeam(ctx context.Context, id int64) (*models.Team, error) {
	var t models.Team
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT id, event_id, header_id, heeler_id, rating, status, created_at FROM teams WHERE id = ?`, id).
		Scan(&t.ID, &t.EventID, &t.HeaderID, &t.HeelerID, &t.Rating, &status, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("team %d not found", id)
	}
	if err != nil {
		return nil, persistence("failed to get team", err)
	}
	t.Status = models.TeamStatus(status)
	return &t, nil
}

func (s *MySQLStore) CreateTeam(ctx context.Context, t *models.Team) (int64, error) {
	if t.Status == "" {
		t.Status = models.TeamActive
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO teams (event_id, header_id, heeler_id, rating, status) VALUES (?, ?, ?, ?, ?)`,
		t.EventID, t.HeaderID, t.HeelerID, t.Rating, string(t.Status))
	if isDuplicate(err) {
		return 0, apperr.Conflict("team %d/%d already exists in event %d", t.HeaderID, t.HeelerID, t.EventID)
	}
	if err != nil {
		return 0, persistence("failed to create team", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, persistence("failed to read team id", err)
	}
	t.ID = id
	return id, nil
}

func (s *MySQLStore) UpdateTeamStatus(ctx context.Context, eventID, teamID int64, status models.TeamStatus) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM teams WHERE id = ? AND event_id = ?`, teamID, eventID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("team %d not found", teamID)
	}
	if err != nil {
		return persistence("failed to get team", err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE teams SET status = ? WHERE id = ?`, string(status), teamID); err != nil {
		return persistence("failed to update team status", err)
	}
	return nil
}

func (s *MySQLStore) DeleteTeam(ctx context.Context, eventID, teamID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence("failed to begin transaction", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM teams WHERE id = ? AND event_id = ?`, teamID, eventID)
	if err != nil {
		_ = tx.Rollback()
		return persistence("failed to delete team", err)
	}
	if err := s.expectRow(res, "team", teamID); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE event_id = ? AND team_id = ?`, eventID, teamID); err != nil {
		_ = tx.Rollback()
		return persistence("failed to delete team runs", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM draw_slots WHERE event_id = ? AND team_id = ?`, eventID, teamID); err != nil {
		_ = tx.Rollback()
		return persistence("failed to delete team slots", err)
	}
	if err := tx.Commit(); err != nil {
		return persistence("failed to commit team delete", err)
	}
	return nil
}

func (s *MySQLStore) DeleteTeamsForEvent(ctx context.Context, eventID int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, persistence("failed to begin transaction", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE event_id = ?`, eventID); err != nil {
		_ = tx.Rollback()
		return 0, persistence("failed to delete event runs", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM draw_slots WHERE event_id = ?`, eventID); err != nil {
		_ = tx.Rollback()
		return 0, persistence("failed to delete event draw", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM teams WHERE event_id = ?`, eventID)
	if err != nil {
		_ = tx.Rollback()
		return 0, persistence("failed to delete event teams", err)
	}
	n, _ := res.RowsAffected()
	if err := tx.Commit(); err != nil {
		return 0, persistence("failed to commit team purge", err)
	}
	return n, nil
}

const runColumns = `r.id, r.event_id, r.team_id, r.round, r.position, r.time_sec, r.penalty, r.total_sec, r.no_time, r.dq, r.status, r.updated_at`

func scanRunInto(r *models.Run, extra ...any) []any {
	return append([]any{&r.ID, &r.EventID, &r.TeamID, &r.Round, &r.Position}, extra...)
}

type runNulls struct {
	timeSec  sql.NullFloat64
	totalSec sql.NullFloat64
	status   string
}

func (n runNulls) apply(r *models.Run) {
	r.TimeSec = nullFloat(n.timeSec)
	r.TotalSec = nullFloat(n.totalSec)
	r.Status = models.RunStatus(n.status)
}

func (s *MySQLStore) ListRuns(ctx context.Context, eventID int64) ([]models.Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs r WHERE r.event_id = ? ORDER BY r.round, r.position, r.team_id`, eventID)
	if err != nil {
		return nil, persistence("failed to list runs", err)
	}
	defer rows.Close()
	var out []models.Run
	for rows.Next() {
		var r models.Run
		var n runNulls
		dest := scanRunInto(&r, &n.timeSec, &r.Penalty, &n.totalSec, &r.NoTime, &r.DQ, &n.status, &r.UpdatedAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, persistence("failed to scan run", err)
		}
		n.apply(&r)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("failed to list runs", err)
	}
	return out, nil
}

func (s *MySQLStore) ListRunsExpanded(ctx context.Context, eventID int64, round int) ([]models.RunExpanded, error) {
	query := `SELECT ` + runColumns + `, t.header_id, t.heeler_id,
		CONCAT(h.first_name, ' ', h.last_name), CONCAT(l.first_name, ' ', l.last_name)
		FROM runs r
		JOIN teams t ON t.id = r.team_id
		JOIN ropers h ON h.id = t.header_id
		JOIN ropers l ON l.id = t.heeler_id
		WHERE r.event_id = ?`
	args := []any{eventID}
	if round > 0 {
		query += ` AND r.round = ?`
		args = append(args, round)
	}
	query += ` ORDER BY r.round, r.position, r.team_id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistence("failed to list runs", err)
	}
	defer rows.Close()
	var out []models.RunExpanded
	for rows.Next() {
		var r models.RunExpanded
		var n runNulls
		dest := scanRunInto(&r.Run, &n.timeSec, &r.Penalty, &n.totalSec, &r.NoTime, &r.DQ, &n.status, &r.UpdatedAt,
			&r.HeaderID, &r.HeelerID, &r.HeaderName, &r.HeelerName)
		if err := rows.Scan(dest...); err != nil {
			return nil, persistence("failed to scan run", err)
		}
		n.apply(&r.Run)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("failed to list runs", err)
	}
	return out, nil
}

func (s *MySQLStore) ListDraw(ctx context.Context, eventID int64, round int) ([]models.DrawSlot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, round, position, team_id FROM draw_slots WHERE event_id = ? AND round = ? ORDER BY position`, eventID, round)
	if err != nil {
		return nil, persistence("failed to list draw", err)
	}
	defer rows.Close()
	var out []models.DrawSlot
	for rows.Next() {
		var d models.DrawSlot
		if err := rows.Scan(&d.EventID, &d.Round, &d.Position, &d.TeamID); err != nil {
			return nil, persistence("failed to scan draw slot", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("failed to list draw", err)
	}
	return out, nil
}

func (s *MySQLStore) ApplyRoundPlans(ctx context.Context, eventID int64, plans []draw.RoundPlan) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, persistence("failed to begin transaction", err)
	}
	total := 0
	for _, p := range plans {
		var completed int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM runs WHERE event_id = ? AND round = ? AND status = 'completed' FOR UPDATE`,
			eventID, p.Round).Scan(&completed); err != nil {
			_ = tx.Rollback()
			return 0, persistence("failed to check round results", err)
		}
		if completed > 0 {
			_ = tx.Rollback()
			return 0, apperr.Precondition("round %d already has %d completed run(s)", p.Round, completed)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM draw_slots WHERE event_id = ? AND round = ?`, eventID, p.Round); err != nil {
			_ = tx.Rollback()
			return 0, persistence("failed to clear draw", err)
		}
		for _, slot := range p.Slots {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO draw_slots (event_id, round, position, team_id) VALUES (?, ?, ?, ?)`,
				eventID, p.Round, slot.Position, slot.TeamID); err != nil {
				_ = tx.Rollback()
				return 0, persistence("failed to insert draw slot", err)
			}
		}
		for _, teamID := range p.Skip {
			if _, err := tx.ExecContext(ctx,
				`UPDATE runs SET status = 'skipped', position = 0 WHERE event_id = ? AND round = ? AND team_id = ?`,
				eventID, p.Round, teamID); err != nil {
				_ = tx.Rollback()
				return 0, persistence("failed to skip run", err)
			}
		}
		for _, teamID := range p.Drop {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM runs WHERE event_id = ? AND round = ? AND team_id = ? AND status = 'pending'`,
				eventID, p.Round, teamID); err != nil {
				_ = tx.Rollback()
				return 0, persistence("failed to drop run", err)
			}
		}
		for _, r := range p.Runs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO runs (event_id, team_id, round, position, penalty, no_time, dq, status)
				 VALUES (?, ?, ?, ?, 0, 0, 0, 'pending')
				 ON DUPLICATE KEY UPDATE position = VALUES(position), status = 'pending', time_sec = NULL, total_sec = NULL, penalty = 0, no_time = 0, dq = 0`,
				eventID, r.TeamID, p.Round, r.Position); err != nil {
				_ = tx.Rollback()
				return 0, persistence("failed to seed run", err)
			}
		}
		total += len(p.Slots)
	}
	if err := tx.Commit(); err != nil {
		return 0, persistence("failed to commit draw", err)
	}
	return total, nil
}

func (s *MySQLStore) SaveRun(ctx context.Context, run *models.Run) (int64, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, persistence("failed to begin transaction", err)
	}

	var existingID int64
	var existingStatus string
	err = tx.QueryRowContext(ctx,
		`SELECT id, status FROM runs WHERE event_id = ? AND round = ? AND team_id = ? FOR UPDATE`,
		run.EventID, run.Round, run.TeamID).Scan(&existingID, &existingStatus)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		_ = tx.Rollback()
		return 0, false, persistence("failed to read run", err)
	}
	if models.RunStatus(existingStatus) == models.RunSkipped {
		_ = tx.Rollback()
		return 0, false, apperr.Precondition("team %d was skipped in round %d", run.TeamID, run.Round)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (event_id, team_id, round, position, time_sec, penalty, total_sec, no_time, dq, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'completed')
		 ON DUPLICATE KEY UPDATE position = VALUES(position), time_sec = VALUES(time_sec), penalty = VALUES(penalty),
		   total_sec = VALUES(total_sec), no_time = VALUES(no_time), dq = VALUES(dq), status = 'completed'`,
		run.EventID, run.TeamID, run.Round, run.Position, run.TimeSec, run.Penalty, run.TotalSec, run.NoTime, run.DQ)
	if err != nil {
		_ = tx.Rollback()
		return 0, false, persistence("failed to save run", err)
	}
	id := existingID
	if id == 0 {
		if id, err = res.LastInsertId(); err != nil {
			_ = tx.Rollback()
			return 0, false, persistence("failed to read run id", err)
		}
	}

	lockRes, err := tx.ExecContext(ctx,
		`UPDATE events SET status = 'locked' WHERE id = ? AND status IN (?, ?)`,
		run.EventID, string(lockableStatuses[0]), string(lockableStatuses[1]))
	if err != nil {
		_ = tx.Rollback()
		return 0, false, persistence("failed to lock event", err)
	}
	n, _ := lockRes.RowsAffected()
	if err := tx.Commit(); err != nil {
		return 0, false, persistence("failed to commit run", err)
	}
	run.ID = id
	run.Status = models.RunCompleted
	return id, n == 1, nil
}

func (s *MySQLStore) ListPayoffRules(ctx context.Context, eventID int64) ([]models.PayoffRule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event_id, position, percentage FROM payoff_rules WHERE event_id = ? ORDER BY position`, eventID)
	if err != nil {
		return nil, persistence("failed to list payoff rules", err)
	}
	defer rows.Close()
	var out []models.PayoffRule
	for rows.Next() {
		var r models.PayoffRule
		if err := rows.Scan(&r.ID, &r.EventID, &r.Position, &r.Percentage); err != nil {
			return nil, persistence("failed to scan payoff rule", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("failed to list payoff rules", err)
	}
	return out, nil
}

func (s *MySQLStore) UpsertPayoffRule(ctx context.Context, rule *models.PayoffRule) (int64, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO payoff_rules (event_id, position, percentage) VALUES (?, ?, ?)
		 ON DUPLICATE KEY UPDATE percentage = VALUES(percentage)`,
		rule.EventID, rule.Position, rule.Percentage); err != nil {
		return 0, persistence("failed to save payoff rule", err)
	}
	var id int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT id FROM payoff_rules WHERE event_id = ? AND position = ?`, rule.EventID, rule.Position).Scan(&id); err != nil {
		return 0, persistence("failed to read payoff rule id", err)
	}
	rule.ID = id
	return id, nil
}

func (s *MySQLStore) DeletePayoffRule(ctx context.Context, eventID, ruleID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM payoff_rules WHERE id = ? AND event_id = ?`, ruleID, eventID)
	if err != nil {
		return persistence("failed to delete payoff rule", err)
	}
	return s.expectRow(res, "payoff rule", ruleID)
}

func (s *MySQLStore) ReplacePayoffRules(ctx context.Context, eventID int64, rules []models.PayoffRule) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence("failed to begin transaction", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM payoff_rules WHERE event_id = ?`, eventID); err != nil {
		_ = tx.Rollback()
		return persistence("failed to clear payoff rules", err)
	}
	for _, r := range rules {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO payoff_rules (event_id, position, percentage) VALUES (?, ?, ?)`,
			eventID, r.Position, r.Percentage); err != nil {
			_ = tx.Rollback()
			s.logger.Warn("payoff preset rolled back", zap.Int64("event_id", eventID), zap.Int("position", r.Position), zap.Error(err))
			return persistence(fmt.Sprintf("failed to insert payoff rule for place %d", r.Position), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return persistence("failed to commit payoff rules", err)
	}
	return nil
}
