package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Specialty string

const (
	SpecialtyHeader Specialty = "header"
	SpecialtyHeeler Specialty = "heeler"
	SpecialtyBoth   Specialty = "both"
)

func (s Specialty) Valid() bool {
	switch s {
	case SpecialtyHeader, SpecialtyHeeler, SpecialtyBoth:
		return true
	}
	return false
}

func (s Specialty) CanHead() bool { return s == SpecialtyHeader || s == SpecialtyBoth }
func (s Specialty) CanHeel() bool { return s == SpecialtyHeeler || s == SpecialtyBoth }

type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventActive    EventStatus = "active"
	EventLocked    EventStatus = "locked"
	EventCompleted EventStatus = "completed"
	EventArchived  EventStatus = "archived"
)

// eventStatusAliases maps legacy vocabulary onto the closed set.
var eventStatusAliases = map[string]EventStatus{
	"draft":     EventDraft,
	"upcoming":  EventDraft,
	"active":    EventActive,
	"locked":    EventLocked,
	"completed": EventCompleted,
	"finalized": EventCompleted,
	"archived":  EventArchived,
	"inactive":  EventArchived,
}

func ParseEventStatus(raw string) (EventStatus, bool) {
	st, ok := eventStatusAliases[strings.ToLower(strings.TrimSpace(raw))]
	return st, ok
}

// Closed reports whether the event accepts no more results.
func (s EventStatus) Closed() bool {
	return s == EventCompleted || s == EventArchived
}

type SeriesStatus string

const (
	SeriesActive   SeriesStatus = "active"
	SeriesUpcoming SeriesStatus = "upcoming"
	SeriesArchived SeriesStatus = "archived"
)

func ParseSeriesStatus(raw string) (SeriesStatus, bool) {
	switch SeriesStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case SeriesActive:
		return SeriesActive, true
	case SeriesUpcoming, "draft":
		return SeriesUpcoming, true
	case SeriesArchived, "inactive", "completed":
		return SeriesArchived, true
	}
	return "", false
}

type TeamStatus string

const (
	TeamActive   TeamStatus = "active"
	TeamInactive TeamStatus = "inactive"
)

func (s TeamStatus) Valid() bool { return s == TeamActive || s == TeamInactive }

type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunCompleted RunStatus = "completed"
	RunSkipped   RunStatus = "skipped"
)

type Roper struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Specialty Specialty `json:"specialty"`
	Rating    int       `json:"rating"`
	Level     string    `json:"level"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r Roper) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

type Series struct {
	ID        int64        `json:"id"`
	Name      string       `json:"name"`
	Season    string       `json:"season"`
	Status    SeriesStatus `json:"status"`
	StartDate *time.Time   `json:"start_date,omitempty"`
	EndDate   *time.Time   `json:"end_date,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

type Event struct {
	ID            int64           `json:"id"`
	SeriesID      int64           `json:"series_id"`
	Name          string          `json:"name"`
	Date          *time.Time      `json:"date,omitempty"`
	Location      string          `json:"location"`
	Rounds        int             `json:"rounds"`
	Status        EventStatus     `json:"status"`
	EntryFee      decimal.Decimal `json:"entry_fee"`
	PrizePool     decimal.Decimal `json:"prize_pool"`
	DeductionPct  decimal.Decimal `json:"deduction_pct"`
	MaxTeamRating int             `json:"max_team_rating"`
	AdminPinHash  string          `json:"-"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (e Event) HasPin() bool { return e.AdminPinHash != "" }

type Team struct {
	ID        int64      `json:"id"`
	EventID   int64      `json:"event_id"`
	HeaderID  int64      `json:"header_id"`
	HeelerID  int64      `json:"heeler_id"`
	Rating    int        `json:"rating"`
	Status    TeamStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

type DrawSlot struct {
	EventID  int64 `json:"event_id"`
	Round    int   `json:"round"`
	Position int   `json:"position"`
	TeamID   int64 `json:"team_id"`
}

type Run struct {
	ID        int64     `json:"id"`
	EventID   int64     `json:"event_id"`
	TeamID    int64     `json:"team_id"`
	Round     int       `json:"round"`
	Position  int       `json:"position"`
	TimeSec   *float64  `json:"time_sec"`
	Penalty   float64   `json:"penalty"`
	TotalSec  *float64  `json:"total_sec"`
	NoTime    bool      `json:"no_time"`
	DQ        bool      `json:"dq"`
	Status    RunStatus `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Qualifying is a completed run that carries a time.
func (r Run) Qualifying() bool {
	return r.Status == RunCompleted && !r.NoTime && !r.DQ && r.TimeSec != nil
}

type RunExpanded struct {
	Run
	HeaderID   int64  `json:"header_id"`
	HeelerID   int64  `json:"heeler_id"`
	HeaderName string `json:"header_name"`
	HeelerName string `json:"heeler_name"`
}

type PayoffRule struct {
	ID         int64           `json:"id"`
	EventID    int64           `json:"event_id"`
	Position   int             `json:"position"`
	Percentage decimal.Decimal `json:"percentage"`
}

type Standing struct {
	Rank          int      `json:"rank"`
	TeamID        int64    `json:"team_id"`
	HeaderName    string   `json:"header_name"`
	HeelerName    string   `json:"heeler_name"`
	TotalTime     *float64 `json:"total_time"`
	CompletedRuns int      `json:"completed_runs"`
	NtCnt         int      `json:"nt_cnt"`
	DqCnt         int      `json:"dq_cnt"`
	AvgTime       *float64 `json:"avg_time"`
	BestTime      *float64 `json:"best_time"`
	Qualified     bool     `json:"qualified"`
}

type PayoutAllocation struct {
	Place      int             `json:"place"`
	Percentage decimal.Decimal `json:"percentage"`
	Amount     decimal.Decimal `json:"amount"`
}

type PayoutBreakdown struct {
	TotalPot   decimal.Decimal    `json:"total_pot"`
	Deductions decimal.Decimal    `json:"deductions"`
	NetPot     decimal.Decimal    `json:"net_pot"`
	Payouts    []PayoutAllocation `json:"payouts"`
}

type PayoffPlace struct {
	PayoutAllocation
	Vacant   bool      `json:"vacant"`
	Standing *Standing `json:"standing,omitempty"`
}

type TeamDetail struct {
	Team
	HeaderName string `json:"header_name"`
	HeelerName string `json:"heeler_name"`
}

// EventReport bundles everything an export needs for one event.
type EventReport struct {
	Event     Event           `json:"event"`
	Teams     []TeamDetail    `json:"teams"`
	Runs      []RunExpanded   `json:"runs"`
	Standings []Standing      `json:"standings"`
	Payouts   PayoutBreakdown `json:"payouts"`
	Board     []PayoffPlace   `json:"board"`
}
