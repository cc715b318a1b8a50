package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"teamroping/internal/models"
)

func f64(v float64) *float64 { return &v }

func sampleReport() *models.EventReport {
	date := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	winner := models.Standing{Rank: 1, TeamID: 7, HeaderName: "Cody Ames", HeelerName: "Lane Ford", TotalTime: f64(19.468), CompletedRuns: 2, AvgTime: f64(9.734), BestTime: f64(8.456), Qualified: true}
	return &models.EventReport{
		Event: models.Event{
			ID: 3, Name: "Spring Jackpot", Date: &date, Location: "Fort Worth", Rounds: 2,
			Status: models.EventLocked, EntryFee: decimal.NewFromInt(100), PrizePool: decimal.NewFromInt(800),
			DeductionPct: decimal.RequireFromString("0.1"),
		},
		Teams: []models.TeamDetail{
			{Team: models.Team{ID: 7, Rating: 6, Status: models.TeamActive}, HeaderName: "Cody Ames", HeelerName: "Lane Ford"},
			{Team: models.Team{ID: 8, Rating: 5, Status: models.TeamActive}, HeaderName: "Ty Bell", HeelerName: "Jo Cruz"},
		},
		Runs: []models.RunExpanded{
			{Run: models.Run{TeamID: 7, Round: 1, Position: 1, TimeSec: f64(8.456), TotalSec: f64(8.456), Status: models.RunCompleted}, HeaderName: "Cody Ames", HeelerName: "Lane Ford"},
			{Run: models.Run{TeamID: 8, Round: 1, Position: 2, NoTime: true, Status: models.RunCompleted}, HeaderName: "Ty Bell", HeelerName: "Jo Cruz"},
		},
		Standings: []models.Standing{winner, {Rank: 2, TeamID: 8, HeaderName: "Ty Bell", HeelerName: "Jo Cruz", NtCnt: 1}},
		Payouts: models.PayoutBreakdown{
			TotalPot: decimal.NewFromInt(1000), Deductions: decimal.NewFromInt(100), NetPot: decimal.NewFromInt(900),
		},
		Board: []models.PayoffPlace{
			{PayoutAllocation: models.PayoutAllocation{Place: 1, Percentage: decimal.RequireFromString("0.6"), Amount: decimal.NewFromInt(540)}, Standing: &winner},
			{PayoutAllocation: models.PayoutAllocation{Place: 2, Percentage: decimal.RequireFromString("0.4"), Amount: decimal.NewFromInt(360)}, Vacant: true},
		},
	}
}

func open(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func cell(t *testing.T, f *excelize.File, sheet, axis string) string {
	t.Helper()
	v, err := f.GetCellValue(sheet, axis)
	require.NoError(t, err)
	return v
}

func TestWorkbook_Sheets(t *testing.T) {
	data, err := Workbook(sampleReport())
	require.NoError(t, err)
	f := open(t, data)

	assert.Equal(t, []string{SheetOverview, SheetTeams, SheetRuns, SheetStandings, SheetPayoffs}, f.GetSheetList())
	assert.Equal(t, "Spring Jackpot", cell(t, f, SheetOverview, "B2"))
	assert.Equal(t, "2026-05-02", cell(t, f, SheetOverview, "B3"))
	assert.Equal(t, "unlimited", cell(t, f, SheetOverview, "B7"))
	assert.Equal(t, "900.00", cell(t, f, SheetOverview, "B13"))
}

func TestWorkbook_Rows(t *testing.T) {
	data, err := Workbook(sampleReport())
	require.NoError(t, err)
	f := open(t, data)

	assert.Equal(t, "Header", cell(t, f, SheetTeams, "B1"))
	assert.Equal(t, "Ty Bell", cell(t, f, SheetTeams, "B3"))

	assert.Equal(t, "time", cell(t, f, SheetRuns, "I2"))
	assert.Equal(t, "NT", cell(t, f, SheetRuns, "I3"))
	assert.Equal(t, "", cell(t, f, SheetRuns, "F3"))

	assert.Equal(t, "19.468", cell(t, f, SheetStandings, "F2"))
	assert.Equal(t, "", cell(t, f, SheetStandings, "F3"))

	assert.Equal(t, "60.0%", cell(t, f, SheetPayoffs, "B2"))
	assert.Equal(t, "540.00", cell(t, f, SheetPayoffs, "C2"))
	assert.Equal(t, "Cody Ames", cell(t, f, SheetPayoffs, "E2"))
	assert.Equal(t, "vacant", cell(t, f, SheetPayoffs, "E3"))
}

func TestWorkbook_EmptyReport(t *testing.T) {
	data, err := Workbook(&models.EventReport{Event: models.Event{Name: "Empty", Rounds: 1}})
	require.NoError(t, err)
	f := open(t, data)
	rows, err := f.GetRows(SheetRuns)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = Workbook(nil)
	assert.Error(t, err)
}
