package export

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"teamroping/internal/models"
)

const (
	SheetOverview  = "Overview"
	SheetTeams     = "Teams"
	SheetRuns      = "Runs"
	SheetStandings = "Standings"
	SheetPayoffs   = "Payoffs"
)

var hundred = decimal.NewFromInt(100)

// Money cells are written as fixed-point text so amounts stay exact.
type sheet struct {
	name    string
	headers []string
	widths  []float64
	rows    [][]any
}

// Workbook renders an event report as an xlsx file.
func Workbook(rep *models.EventReport) ([]byte, error) {
	if rep == nil {
		return nil, fmt.Errorf("nil event report")
	}
	sheets := []sheet{
		overviewSheet(rep),
		teamsSheet(rep),
		runsSheet(rep),
		standingsSheet(rep),
		payoffsSheet(rep),
	}

	f := excelize.NewFile()
	// WriteTo needs the file open, so Close is called explicitly on every path.

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, sh := range sheets {
		index, err := f.NewSheet(sh.name)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %s: %w", sh.name, err)
		}
		if i == 0 {
			f.SetActiveSheet(index)
		}
		if err := writeSheet(f, sh, headerStyle); err != nil {
			f.Close()
			return nil, err
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sh sheet, headerStyle int) error {
	for col, header := range sh.headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sh.name, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s!%s: %w", sh.name, cell, err)
		}
		if err := f.SetCellStyle(sh.name, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}
	for i, w := range sh.widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sh.name, col, col, w); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}
	for r, row := range sh.rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		values := row
		if err := f.SetSheetRow(sh.name, cell, &values); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sh.name, r+2, err)
		}
	}
	if len(sh.headers) > 0 {
		if err := f.SetPanes(sh.name, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return fmt.Errorf("failed to freeze panes: %w", err)
		}
	}
	return nil
}

func overviewSheet(rep *models.EventReport) sheet {
	ev := rep.Event
	date := ""
	if ev.Date != nil {
		date = ev.Date.Format("2006-01-02")
	}
	capText := "unlimited"
	if ev.MaxTeamRating > 0 {
		capText = strconv.Itoa(ev.MaxTeamRating)
	}
	return sheet{
		name:    SheetOverview,
		headers: []string{"Field", "Value"},
		widths:  []float64{22, 36},
		rows: [][]any{
			{"Event", ev.Name},
			{"Date", date},
			{"Location", ev.Location},
			{"Status", string(ev.Status)},
			{"Rounds", ev.Rounds},
			{"Max Team Rating", capText},
			{"Entry Fee", ev.EntryFee.StringFixed(2)},
			{"Prize Pool", ev.PrizePool.StringFixed(2)},
			{"Teams", len(rep.Teams)},
			{"Total Pot", rep.Payouts.TotalPot.StringFixed(2)},
			{"Deductions", rep.Payouts.Deductions.StringFixed(2)},
			{"Net Pot", rep.Payouts.NetPot.StringFixed(2)},
		},
	}
}

func teamsSheet(rep *models.EventReport) sheet {
	sh := sheet{
		name:    SheetTeams,
		headers: []string{"Team ID", "Header", "Heeler", "Rating", "Status"},
		widths:  []float64{10, 26, 26, 10, 12},
	}
	for _, t := range rep.Teams {
		sh.rows = append(sh.rows, []any{t.ID, t.HeaderName, t.HeelerName, t.Rating, string(t.Status)})
	}
	return sh
}

func runsSheet(rep *models.EventReport) sheet {
	sh := sheet{
		name:    SheetRuns,
		headers: []string{"Round", "Position", "Team ID", "Header", "Heeler", "Time", "Penalty", "Total", "Result"},
		widths:  []float64{8, 10, 10, 26, 26, 10, 10, 10, 12},
	}
	for _, r := range rep.Runs {
		sh.rows = append(sh.rows, []any{
			r.Round, r.Position, r.TeamID, r.HeaderName, r.HeelerName,
			seconds(r.TimeSec), r.Penalty, seconds(r.TotalSec), result(r.Run),
		})
	}
	return sh
}

func standingsSheet(rep *models.EventReport) sheet {
	sh := sheet{
		name:    SheetStandings,
		headers: []string{"Rank", "Team ID", "Header", "Heeler", "Runs", "Total", "Average", "Best", "NT", "DQ"},
		widths:  []float64{8, 10, 26, 26, 8, 10, 10, 10, 6, 6},
	}
	for _, s := range rep.Standings {
		sh.rows = append(sh.rows, []any{
			s.Rank, s.TeamID, s.HeaderName, s.HeelerName, s.CompletedRuns,
			seconds(s.TotalTime), seconds(s.AvgTime), seconds(s.BestTime), s.NtCnt, s.DqCnt,
		})
	}
	return sh
}

func payoffsSheet(rep *models.EventReport) sheet {
	sh := sheet{
		name:    SheetPayoffs,
		headers: []string{"Place", "Percentage", "Amount", "Team ID", "Header", "Heeler"},
		widths:  []float64{8, 12, 12, 10, 26, 26},
	}
	for _, p := range rep.Board {
		row := []any{p.Place, p.Percentage.Mul(hundred).StringFixed(1) + "%", p.Amount.StringFixed(2)}
		if p.Vacant || p.Standing == nil {
			row = append(row, "", "vacant", "")
		} else {
			row = append(row, p.Standing.TeamID, p.Standing.HeaderName, p.Standing.HeelerName)
		}
		sh.rows = append(sh.rows, row)
	}
	return sh
}

func result(r models.Run) string {
	switch {
	case r.Status == models.RunSkipped:
		return "skipped"
	case r.DQ:
		return "DQ"
	case r.NoTime:
		return "NT"
	case r.Status == models.RunCompleted:
		return "time"
	}
	return "pending"
}

func seconds(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
