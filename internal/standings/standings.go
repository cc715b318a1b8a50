package standings

import (
	"sort"

	"github.com/shopspring/decimal"

	"teamroping/internal/models"
)

// Ranking tiers, best first. No-time teams sort ahead of DQ teams, and a team
// carrying both counts as DQ.
const (
	tierQualified = iota
	tierNoResult
	tierNoTime
	tierDQ
)

type tally struct {
	standing models.Standing
	total    decimal.Decimal
	best     *decimal.Decimal
	tier     int
}

// Compute ranks every team that has at least one run row.
func Compute(runs []models.RunExpanded) []models.Standing {
	byTeam := make(map[int64]*tally)
	var order []int64
	for _, r := range runs {
		t, ok := byTeam[r.TeamID]
		if !ok {
			t = &tally{standing: models.Standing{
				TeamID:     r.TeamID,
				HeaderName: r.HeaderName,
				HeelerName: r.HeelerName,
			}}
			byTeam[r.TeamID] = t
			order = append(order, r.TeamID)
		}
		if r.Status != models.RunCompleted {
			continue
		}
		switch {
		case r.DQ:
			t.standing.DqCnt++
		case r.NoTime:
			t.standing.NtCnt++
		case r.Qualifying():
			run := decimal.NewFromFloat(*r.TimeSec).Add(decimal.NewFromFloat(r.Penalty))
			t.total = t.total.Add(run)
			if t.best == nil || run.LessThan(*t.best) {
				t.best = &run
			}
			t.standing.CompletedRuns++
		}
	}

	out := make([]*tally, 0, len(order))
	for _, id := range order {
		t := byTeam[id]
		s := &t.standing
		switch {
		case s.DqCnt > 0:
			t.tier = tierDQ
		case s.NtCnt > 0:
			t.tier = tierNoTime
		case s.CompletedRuns == 0:
			t.tier = tierNoResult
		default:
			t.tier = tierQualified
		}
		s.Qualified = t.tier == tierQualified
		if t.best != nil {
			s.BestTime = seconds(*t.best)
		}
		if s.Qualified {
			s.TotalTime = seconds(t.total)
			s.AvgTime = seconds(t.total.Div(decimal.NewFromInt(int64(s.CompletedRuns))))
		}
		out = append(out, t)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.tier != b.tier {
			return a.tier < b.tier
		}
		if a.standing.CompletedRuns != b.standing.CompletedRuns {
			return a.standing.CompletedRuns > b.standing.CompletedRuns
		}
		if a.tier == tierQualified {
			if !a.total.Equal(b.total) {
				return a.total.LessThan(b.total)
			}
			if !a.best.Equal(*b.best) {
				return a.best.LessThan(*b.best)
			}
		}
		return a.standing.TeamID < b.standing.TeamID
	})

	result := make([]models.Standing, len(out))
	for i, t := range out {
		t.standing.Rank = i + 1
		result[i] = t.standing
	}
	return result
}

func seconds(d decimal.Decimal) *float64 {
	v := d.Round(3).InexactFloat64()
	return &v
}

// Qualified filters standings down to ranked, payable teams.
func Qualified(rows []models.Standing) []models.Standing {
	var out []models.Standing
	for _, s := range rows {
		if s.Qualified {
			out = append(out, s)
		}
	}
	return out
}
