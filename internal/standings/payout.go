package standings

import (
	"sort"

	"github.com/shopspring/decimal"

	"teamroping/internal/models"
)

// EventPot returns the gross pot and the withheld deductions for an event.
func EventPot(ev models.Event, activeTeams int) (total, deductions decimal.Decimal) {
	total = ev.EntryFee.Mul(decimal.NewFromInt(int64(activeTeams))).Add(ev.PrizePool)
	deductions = total.Mul(ev.DeductionPct).Round(2)
	return total, deductions
}

func Breakdown(total, deductions decimal.Decimal, rules []models.PayoffRule) models.PayoutBreakdown {
	net := total.Sub(deductions)
	sorted := append([]models.PayoffRule(nil), rules...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	out := models.PayoutBreakdown{
		TotalPot:   total,
		Deductions: deductions,
		NetPot:     net,
		Payouts:    make([]models.PayoutAllocation, 0, len(sorted)),
	}
	for _, r := range sorted {
		out.Payouts = append(out.Payouts, models.PayoutAllocation{
			Place:      r.Position,
			Percentage: r.Percentage,
			Amount:     net.Mul(r.Percentage).Round(2),
		})
	}
	return out
}

// Join pairs each payout place with the qualified standing of the same rank.
// Places without a qualified team are marked vacant.
func Join(b models.PayoutBreakdown, rows []models.Standing) []models.PayoffPlace {
	byRank := make(map[int]models.Standing)
	for _, s := range rows {
		if s.Qualified {
			byRank[s.Rank] = s
		}
	}
	out := make([]models.PayoffPlace, 0, len(b.Payouts))
	for _, p := range b.Payouts {
		place := models.PayoffPlace{PayoutAllocation: p}
		if s, ok := byRank[p.Place]; ok {
			place.Standing = &s
		} else {
			place.Vacant = true
		}
		out = append(out, place)
	}
	return out
}

type Preset struct {
	Name   string            `json:"name"`
	Places []decimal.Decimal `json:"places"`
}

var presets = map[string]Preset{
	"1": {Name: "1", Places: pcts("1")},
	"2": {Name: "2", Places: pcts("0.6", "0.4")},
	"3": {Name: "3", Places: pcts("0.5", "0.3", "0.2")},
	"4": {Name: "4", Places: pcts("0.4", "0.3", "0.2", "0.1")},
}

func pcts(vals ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vals))
	for i, v := range vals {
		out[i] = decimal.RequireFromString(v)
	}
	return out
}

func PresetByName(name string) (Preset, bool) {
	p, ok := presets[name]
	return p, ok
}

func Presets() []Preset {
	out := make([]Preset, 0, len(presets))
	for _, p := range presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Rules expands a preset into payoff rules for eventID.
func (p Preset) Rules(eventID int64) []models.PayoffRule {
	out := make([]models.PayoffRule, len(p.Places))
	for i, pct := range p.Places {
		out[i] = models.PayoffRule{EventID: eventID, Position: i + 1, Percentage: pct}
	}
	return out
}
