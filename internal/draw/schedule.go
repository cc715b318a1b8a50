package draw

import (
	"sort"

	"teamroping/internal/models"
)

// SpacingWindow is how many preceding slots are checked for a shared roper.
const SpacingWindow = 10

type Entry struct {
	TeamID   int64
	HeaderID int64
	HeelerID int64
}

func EntryFromTeam(t models.Team) Entry {
	return Entry{TeamID: t.ID, HeaderID: t.HeaderID, HeelerID: t.HeelerID}
}

func (e Entry) sharesRoper(o Entry) bool {
	return e.HeaderID == o.HeaderID || e.HeaderID == o.HeelerID ||
		e.HeelerID == o.HeaderID || e.HeelerID == o.HeelerID
}

// SpaceOut reorders entries so a roper's repeat appearances sit as far apart
// as the pool allows. Candidates are scanned in input order; the first one
// with no shared roper inside the window wins, otherwise the one whose
// nearest conflict is furthest back.
func SpaceOut(entries []Entry) []Entry {
	pool := append([]Entry(nil), entries...)
	ordered := make([]Entry, 0, len(entries))
	for len(pool) > 0 {
		bestIdx, bestScore := 0, -1
		for i, cand := range pool {
			score := SpacingWindow + 1
			for back := 1; back <= SpacingWindow && back <= len(ordered); back++ {
				if cand.sharesRoper(ordered[len(ordered)-back]) {
					score = back
					break
				}
			}
			if score > bestScore {
				bestIdx, bestScore = i, score
				if score > SpacingWindow {
					break
				}
			}
		}
		ordered = append(ordered, pool[bestIdx])
		pool = append(pool[:bestIdx], pool[bestIdx+1:]...)
	}
	return ordered
}

func ShuffleAndSpace(entries []Entry, rng *XorShift32) []Entry {
	shuffled := append([]Entry(nil), entries...)
	Shuffle(shuffled, rng)
	return SpaceOut(shuffled)
}

// EliminatedTeams returns teams whose most recent completed run before round
// is a no-time or a DQ.
func EliminatedTeams(runs []models.Run, round int) map[int64]bool {
	latest := make(map[int64]models.Run)
	for _, r := range runs {
		if r.Round >= round || r.Status != models.RunCompleted {
			continue
		}
		if prev, ok := latest[r.TeamID]; !ok || r.Round > prev.Round {
			latest[r.TeamID] = r
		}
	}
	out := make(map[int64]bool)
	for teamID, r := range latest {
		if r.NoTime || r.DQ {
			out[teamID] = true
		}
	}
	return out
}

// OrderSlots keeps entries that appear in previous in that order and appends
// the rest by team id.
func OrderSlots(eligible []Entry, previous []int64) []Entry {
	byTeam := make(map[int64]Entry, len(eligible))
	for _, e := range eligible {
		byTeam[e.TeamID] = e
	}
	out := make([]Entry, 0, len(eligible))
	seen := make(map[int64]bool, len(eligible))
	for _, id := range previous {
		if e, ok := byTeam[id]; ok && !seen[id] {
			out = append(out, e)
			seen[id] = true
		}
	}
	var rest []Entry
	for _, e := range eligible {
		if !seen[e.TeamID] {
			rest = append(rest, e)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].TeamID < rest[j].TeamID })
	return append(out, rest...)
}

// RoundPlan is everything a store needs to rewrite one round's draw.
type RoundPlan struct {
	Round int
	Slots []models.DrawSlot
	// Runs are upserted as pending at their slot position.
	Runs []models.Run
	// Skip lists teams whose run row in this round becomes skipped.
	Skip []int64
	// Drop lists teams whose pending run row in this round is removed.
	Drop []int64
}

func (p RoundPlan) SlotCount() int { return len(p.Slots) }

// PlanRound lays ordered entries into positions 1..n. existing holds the run
// rows already stored for this round. With seedRuns every slot gets a pending
// run; without it only teams that already have a row get their position
// refreshed.
func PlanRound(eventID int64, round int, ordered []Entry, existing []models.Run, eliminated map[int64]bool, seedRuns bool) RoundPlan {
	plan := RoundPlan{Round: round}
	slotted := make(map[int64]bool, len(ordered))
	hasRow := make(map[int64]bool, len(existing))
	for _, r := range existing {
		hasRow[r.TeamID] = true
	}

	for i, e := range ordered {
		pos := i + 1
		slotted[e.TeamID] = true
		plan.Slots = append(plan.Slots, models.DrawSlot{EventID: eventID, Round: round, Position: pos, TeamID: e.TeamID})
		if seedRuns || hasRow[e.TeamID] {
			plan.Runs = append(plan.Runs, models.Run{
				EventID:  eventID,
				TeamID:   e.TeamID,
				Round:    round,
				Position: pos,
				Status:   models.RunPending,
			})
		}
	}

	for _, r := range existing {
		if slotted[r.TeamID] {
			continue
		}
		switch {
		case eliminated[r.TeamID]:
			if r.Status != models.RunSkipped {
				plan.Skip = append(plan.Skip, r.TeamID)
			}
		case r.Status == models.RunPending:
			plan.Drop = append(plan.Drop, r.TeamID)
		}
	}
	return plan
}
