package draw

import (
	"sort"
	"strings"

	"teamroping/internal/models"
)

type Strategy string

const (
	StrategyExhaustive Strategy = "exhaustive"
	StrategyBalanced   Strategy = "balanced"
	StrategyRandom     Strategy = "random"
)

func ParseStrategy(raw string) (Strategy, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "exhaustive", "all", "all_vs_all", "all-vs-all":
		return StrategyExhaustive, true
	case "balanced", "":
		return StrategyBalanced, true
	case "random":
		return StrategyRandom, true
	}
	return "", false
}

type PairKey struct {
	HeaderID int64
	HeelerID int64
}

type Pair struct {
	HeaderID int64 `json:"header_id"`
	HeelerID int64 `json:"heeler_id"`
	Rating   int   `json:"rating"`
}

func (p Pair) Key() PairKey { return PairKey{HeaderID: p.HeaderID, HeelerID: p.HeelerID} }

type Exclusion struct {
	RoperID int64  `json:"roper_id"`
	Name    string `json:"name"`
	Reason  string `json:"reason"`
}

const (
	ReasonRatingCap = "no heeler partner within rating cap"
	ReasonNoPartner = "no available heeler partner"
	ReasonNoHeelers = "no heeler-eligible ropers"
)

type PairingOptions struct {
	Strategy        Strategy
	MaxTeamRating   int
	EntriesPerRoper int
	// Existing teams of the event. Their pairs are never planned again and
	// their ropers count against EntriesPerRoper.
	Existing []models.Team
}

type PairingPlan struct {
	Pairs      []Pair      `json:"pairs"`
	Duplicates int         `json:"duplicates"`
	Exclusions []Exclusion `json:"exclusions"`
}

// PlanPairs decides which header/heeler pairs to create. It never touches storage.
func PlanPairs(ropers []models.Roper, opts PairingOptions, rng *XorShift32) PairingPlan {
	var headers, heelers []models.Roper
	for _, r := range ropers {
		if r.Specialty.CanHead() {
			headers = append(headers, r)
		}
		if r.Specialty.CanHeel() {
			heelers = append(heelers, r)
		}
	}
	taken := make(map[PairKey]bool, len(opts.Existing))
	for _, t := range opts.Existing {
		taken[PairKey{HeaderID: t.HeaderID, HeelerID: t.HeelerID}] = true
	}

	if opts.Strategy == StrategyExhaustive {
		return planExhaustive(headers, heelers, opts.MaxTeamRating, taken)
	}
	return planGreedy(headers, heelers, opts, taken, rng)
}

func underCap(maxRating, rating int) bool {
	return maxRating <= 0 || rating <= maxRating
}

// partnerExists reports whether h has any heeler within the cap, ignoring usage.
func partnerExists(h models.Roper, heelers []models.Roper, maxRating int) bool {
	for _, l := range heelers {
		if l.ID != h.ID && underCap(maxRating, h.Rating+l.Rating) {
			return true
		}
	}
	return false
}

func exclusionFor(h models.Roper, heelers []models.Roper, maxRating int) Exclusion {
	reason := ReasonNoPartner
	switch {
	case len(heelers) == 0 || (len(heelers) == 1 && heelers[0].ID == h.ID):
		reason = ReasonNoHeelers
	case !partnerExists(h, heelers, maxRating):
		reason = ReasonRatingCap
	}
	return Exclusion{RoperID: h.ID, Name: h.FullName(), Reason: reason}
}

func planExhaustive(headers, heelers []models.Roper, maxRating int, taken map[PairKey]bool) PairingPlan {
	var plan PairingPlan
	for _, h := range headers {
		if !partnerExists(h, heelers, maxRating) {
			plan.Exclusions = append(plan.Exclusions, exclusionFor(h, heelers, maxRating))
			continue
		}
		for _, l := range heelers {
			if h.ID == l.ID {
				continue
			}
			rating := h.Rating + l.Rating
			if !underCap(maxRating, rating) {
				continue
			}
			key := PairKey{HeaderID: h.ID, HeelerID: l.ID}
			if taken[key] {
				plan.Duplicates++
				continue
			}
			taken[key] = true
			plan.Pairs = append(plan.Pairs, Pair{HeaderID: h.ID, HeelerID: l.ID, Rating: rating})
		}
	}
	return plan
}

func planGreedy(headers, heelers []models.Roper, opts PairingOptions, taken map[PairKey]bool, rng *XorShift32) PairingPlan {
	var plan PairingPlan
	entries := opts.EntriesPerRoper
	if entries < 1 {
		entries = 1
	}

	// Usage counts both roles so a "both" roper is capped across heading and heeling.
	usage := make(map[int64]int)
	for _, t := range opts.Existing {
		usage[t.HeaderID]++
		usage[t.HeelerID]++
	}

	hs := append([]models.Roper(nil), headers...)
	ls := append([]models.Roper(nil), heelers...)
	sort.SliceStable(hs, func(i, j int) bool {
		if hs[i].Rating != hs[j].Rating {
			return hs[i].Rating > hs[j].Rating
		}
		return hs[i].ID < hs[j].ID
	})
	sort.SliceStable(ls, func(i, j int) bool {
		if ls[i].Rating != ls[j].Rating {
			return ls[i].Rating < ls[j].Rating
		}
		return ls[i].ID < ls[j].ID
	})

	for pass := 0; pass < entries; pass++ {
		if opts.Strategy == StrategyRandom {
			Shuffle(hs, rng)
			Shuffle(ls, rng)
		}
		inPass := make(map[int64]bool)
		for _, h := range hs {
			if usage[h.ID] >= entries || inPass[h.ID] {
				continue
			}
			for _, l := range ls {
				if l.ID == h.ID || usage[l.ID] >= entries || inPass[l.ID] {
					continue
				}
				rating := h.Rating + l.Rating
				if !underCap(opts.MaxTeamRating, rating) {
					continue
				}
				key := PairKey{HeaderID: h.ID, HeelerID: l.ID}
				if taken[key] {
					continue
				}
				taken[key] = true
				usage[h.ID]++
				usage[l.ID]++
				inPass[h.ID] = true
				inPass[l.ID] = true
				plan.Pairs = append(plan.Pairs, Pair{HeaderID: h.ID, HeelerID: l.ID, Rating: rating})
				break
			}
		}
	}

	for _, h := range headers {
		if usage[h.ID] == 0 {
			plan.Exclusions = append(plan.Exclusions, exclusionFor(h, heelers, opts.MaxTeamRating))
		}
	}
	return plan
}
