package draw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamroping/internal/models"
)

func roper(id int64, spec models.Specialty, rating int) models.Roper {
	return models.Roper{ID: id, FirstName: "R", LastName: string(rune('A' + id)), Specialty: spec, Rating: rating}
}

func assertPlanInvariants(t *testing.T, plan PairingPlan, ropers []models.Roper, maxRating int) {
	t.Helper()
	ratings := make(map[int64]int)
	for _, r := range ropers {
		ratings[r.ID] = r.Rating
	}
	seen := make(map[PairKey]bool)
	for _, p := range plan.Pairs {
		assert.NotEqual(t, p.HeaderID, p.HeelerID, "self pair")
		assert.False(t, seen[p.Key()], "duplicate pair %+v", p)
		seen[p.Key()] = true
		assert.Equal(t, ratings[p.HeaderID]+ratings[p.HeelerID], p.Rating)
		if maxRating > 0 {
			assert.LessOrEqual(t, p.Rating, maxRating)
		}
	}
}

func TestPlanPairs_ExhaustiveSingle(t *testing.T) {
	ropers := []models.Roper{
		roper(1, models.SpecialtyHeader, 3),
		roper(2, models.SpecialtyHeeler, 2),
	}
	plan := PlanPairs(ropers, PairingOptions{Strategy: StrategyExhaustive, MaxTeamRating: 10}, NewXorShift32(1))
	require.Len(t, plan.Pairs, 1)
	assert.Equal(t, Pair{HeaderID: 1, HeelerID: 2, Rating: 5}, plan.Pairs[0])
	assert.Empty(t, plan.Exclusions)
}

func TestPlanPairs_ExhaustiveCapAndDuplicates(t *testing.T) {
	ropers := []models.Roper{
		roper(1, models.SpecialtyBoth, 4),
		roper(2, models.SpecialtyBoth, 6),
		roper(3, models.SpecialtyHeeler, 3),
		roper(4, models.SpecialtyHeader, 9),
	}
	existing := []models.Team{{HeaderID: 1, HeelerID: 3}}
	plan := PlanPairs(ropers, PairingOptions{Strategy: StrategyExhaustive, MaxTeamRating: 10, Existing: existing}, NewXorShift32(1))

	assertPlanInvariants(t, plan, ropers, 10)
	assert.ElementsMatch(t, []Pair{
		{HeaderID: 1, HeelerID: 2, Rating: 10},
		{HeaderID: 2, HeelerID: 1, Rating: 10},
		{HeaderID: 2, HeelerID: 3, Rating: 9},
	}, plan.Pairs)
	assert.Equal(t, 1, plan.Duplicates)
	require.Len(t, plan.Exclusions, 1)
	assert.Equal(t, int64(4), plan.Exclusions[0].RoperID)
	assert.Equal(t, ReasonRatingCap, plan.Exclusions[0].Reason)
}

func TestPlanPairs_ExhaustiveNoCapAllowsRepeats(t *testing.T) {
	ropers := []models.Roper{
		roper(1, models.SpecialtyHeader, 9),
		roper(2, models.SpecialtyHeader, 9),
		roper(3, models.SpecialtyHeeler, 9),
		roper(4, models.SpecialtyHeeler, 9),
	}
	plan := PlanPairs(ropers, PairingOptions{Strategy: StrategyExhaustive}, NewXorShift32(1))
	assert.Len(t, plan.Pairs, 4)
	assertPlanInvariants(t, plan, ropers, 0)
}

func TestPlanPairs_BalancedPairsHighWithLow(t *testing.T) {
	ropers := []models.Roper{
		roper(1, models.SpecialtyHeader, 3),
		roper(2, models.SpecialtyHeader, 5),
		roper(3, models.SpecialtyHeeler, 4),
		roper(4, models.SpecialtyHeeler, 1),
	}
	plan := PlanPairs(ropers, PairingOptions{Strategy: StrategyBalanced, EntriesPerRoper: 1}, NewXorShift32(1))
	assert.Equal(t, []Pair{
		{HeaderID: 2, HeelerID: 4, Rating: 6},
		{HeaderID: 1, HeelerID: 3, Rating: 7},
	}, plan.Pairs)
}

func TestPlanPairs_BalancedRepeatsPasses(t *testing.T) {
	ropers := []models.Roper{
		roper(1, models.SpecialtyHeader, 5),
		roper(2, models.SpecialtyHeader, 3),
		roper(3, models.SpecialtyHeeler, 1),
		roper(4, models.SpecialtyHeeler, 4),
	}
	plan := PlanPairs(ropers, PairingOptions{Strategy: StrategyBalanced, EntriesPerRoper: 2}, NewXorShift32(1))
	assertPlanInvariants(t, plan, ropers, 0)
	assert.Len(t, plan.Pairs, 4)

	usage := make(map[int64]int)
	for _, p := range plan.Pairs {
		usage[p.HeaderID]++
		usage[p.HeelerID]++
	}
	for id, n := range usage {
		assert.Equal(t, 2, n, "roper %d", id)
	}
}

func TestPlanPairs_BalancedRespectsCapAndExisting(t *testing.T) {
	ropers := []models.Roper{
		roper(1, models.SpecialtyHeader, 6),
		roper(2, models.SpecialtyHeader, 2),
		roper(3, models.SpecialtyHeeler, 1),
		roper(4, models.SpecialtyHeeler, 5),
		roper(5, models.SpecialtyHeader, 2),
	}
	existing := []models.Team{{HeaderID: 2, HeelerID: 4}}
	plan := PlanPairs(ropers, PairingOptions{Strategy: StrategyBalanced, MaxTeamRating: 7, EntriesPerRoper: 1, Existing: existing}, NewXorShift32(1))

	assert.Equal(t, []Pair{{HeaderID: 1, HeelerID: 3, Rating: 7}}, plan.Pairs)
	require.Len(t, plan.Exclusions, 1)
	assert.Equal(t, int64(5), plan.Exclusions[0].RoperID)
	assert.Equal(t, ReasonNoPartner, plan.Exclusions[0].Reason)
}

func TestPlanPairs_RandomHonorsLimits(t *testing.T) {
	var ropers []models.Roper
	for i := int64(1); i <= 12; i++ {
		spec := models.SpecialtyBoth
		if i%3 == 0 {
			spec = models.SpecialtyHeader
		} else if i%3 == 1 {
			spec = models.SpecialtyHeeler
		}
		ropers = append(ropers, roper(i, spec, int(i%7)+1))
	}
	for seed := uint32(1); seed < 20; seed++ {
		plan := PlanPairs(ropers, PairingOptions{Strategy: StrategyRandom, MaxTeamRating: 9, EntriesPerRoper: 2}, NewXorShift32(seed))
		assertPlanInvariants(t, plan, ropers, 9)
		usage := make(map[int64]int)
		for _, p := range plan.Pairs {
			usage[p.HeaderID]++
			usage[p.HeelerID]++
		}
		for id, n := range usage {
			assert.LessOrEqual(t, n, 2, "roper %d seed %d", id, seed)
		}
	}
}

func TestPlanPairs_NoHeelers(t *testing.T) {
	ropers := []models.Roper{roper(1, models.SpecialtyHeader, 3)}
	plan := PlanPairs(ropers, PairingOptions{Strategy: StrategyBalanced, EntriesPerRoper: 1}, NewXorShift32(1))
	assert.Empty(t, plan.Pairs)
	require.Len(t, plan.Exclusions, 1)
	assert.Equal(t, ReasonNoHeelers, plan.Exclusions[0].Reason)
}

func TestParseStrategy(t *testing.T) {
	s, ok := ParseStrategy("all_vs_all")
	assert.True(t, ok)
	assert.Equal(t, StrategyExhaustive, s)
	s, ok = ParseStrategy("")
	assert.True(t, ok)
	assert.Equal(t, StrategyBalanced, s)
	_, ok = ParseStrategy("swiss")
	assert.False(t, ok)
}
