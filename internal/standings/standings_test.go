package standings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamroping/internal/models"
)

func f(v float64) *float64 { return &v }

func timed(team int64, round int, sec, penalty float64) models.RunExpanded {
	return models.RunExpanded{Run: models.Run{
		TeamID: team, Round: round, TimeSec: f(sec), Penalty: penalty, Status: models.RunCompleted,
	}}
}

func nt(team int64, round int) models.RunExpanded {
	return models.RunExpanded{Run: models.Run{TeamID: team, Round: round, NoTime: true, Status: models.RunCompleted}}
}

func dq(team int64, round int) models.RunExpanded {
	return models.RunExpanded{Run: models.Run{TeamID: team, Round: round, DQ: true, Status: models.RunCompleted}}
}

func pending(team int64, round int) models.RunExpanded {
	return models.RunExpanded{Run: models.Run{TeamID: team, Round: round, Status: models.RunPending}}
}

func TestCompute_TotalAcrossRounds(t *testing.T) {
	rows := Compute([]models.RunExpanded{timed(1, 1, 8.456, 0), timed(1, 2, 9.012, 2)})
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].TotalTime)
	assert.Equal(t, 19.468, *rows[0].TotalTime)
	assert.Equal(t, 2, rows[0].CompletedRuns)
	assert.Equal(t, 9.734, *rows[0].AvgTime)
	assert.Equal(t, 8.456, *rows[0].BestTime)
	assert.True(t, rows[0].Qualified)
	assert.Equal(t, 1, rows[0].Rank)
}

func TestCompute_NoTimeRanksAfterQualified(t *testing.T) {
	rows := Compute([]models.RunExpanded{nt(1, 1), timed(2, 1, 12.5, 5)})
	require.Len(t, rows, 2)
	assert.Equal(t, int64(2), rows[0].TeamID)
	assert.Equal(t, int64(1), rows[1].TeamID)
	assert.Nil(t, rows[1].TotalTime)
	assert.Nil(t, rows[1].AvgTime)
	assert.Equal(t, 1, rows[1].NtCnt)
	assert.False(t, rows[1].Qualified)
	assert.Equal(t, 2, rows[1].Rank)
}

func TestCompute_TierOrder(t *testing.T) {
	runs := []models.RunExpanded{
		dq(1, 1),
		nt(2, 1),
		pending(3, 1),
		timed(4, 1, 9, 0),
		timed(5, 1, 7, 0), timed(5, 2, 8, 0),
		timed(6, 1, 7.5, 0), dq(6, 2), nt(6, 3),
		timed(7, 1, 8, 0), nt(7, 2),
	}
	rows := Compute(runs)
	var ids []int64
	for _, r := range rows {
		ids = append(ids, r.TeamID)
	}
	// 5 has more rounds than 4; 3 has nothing captured; 7 beats 2 on completed
	// runs inside the no-time tier; 6 carries a DQ.
	assert.Equal(t, []int64{5, 4, 3, 7, 2, 6, 1}, ids)
	for i, r := range rows {
		assert.Equal(t, i+1, r.Rank)
	}
}

func TestCompute_TieBreaks(t *testing.T) {
	rows := Compute([]models.RunExpanded{
		timed(3, 1, 8, 0), timed(3, 2, 10, 0),
		timed(2, 1, 9, 0), timed(2, 2, 9, 0),
		timed(1, 1, 9, 0), timed(1, 2, 9, 0),
	})
	var ids []int64
	for _, r := range rows {
		ids = append(ids, r.TeamID)
	}
	assert.Equal(t, []int64{3, 1, 2}, ids)
}

func TestQualified(t *testing.T) {
	rows := Compute([]models.RunExpanded{timed(1, 1, 8, 0), nt(2, 1)})
	q := Qualified(rows)
	require.Len(t, q, 1)
	assert.Equal(t, int64(1), q[0].TeamID)
}
