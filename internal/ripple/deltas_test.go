package ripple_test

import (
	"testing"

	"github.com/goccy/go-json"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mauv0809/ripple-snapshot/internal/ripple"
)

func baselinePayload(generatedAtMs int64, rows ...ripple.StableRow) *ripple.BaselinePayload {
	ripple.Rank(rows, ripple.DefaultTransform())
	b := ripple.ToBaseline(ripple.StablePayload{GeneratedAtMs: &generatedAtMs, RecordCount: len(rows), Data: rows})
	return &b
}

func TestComputeDeltas_NoBaseline(t *testing.T) {
	rows := stableRows(1.0)
	for name, baseline := range map[string]*ripple.BaselinePayload{
		"nil":     nil,
		"no data": {GeneratedAtMs: ptr(int64(5))},
	} {
		t.Run(name, func(t *testing.T) {
			d := ripple.ComputeDeltas(rows, baseline, 1000, ripple.DefaultTransform())
			assert.Equal(t, int64(1000), d.GeneratedAtMs)
			assert.Nil(t, d.BaselineGeneratedAtMs)
			assert.Zero(t, d.RecordCount)
			assert.Zero(t, d.ComparisonCount)
			assert.Empty(t, d.Players)
			assert.NotNil(t, d.Newcomers)
			assert.NotNil(t, d.Dropouts)
		})
	}
}

func TestComputeDeltas_RankImprovement(t *testing.T) {
	tr := ripple.DefaultTransform()
	baseline := baselinePayload(500,
		ripple.StableRow{PlayerID: "p1", StableScore: 1.05},
		ripple.StableRow{PlayerID: "p2", StableScore: 1.20},
	)
	rows := []ripple.StableRow{{PlayerID: "p1", StableScore: 1.35}, {PlayerID: "p2", StableScore: 1.20}}
	ripple.Rank(rows, tr)

	d := ripple.ComputeDeltas(rows, baseline, 1000, tr)

	assert.Equal(t, int64(500), *d.BaselineGeneratedAtMs)
	assert.Equal(t, 2, d.RecordCount)
	assert.Equal(t, 2, d.ComparisonCount)
	assert.Empty(t, d.Newcomers)
	assert.Empty(t, d.Dropouts)

	p1 := d.Players["p1"]
	assert.False(t, p1.IsNew)
	assert.Equal(t, 1, *p1.RankDelta)
	assert.InDelta(t, 0.30, *p1.ScoreDelta, 1e-9)
	assert.InDelta(t, 7.5, *p1.DisplayScoreDelta, 1e-9)
	assert.Equal(t, 2, *p1.PreviousRank)

	p2 := d.Players["p2"]
	assert.Equal(t, -1, *p2.RankDelta)
	assert.Equal(t, 0.0, *p2.ScoreDelta)
}

func TestComputeDeltas_NewcomerAndDropout(t *testing.T) {
	tr := ripple.DefaultTransform()
	baseline := baselinePayload(500,
		ripple.StableRow{PlayerID: "p1", StableScore: 2.0},
		ripple.StableRow{PlayerID: "p2", StableScore: 1.0},
	)
	rows := []ripple.StableRow{{PlayerID: "p1", StableScore: 2.0}, {PlayerID: "p3", StableScore: 1.5}}
	ripple.Rank(rows, tr)

	d := ripple.ComputeDeltas(rows, baseline, 1000, tr)

	p3 := d.Players["p3"]
	assert.True(t, p3.IsNew)
	assert.Nil(t, p3.RankDelta)
	assert.Nil(t, p3.ScoreDelta)
	assert.Equal(t, []string{"p3"}, d.Newcomers)

	require.Len(t, d.Dropouts, 1)
	assert.Equal(t, "p2", d.Dropouts[0].PlayerID)
	assert.Equal(t, 2, *d.Dropouts[0].PreviousRank)
	assert.Equal(t, 1.0, *d.Dropouts[0].PreviousScore)
	assert.Equal(t, 25.0, *d.Dropouts[0].PreviousDisplayScore)
}

func TestComputeDeltas_PartialBaselineRow(t *testing.T) {
	tr := ripple.DefaultTransform()
	var baseline ripple.BaselinePayload
	require.NoError(t, json.Unmarshal([]byte(`{"generated_at_ms":1,"data":[
		{"player_id":"p1","display_score":30},
		{"player_id":"p2","stable_score":1.0},
		{"player_id":"p3"}
	]}`), &baseline))
	rows := []ripple.StableRow{
		{PlayerID: "p1", StableScore: 1.2},
		{PlayerID: "p2", StableScore: 1.1},
		{PlayerID: "p3", StableScore: 0.5},
	}
	ripple.Rank(rows, tr)

	d := ripple.ComputeDeltas(rows, &baseline, 1000, tr)

	t.Run("display only", func(t *testing.T) {
		p1 := d.Players["p1"]
		assert.False(t, p1.IsNew)
		assert.Nil(t, p1.ScoreDelta)
		assert.Nil(t, p1.RankDelta)
		assert.Nil(t, p1.PreviousRank)
		assert.Nil(t, p1.PreviousScore)
		require.NotNil(t, p1.DisplayScoreDelta)
		assert.InDelta(t, 0.0, *p1.DisplayScoreDelta, 1e-9)
		assert.Equal(t, 30.0, *p1.PreviousDisplayScore)
	})

	t.Run("score without rank", func(t *testing.T) {
		p2 := d.Players["p2"]
		assert.Nil(t, p2.RankDelta)
		require.NotNil(t, p2.ScoreDelta)
		assert.InDelta(t, 0.1, *p2.ScoreDelta, 1e-9)
		assert.InDelta(t, 2.5, *p2.DisplayScoreDelta, 1e-9)
	})

	t.Run("nothing known", func(t *testing.T) {
		p3 := d.Players["p3"]
		assert.False(t, p3.IsNew)
		assert.Nil(t, p3.RankDelta)
		assert.Nil(t, p3.ScoreDelta)
		assert.Nil(t, p3.DisplayScoreDelta)
	})
}

func TestComputeDeltas_UnrankedDropoutsLast(t *testing.T) {
	rank := 1
	generatedAt := int64(1)
	baseline := &ripple.BaselinePayload{GeneratedAtMs: &generatedAt, Data: []ripple.BaselineRow{
		{PlayerID: "a"},
		{PlayerID: "b", StableRank: &rank},
	}}

	d := ripple.ComputeDeltas(nil, baseline, 1000, ripple.DefaultTransform())

	require.Len(t, d.Dropouts, 2)
	assert.Equal(t, "b", d.Dropouts[0].PlayerID)
	assert.Equal(t, "a", d.Dropouts[1].PlayerID)
	assert.Nil(t, d.Dropouts[1].PreviousRank)
}
