package ripple

import (
	"math"
	"sort"
)

var (
	gradeLabels   = []string{"XB-", "XB", "XB+", "XA-", "XA", "XA+", "XS-", "XS", "XS+", "XX", "XX+"}
	gradeCeilings = []float64{-5, -4, -3, -2, -1, 0, 0.8, 1.5, 2.4, 4, 5}
)

// BuildPercentiles computes the share of players at or above each grade floor.
// Percentiles are rounded to four decimals and never increase down the table.
func BuildPercentiles(rows []StableRow, generatedAtMs int64, tr Transform) PercentilesPayload {
	scores := make([]float64, 0, len(rows))
	for _, r := range rows {
		if math.IsNaN(r.StableScore) || math.IsInf(r.StableScore, 0) {
			continue
		}
		scores = append(scores, r.StableScore)
	}
	sort.Float64s(scores)
	total := len(scores)

	thresholds := make([]GradeThreshold, len(gradeLabels))
	floor := math.Inf(-1)
	for i, label := range gradeLabels {
		ceiling := gradeCeilings[i]
		idx := sort.Search(total, func(k int) bool { return scores[k] > floor })
		count := total - idx

		th := GradeThreshold{
			Label:          label,
			RawCeiling:     ceiling,
			DisplayCeiling: ceiling*tr.Multiplier + tr.DisplayOffset,
			Count:          count,
		}
		if !math.IsInf(floor, -1) {
			rawFloor := floor
			displayFloor := floor*tr.Multiplier + tr.DisplayOffset
			th.RawFloor = &rawFloor
			th.DisplayFloor = &displayFloor
		}
		if total > 0 {
			th.Percentile = math.Round(float64(count)/float64(total)*10_000) / 10_000
		}
		thresholds[i] = th
		floor = ceiling
	}

	runningMin := 1.0
	for i := range thresholds {
		runningMin = min(runningMin, thresholds[i].Percentile)
		thresholds[i].Percentile = runningMin
	}

	return PercentilesPayload{
		GeneratedAtMs:   generatedAtMs,
		RecordCount:     len(rows),
		ScorePopulation: total,
		GradeThresholds: thresholds,
		Transform:       tr,
	}
}
