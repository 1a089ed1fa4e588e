package ripple

import "sort"

// ComputeDeltas compares rows against baseline. A missing or invalid
// baseline yields an empty comparison. A delta is only reported when both
// sides of it are known.
func ComputeDeltas(rows []StableRow, baseline *BaselinePayload, generatedAtMs int64, tr Transform) DeltasPayload {
	out := DeltasPayload{
		GeneratedAtMs: generatedAtMs,
		Players:       map[string]DeltaRecord{},
		Newcomers:     []string{},
		Dropouts:      []Dropout{},
	}
	if !baseline.Valid() {
		return out
	}
	out.BaselineGeneratedAtMs = baseline.GeneratedAtMs

	prev := make(map[string]BaselineRow, len(baseline.Data))
	for _, r := range baseline.Data {
		prev[r.PlayerID] = r
	}
	remaining := make(map[string]struct{}, len(prev))
	for id := range prev {
		remaining[id] = struct{}{}
	}

	for _, r := range rows {
		p, ok := prev[r.PlayerID]
		if !ok {
			out.Players[r.PlayerID] = DeltaRecord{IsNew: true}
			out.Newcomers = append(out.Newcomers, r.PlayerID)
			continue
		}
		delete(remaining, r.PlayerID)

		rec := DeltaRecord{
			PreviousRank:         p.StableRank,
			PreviousScore:        p.StableScore,
			PreviousDisplayScore: p.DisplayScore,
		}
		if p.StableRank != nil {
			rankDelta := *p.StableRank - r.StableRank
			rec.RankDelta = &rankDelta
		}
		switch {
		case p.StableScore != nil:
			scoreDelta := r.StableScore - *p.StableScore
			displayDelta := tr.Display(r.StableScore) - tr.Display(*p.StableScore)
			rec.ScoreDelta = &scoreDelta
			rec.DisplayScoreDelta = &displayDelta
		case p.DisplayScore != nil:
			displayDelta := tr.Display(r.StableScore) - *p.DisplayScore
			rec.DisplayScoreDelta = &displayDelta
		}
		out.Players[r.PlayerID] = rec
	}

	for id := range remaining {
		p := prev[id]
		out.Dropouts = append(out.Dropouts, Dropout{
			PlayerID:             id,
			PreviousRank:         p.StableRank,
			PreviousScore:        p.StableScore,
			PreviousDisplayScore: p.DisplayScore,
		})
	}
	// Unranked dropouts go last.
	sort.Slice(out.Dropouts, func(i, j int) bool {
		a, b := out.Dropouts[i].PreviousRank, out.Dropouts[j].PreviousRank
		switch {
		case a != nil && b != nil && *a != *b:
			return *a < *b
		case (a == nil) != (b == nil):
			return a != nil
		}
		return out.Dropouts[i].PlayerID < out.Dropouts[j].PlayerID
	})

	out.RecordCount = len(out.Players)
	out.ComparisonCount = len(prev)
	return out
}
