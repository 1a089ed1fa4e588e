package ripple

import "github.com/mauv0809/ripple-snapshot/internal/rankings"

// BuildDanger converts store danger rows into the published payload. Display
// scores come from the stable rows when the player is present there.
func BuildDanger(page rankings.DangerPage, stable []StableRow, params rankings.QueryParams, generatedAtMs int64, tr Transform) DangerPayload {
	display := make(map[string]float64, len(stable))
	for _, r := range stable {
		display[r.PlayerID] = r.DisplayScore
	}

	rows := make([]DangerRow, 0, len(page.Rows))
	for _, r := range page.Rows {
		score, ok := display[r.PlayerID]
		if !ok {
			score = tr.Display(r.Score)
		}
		var daysLeft *float64
		if r.MsLeft != nil {
			d := float64(*r.MsLeft) / float64(rankings.MsPerDay)
			daysLeft = &d
		}
		rows = append(rows, DangerRow{
			Rank:                  r.PlayerRank,
			PlayerID:              r.PlayerID,
			DisplayName:           r.DisplayName,
			DisplayScore:          score,
			WindowTournamentCount: r.WindowTournamentCount,
			OldestInWindowMs:      r.OldestInWindowMs,
			NextExpiryMs:          r.NextExpiryMs,
			DaysLeft:              daysLeft,
		})
	}

	return DangerPayload{
		BuildVersion:   page.BuildVersion,
		CalculatedAtMs: page.CalcTs,
		GeneratedAtMs:  &generatedAtMs,
		QueryParams:    &params,
		RecordCount:    len(rows),
		Total:          max(page.Total, len(rows)),
		Data:           rows,
	}
}
