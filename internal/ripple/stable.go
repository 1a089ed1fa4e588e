package ripple

import (
	"sort"

	"github.com/mauv0809/ripple-snapshot/internal/rankings"
)

// BuildInput is everything the snapshot builder needs for one generation.
type BuildInput struct {
	Rows        []rankings.Row
	Events      map[string]rankings.PlayerEvent
	FirstScores map[string]float64
	// Prior is nil when reconstructing a historical snapshot.
	Prior PlayerStates
	// CutoffMs hides events after a historical snapshot time.
	CutoffMs      *int64
	GeneratedAtMs int64
	Transform     Transform
}

// GatedEvents returns the player -> latest event map whose post-event scores
// must be looked up. Players whose prior state already records a newer
// tournament than their latest event keep their prior score and are skipped.
func GatedEvents(rows []rankings.Row, events map[string]rankings.PlayerEvent, prior PlayerStates, cutoffMs *int64) map[string]int64 {
	out := make(map[string]int64)
	for _, row := range rows {
		e := latestEvent(events, row.PlayerID, cutoffMs)
		if e == nil {
			continue
		}
		if st, ok := prior[row.PlayerID]; ok && st.LastTournamentMs != nil && *st.LastTournamentMs > *e {
			continue
		}
		out[row.PlayerID] = *e
	}
	return out
}

// BuildStable turns ranking rows into ranked stable rows plus the next player state.
// Prior entries for players absent from Rows are carried over unchanged.
func BuildStable(in BuildInput) ([]StableRow, PlayerStates) {
	rows := make([]StableRow, 0, len(in.Rows))
	states := make(PlayerStates, len(in.Rows))

	for _, r := range in.Rows {
		e := latestEvent(in.Events, r.PlayerID, in.CutoffMs)
		count := r.TournamentCount
		if ev, ok := in.Events[r.PlayerID]; ok && ev.TournamentCount != nil {
			count = ev.TournamentCount
		}
		prior, hasPrior := in.Prior[r.PlayerID]

		score := r.Score
		lastTournament := e
		lastActive := r.LastActiveMs
		if e != nil {
			lastActive = e
			switch {
			case hasPrior && prior.LastTournamentMs != nil && *prior.LastTournamentMs > *e:
				// The store reports an older event than we already published.
				score = prior.StableScore
				lastTournament = prior.LastTournamentMs
				if prior.LastActiveMs != nil {
					lastActive = prior.LastActiveMs
				}
			case hasScore(in.FirstScores, r.PlayerID):
				score = in.FirstScores[r.PlayerID]
			case hasPrior && prior.LastTournamentMs != nil && *prior.LastTournamentMs == *e:
				score = prior.StableScore
			}
		}

		rows = append(rows, StableRow{
			PlayerID:              r.PlayerID,
			DisplayName:           r.DisplayName,
			StableScore:           score,
			TournamentCount:       count,
			WindowTournamentCount: r.WindowCount,
			LastActiveMs:          lastActive,
			LastTournamentMs:      lastTournament,
		})

		st := PlayerState{
			StableScore:      score,
			LastTournamentMs: lastTournament,
			LastActiveMs:     lastActive,
			TournamentCount:  count,
			UpdatedAtMs:      in.GeneratedAtMs,
		}
		if hasPrior {
			if prior.StableScore != score {
				delta := score - prior.StableScore
				at := in.GeneratedAtMs
				st.RecentScoreDelta = &delta
				st.RecentScoreDeltaMs = &at
			} else {
				st.RecentScoreDelta = prior.RecentScoreDelta
				st.RecentScoreDeltaMs = prior.RecentScoreDeltaMs
			}
		}
		states[r.PlayerID] = st
	}
	// Players missing from this run keep their state, so a temporary
	// dropout does not lose the score held since their last tournament.
	for id, st := range in.Prior {
		if _, ok := states[id]; !ok {
			states[id] = st
		}
	}

	Rank(rows, in.Transform)
	return rows, states
}

// Rank sorts rows by score descending then player id, and assigns dense
// 1-based ranks and display scores.
func Rank(rows []StableRow, tr Transform) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].StableScore != rows[j].StableScore {
			return rows[i].StableScore > rows[j].StableScore
		}
		return rows[i].PlayerID < rows[j].PlayerID
	})
	for i := range rows {
		rows[i].StableRank = i + 1
		rows[i].DisplayScore = tr.Display(rows[i].StableScore)
	}
}

// NewStablePayload wraps ranked rows for publication.
func NewStablePayload(rows []StableRow, page rankings.Page, params rankings.QueryParams, generatedAtMs int64) StablePayload {
	if rows == nil {
		rows = []StableRow{}
	}
	return StablePayload{
		BuildVersion:   page.BuildVersion,
		CalculatedAtMs: page.CalcTs,
		GeneratedAtMs:  &generatedAtMs,
		QueryParams:    &params,
		RecordCount:    len(rows),
		Total:          max(page.Total, len(rows)),
		Data:           rows,
	}
}

// BuildMeta summarizes a generation from its stable and danger payloads.
func BuildMeta(stable StablePayload, danger DangerPayload, generatedAtMs int64) MetaPayload {
	return MetaPayload{
		GeneratedAtMs:        generatedAtMs,
		StableCalculatedAtMs: stable.CalculatedAtMs,
		StableRecordCount:    stable.RecordCount,
		DangerCalculatedAtMs: danger.CalculatedAtMs,
		DangerRecordCount:    danger.RecordCount,
		BuildVersion:         stable.BuildVersion,
	}
}

func latestEvent(events map[string]rankings.PlayerEvent, id string, cutoffMs *int64) *int64 {
	ev, ok := events[id]
	if !ok || ev.LatestEventMs == nil {
		return nil
	}
	if cutoffMs != nil && *ev.LatestEventMs > *cutoffMs {
		return nil
	}
	return ev.LatestEventMs
}

func hasScore(scores map[string]float64, id string) bool {
	_, ok := scores[id]
	return ok
}
