package ripple

import "github.com/mauv0809/ripple-snapshot/internal/rankings"

// Baseline sources recorded in the previous-snapshot meta.
const (
	SourceLatest         = "redis_latest"
	SourcePrevious       = "redis_previous"
	SourceReconstruction = "db_reconstruction"
)

// Transform maps raw scores onto the display scale.
type Transform struct {
	ScoreOffset   float64 `json:"score_offset"`
	DisplayOffset float64 `json:"display_offset"`
	Multiplier    float64 `json:"multiplier"`
}

// DefaultTransform returns the stock display transform.
func DefaultTransform() Transform {
	return Transform{ScoreOffset: 0, DisplayOffset: 150, Multiplier: 25}
}

// Display returns (score + ScoreOffset) * Multiplier. DisplayOffset only
// applies to grade threshold bounds.
func (t Transform) Display(score float64) float64 {
	return (score + t.ScoreOffset) * t.Multiplier
}

// Envelope wraps a published list of rows.
type Envelope[T any] struct {
	BuildVersion   *string               `json:"build_version"`
	CalculatedAtMs *int64                `json:"calculated_at_ms"`
	GeneratedAtMs  *int64                `json:"generated_at_ms"`
	QueryParams    *rankings.QueryParams `json:"query_params"`
	RecordCount    int                   `json:"record_count"`
	Total          int                   `json:"total"`
	Data           []T                   `json:"data"`
}

// Valid reports whether the envelope carries a data list.
func (e *Envelope[T]) Valid() bool {
	return e != nil && e.Data != nil
}

// StableRow is one published leaderboard entry.
type StableRow struct {
	PlayerID              string  `json:"player_id"`
	DisplayName           *string `json:"display_name"`
	StableScore           float64 `json:"stable_score"`
	DisplayScore          float64 `json:"display_score"`
	StableRank            int     `json:"stable_rank"`
	TournamentCount       *int    `json:"tournament_count"`
	WindowTournamentCount *int    `json:"window_tournament_count"`
	LastActiveMs          *int64  `json:"last_active_ms"`
	LastTournamentMs      *int64  `json:"last_tournament_ms"`
}

type StablePayload = Envelope[StableRow]

// BaselineRow is a stable row read back from a previous generation. Fields
// another writer may have left out stay nil instead of decoding as zero.
type BaselineRow struct {
	PlayerID              string   `json:"player_id"`
	DisplayName           *string  `json:"display_name"`
	StableScore           *float64 `json:"stable_score"`
	DisplayScore          *float64 `json:"display_score"`
	StableRank            *int     `json:"stable_rank"`
	TournamentCount       *int     `json:"tournament_count"`
	WindowTournamentCount *int     `json:"window_tournament_count"`
	LastActiveMs          *int64   `json:"last_active_ms"`
	LastTournamentMs      *int64   `json:"last_tournament_ms"`
}

type BaselinePayload = Envelope[BaselineRow]

// ToBaseline converts a freshly built stable payload into baseline form.
func ToBaseline(p StablePayload) BaselinePayload {
	out := BaselinePayload{
		BuildVersion:   p.BuildVersion,
		CalculatedAtMs: p.CalculatedAtMs,
		GeneratedAtMs:  p.GeneratedAtMs,
		QueryParams:    p.QueryParams,
		RecordCount:    p.RecordCount,
		Total:          p.Total,
	}
	if p.Data == nil {
		return out
	}
	out.Data = make([]BaselineRow, len(p.Data))
	for i, r := range p.Data {
		score, display, rank := r.StableScore, r.DisplayScore, r.StableRank
		out.Data[i] = BaselineRow{
			PlayerID:              r.PlayerID,
			DisplayName:           r.DisplayName,
			StableScore:           &score,
			DisplayScore:          &display,
			StableRank:            &rank,
			TournamentCount:       r.TournamentCount,
			WindowTournamentCount: r.WindowTournamentCount,
			LastActiveMs:          r.LastActiveMs,
			LastTournamentMs:      r.LastTournamentMs,
		}
	}
	return out
}

// DangerRow is a published entry of the danger view.
type DangerRow struct {
	Rank                  *int     `json:"rank"`
	PlayerID              string   `json:"player_id"`
	DisplayName           *string  `json:"display_name"`
	DisplayScore          float64  `json:"display_score"`
	WindowTournamentCount *int     `json:"window_tournament_count"`
	OldestInWindowMs      *int64   `json:"oldest_in_window_ms"`
	NextExpiryMs          *int64   `json:"next_expiry_ms"`
	DaysLeft              *float64 `json:"days_left"`
}

type DangerPayload = Envelope[DangerRow]

// MetaPayload summarizes one generation.
type MetaPayload struct {
	GeneratedAtMs        int64   `json:"generated_at_ms"`
	StableCalculatedAtMs *int64  `json:"stable_calculated_at_ms"`
	StableRecordCount    int     `json:"stable_record_count"`
	DangerCalculatedAtMs *int64  `json:"danger_calculated_at_ms"`
	DangerRecordCount    int     `json:"danger_record_count"`
	BuildVersion         *string `json:"build_version"`
}

// PreviousMeta describes where the preserved previous snapshot came from.
type PreviousMeta struct {
	Source               string `json:"source"`
	PayloadGeneratedAtMs *int64 `json:"payload_generated_at_ms"`
}

// GradeThreshold is one grade band of the percentile table.
type GradeThreshold struct {
	Label          string   `json:"label"`
	RawFloor       *float64 `json:"raw_floor"`
	RawCeiling     float64  `json:"raw_ceiling"`
	DisplayFloor   *float64 `json:"display_floor"`
	DisplayCeiling float64  `json:"display_ceiling"`
	Count          int      `json:"count"`
	Percentile     float64  `json:"percentile"`
}

type PercentilesPayload struct {
	GeneratedAtMs   int64            `json:"generated_at_ms"`
	RecordCount     int              `json:"record_count"`
	ScorePopulation int              `json:"score_population"`
	GradeThresholds []GradeThreshold `json:"grade_thresholds"`
	Transform       Transform        `json:"transform"`
}

// DeltaRecord compares a player against the baseline snapshot.
type DeltaRecord struct {
	RankDelta            *int     `json:"rank_delta"`
	ScoreDelta           *float64 `json:"score_delta"`
	DisplayScoreDelta    *float64 `json:"display_score_delta"`
	PreviousRank         *int     `json:"previous_rank"`
	PreviousScore        *float64 `json:"previous_score"`
	PreviousDisplayScore *float64 `json:"previous_display_score"`
	IsNew                bool     `json:"is_new"`
}

// Dropout is a baseline player missing from the new snapshot.
type Dropout struct {
	PlayerID             string   `json:"player_id"`
	PreviousRank         *int     `json:"previous_rank"`
	PreviousScore        *float64 `json:"previous_score"`
	PreviousDisplayScore *float64 `json:"previous_display_score"`
}

type DeltasPayload struct {
	GeneratedAtMs         int64                  `json:"generated_at_ms"`
	BaselineGeneratedAtMs *int64                 `json:"baseline_generated_at_ms"`
	RecordCount           int                    `json:"record_count"`
	ComparisonCount       int                    `json:"comparison_count"`
	Players               map[string]DeltaRecord `json:"players"`
	Newcomers             []string               `json:"newcomers"`
	Dropouts              []Dropout              `json:"dropouts"`
}

// PlayerState is the durable per-player memory of the publisher.
type PlayerState struct {
	StableScore        float64  `json:"stable_score"`
	LastTournamentMs   *int64   `json:"last_tournament_ms"`
	LastActiveMs       *int64   `json:"last_active_ms"`
	TournamentCount    *int     `json:"tournament_count"`
	UpdatedAtMs        int64    `json:"updated_at_ms"`
	RecentScoreDelta   *float64 `json:"recent_score_delta"`
	RecentScoreDeltaMs *int64   `json:"recent_score_delta_ms"`
}

// PlayerStates is keyed by player id.
type PlayerStates map[string]PlayerState
