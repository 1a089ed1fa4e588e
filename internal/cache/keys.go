package cache

const (
	LockKey           = "ripple:snapshot:lock"
	StableLatestKey   = "ripple:stable:latest"
	StablePreviousKey = "ripple:stable:previous"
	PreviousMetaKey   = "ripple:stable:previous:meta"
	DangerLatestKey   = "ripple:danger:latest"
	MetaKey           = "ripple:stable:meta"
	PercentilesKey    = "ripple:stable:percentiles"
	DeltasKey         = "ripple:stable:deltas"
	StateKey          = "ripple:stable:state"
	FeatureFlagKey    = "feature:comp_leaderboard"
)
