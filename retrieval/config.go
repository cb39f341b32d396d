package retrieval

// Config holds the tunable retrieval parameters. The confidence floors and
// MMR lambdas are empirically chosen; treat them as knobs, not invariants.
type Config struct {
	// MinPoolSize is the smallest per-seed candidate pool fetched before
	// scoring and diversification.
	MinPoolSize int

	// PoolFactor scales the per-seed pool with the requested limit:
	// pool = max(MinPoolSize, PoolFactor * limit).
	PoolFactor int

	// BaseSimilarityFloor rejects the direct-search path when the single
	// best query similarity across all candidates is below it.
	BaseSimilarityFloor float32

	// FinalScoreFloor rejects the direct-search path when no candidate's
	// re-ranked score reaches it.
	FinalScoreFloor float32

	// Lambda is the MMR relevance/diversity trade-off for unpersonalized
	// requests.
	Lambda float32

	// PersonalizedLambda is the MMR lambda when personalization is active;
	// slightly lower because relevance is already taste-weighted.
	PersonalizedLambda float32
}

// DefaultConfig returns the production retrieval parameters.
func DefaultConfig() *Config {
	return &Config{
		MinPoolSize:         40,
		PoolFactor:          8,
		BaseSimilarityFloor: 0.38,
		FinalScoreFloor:     0.35,
		Lambda:              0.7,
		PersonalizedLambda:  0.65,
	}
}

// PoolSize returns the per-seed candidate pool size for a requested limit.
func (c *Config) PoolSize(limit int) int {
	pool := c.PoolFactor * limit
	if pool < c.MinPoolSize {
		pool = c.MinPoolSize
	}
	return pool
}

// LambdaFor returns the MMR lambda for the given personalization mode.
func (c *Config) LambdaFor(personalized bool) float32 {
	if personalized {
		return c.PersonalizedLambda
	}
	return c.Lambda
}
