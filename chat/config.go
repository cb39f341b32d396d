package chat

import (
	"time"

	"github.com/storyowl/storyowl/catalog"
)

// Config holds the orchestrator tunables.
type Config struct {
	// Limit is the number of items shown per reply.
	Limit int

	// PageSize is the physical page size used against catalog sources when
	// paging for fresh continuation results.
	PageSize int

	// MaxPages bounds how many physical pages a continuation turn may pull
	// before giving up on freshness.
	MaxPages int

	// FreshTarget is the number of not-yet-seen items a continuation turn
	// tries to collect before stopping early.
	FreshTarget int

	// SoftTimeout bounds one turn end to end. When it expires, in-flight
	// retrieval is cancelled and an apologetic fallback reply is returned.
	SoftTimeout time.Duration

	// MaxSafetyTextLen bounds how much user text the safety screen scans.
	MaxSafetyTextLen int
}

// DefaultConfig returns the standard orchestrator parameters.
func DefaultConfig() *Config {
	return &Config{
		Limit:            6,
		PageSize:         catalog.DefaultPageSize,
		MaxPages:         10,
		FreshTarget:      5,
		SoftTimeout:      15 * time.Second,
		MaxSafetyTextLen: 2000,
	}
}
