package storage

import (
	"context"

	"github.com/storyowl/storyowl/core"
)

// ItemFilter narrows candidate retrieval. The zero value matches everything.
type ItemFilter struct {
	// Kind restricts results to one media type. Zero means any kind.
	Kind core.Kind

	// Age keeps only items whose age range admits this age. Zero disables
	// the check.
	Age int

	// ExcludeIds drops items whose SourceId is in the set. Used for
	// cross-turn deduplication.
	ExcludeIds map[string]bool

	// ExcludeTags drops items carrying any of these tags (case-insensitive).
	// Used to keep restricted categories out of child results.
	ExcludeTags []string
}

// ScoredItem pairs an item with its raw similarity to a query vector.
type ScoredItem struct {
	Item       *core.Item
	Similarity float32
}

// ItemRepository provides operations for the content catalog.
// Implementations must be thread-safe and support concurrent access.
type ItemRepository interface {
	// PutItems upserts one or more items. IDs are derived from content
	// (kind plus source id), so re-ingesting the same item overwrites in
	// place. InsertedAt is preserved across upserts; UpdatedAt is refreshed.
	// Returns the items with IDs and timestamps populated.
	PutItems(ctx context.Context, items ...*core.Item) ([]*core.Item, error)

	// GetItem retrieves a single item by ID.
	// Returns ErrNotFound if the item doesn't exist.
	GetItem(ctx context.Context, id core.ID) (*core.Item, error)

	// GetItemBySourceId retrieves an item by its source identifier.
	// Returns ErrNotFound if no item with that source id exists.
	GetItemBySourceId(ctx context.Context, sourceId string) (*core.Item, error)

	// FindNearest finds items whose vectors are most similar to the query
	// vector. Items without vectors are skipped. Returns items with
	// similarity >= minSimilarity that pass the filter, ordered by
	// similarity descending, up to limit results. A nil filter matches
	// everything.
	FindNearest(ctx context.Context, vector []float32, minSimilarity float32, limit int, filter *ItemFilter) ([]*ScoredItem, error)

	// ListRecent returns the most recently ingested items that pass the
	// filter, newest first, up to limit results.
	ListRecent(ctx context.Context, limit int, filter *ItemFilter) ([]*core.Item, error)

	// Count returns the number of items in the catalog.
	Count(ctx context.Context) (int, error)

	// Close releases resources held by the repository.
	Close() error
}

// ProfileRepository provides operations for user taste profiles.
type ProfileRepository interface {
	// PutProfile stores a profile, replacing any previous version.
	// UpdatedAt is refreshed on write.
	PutProfile(ctx context.Context, profile *core.UserProfile) error

	// GetProfile retrieves the profile for a user.
	// Returns ErrNotFound if the user has no profile yet.
	GetProfile(ctx context.Context, userId string) (*core.UserProfile, error)

	// Close releases resources held by the repository.
	Close() error
}

// SessionRepository provides operations for per-session continuation state.
// Writes are last-write-wins: concurrent turns in one session may race, and
// the newer state simply replaces the older.
type SessionRepository interface {
	// SaveState stores the continuation state for (UserKey, SessionKey).
	SaveState(ctx context.Context, state *core.ContinuationState) error

	// LoadState retrieves the continuation state for a session.
	// Returns ErrNotFound if the session has no state yet.
	LoadState(ctx context.Context, userKey, sessionKey string) (*core.ContinuationState, error)

	// DeleteState removes a session's state. Deleting a missing state is
	// not an error.
	DeleteState(ctx context.Context, userKey, sessionKey string) error

	// Close releases resources held by the repository.
	Close() error
}
