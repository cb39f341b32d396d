package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities, derived from source content.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// Identical content always produces the same ID, which makes catalog upserts
// idempotent across ingestion runs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Kind identifies the media type of a content item.
type Kind int

const (
	// KindBook represents a book item.
	KindBook Kind = iota + 1
	// KindVideo represents a video item.
	KindVideo
)

// String returns the lowercase wire name of the kind, or "" for the zero value.
func (k Kind) String() string {
	switch k {
	case KindBook:
		return "book"
	case KindVideo:
		return "video"
	default:
		return ""
	}
}

// ParseKind maps a wire name to a Kind. Unknown names map to the zero value,
// which filters treat as "any kind".
func ParseKind(s string) Kind {
	switch s {
	case "book":
		return KindBook
	case "video":
		return KindVideo
	default:
		return 0
	}
}

// Role identifies the account type of a user.
type Role int

const (
	// RoleChild represents a child account, subject to safety restrictions.
	RoleChild Role = iota + 1
	// RoleParent represents a parent or guardian account.
	RoleParent
)

// String returns the lowercase wire name of the role, or "" for the zero value.
func (r Role) String() string {
	switch r {
	case RoleChild:
		return "child"
	case RoleParent:
		return "parent"
	default:
		return ""
	}
}

// ParseRole maps a wire name to a Role. Unknown names map to RoleChild:
// the safe default for an unrecognized account is the restricted one.
func ParseRole(s string) Role {
	switch s {
	case "parent":
		return RoleParent
	default:
		return RoleChild
	}
}

// Item is a canonical content record. Items arrive from heterogeneous
// catalog sources and are normalized into this one shape at the boundary,
// so the retrieval engine never sees a source-specific record.
//
// AgeMin/AgeMax of 0 mean the bound is unconstrained.
type Item struct {
	Id          ID
	SourceId    string // identifier within the originating content source
	Kind        Kind
	Title       string
	Authors     []string
	Description string
	Tags        []string
	AgeMin      int
	AgeMax      int
	Thumb       string
	Link        string
	Vector      []float32 // embedding for semantic search (populated by ingestion)
	InsertedAt  time.Time
	UpdatedAt   time.Time
}

// SuitableForAge reports whether the item's age range admits the given age.
// A zero age means the caller has no age signal and everything passes.
func (it *Item) SuitableForAge(age int) bool {
	if age <= 0 {
		return true
	}
	if it.AgeMin > 0 && age < it.AgeMin {
		return false
	}
	if it.AgeMax > 0 && age > it.AgeMax {
		return false
	}
	return true
}

// UserProfile is the aggregated taste profile for a user. It is rebuilt
// from interaction history by the profile package and consumed read-only
// by retrieval.
type UserProfile struct {
	UserId         string
	Role           Role
	Interests      []string
	Restrictions   []string // user-specific restricted terms, merged with the defaults per request
	Age            int
	Vector         []float32 // L2-normalized preference vector
	FavouriteCount int
	ActivityCount  int
	UpdatedAt      time.Time
}

// HasRichHistory reports whether the profile carries enough signal for
// taste-forward scoring weights.
func (p *UserProfile) HasRichHistory() bool {
	if p == nil {
		return false
	}
	if len(p.Interests) >= 3 {
		return true
	}
	if p.FavouriteCount+p.ActivityCount >= 10 {
		return true
	}
	return len(p.Vector) > 0
}

// Strategy identifies which cascade tier produced a reply. It is persisted
// in ContinuationState so follow-up turns page the same way.
type Strategy int

const (
	// StrategyNone means no retrieval strategy has run yet.
	StrategyNone Strategy = iota
	// StrategyPersonalized means the external personalizer produced the list.
	StrategyPersonalized
	// StrategyVector means direct nearest-neighbor retrieval produced the list.
	StrategyVector
	// StrategyCategory means keyword/category catalog search produced the list.
	StrategyCategory
)

// String returns the lowercase wire name of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyPersonalized:
		return "personalized"
	case StrategyVector:
		return "vector"
	case StrategyCategory:
		return "category"
	default:
		return "none"
	}
}

// ItemSummary is the compact per-item record remembered between turns.
type ItemSummary struct {
	SourceId string
	Title    string
	Thumb    string
	Kind     Kind
}

// SeenIdCap bounds the per-session seen-id set. Oldest entries are dropped
// first once the cap is reached.
const SeenIdCap = 200

// ContinuationState is the per (user, session) conversation record that
// makes "more like this" page through fresh results instead of repeating.
// It is scoped to one session and never shared across sessions.
type ContinuationState struct {
	UserKey    string
	SessionKey string
	Strategy   Strategy
	Kind       Kind
	Category   string // canonical category or free topic label of the last list
	SeedQuery  string
	SeedTitle  string
	LastItems  []ItemSummary
	NextOffset int
	PageToken  string
	SeenIds    []string // ordered oldest-first, truncated to SeenIdCap
	UpdatedAt  time.Time
}

// MarkSeen appends ids to the seen set, preserving order of first sighting
// and truncating to the most recent SeenIdCap entries.
func (s *ContinuationState) MarkSeen(ids ...string) {
	known := make(map[string]bool, len(s.SeenIds))
	for _, id := range s.SeenIds {
		known[id] = true
	}
	for _, id := range ids {
		if id == "" || known[id] {
			continue
		}
		s.SeenIds = append(s.SeenIds, id)
		known[id] = true
	}
	if len(s.SeenIds) > SeenIdCap {
		s.SeenIds = s.SeenIds[len(s.SeenIds)-SeenIdCap:]
	}
}

// SeenSet returns the seen ids as a lookup set.
func (s *ContinuationState) SeenSet() map[string]bool {
	set := make(map[string]bool, len(s.SeenIds))
	for _, id := range s.SeenIds {
		set[id] = true
	}
	return set
}
