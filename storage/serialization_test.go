package storage

import (
	"testing"
	"time"

	"github.com/storyowl/storyowl/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemRoundTrip(t *testing.T) {
	item := &core.Item{
		Id:          core.IDFromContent("book:abc"),
		SourceId:    "abc",
		Kind:        core.KindBook,
		Title:       "The Dinosaur Atlas",
		Authors:     []string{"J. Rivera", "M. Osei"},
		Description: "A journey through the Mesozoic.",
		Tags:        []string{"dinosaurs", "non-fiction"},
		AgeMin:      6,
		AgeMax:      10,
		Thumb:       "https://img.example/abc.jpg",
		Link:        "https://books.example/abc",
		Vector:      []float32{0.25, -0.5, 0.75},
		InsertedAt:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2025, 3, 2, 9, 30, 0, 0, time.UTC),
	}

	decoded, err := UnmarshalItem(MarshalItem(item))
	require.NoError(t, err)
	assert.Equal(t, item, decoded)
}

func TestItemRoundTripZeroTimes(t *testing.T) {
	item := &core.Item{
		SourceId: "xyz",
		Kind:     core.KindVideo,
		Title:    "Volcano Lab",
	}

	decoded, err := UnmarshalItem(MarshalItem(item))
	require.NoError(t, err)
	assert.True(t, decoded.InsertedAt.IsZero())
	assert.True(t, decoded.UpdatedAt.IsZero())
	assert.Empty(t, decoded.Vector)
}

func TestProfileRoundTrip(t *testing.T) {
	profile := &core.UserProfile{
		UserId:         "u-42",
		Role:           core.RoleChild,
		Interests:      []string{"space", "dinosaurs", "oceans"},
		Restrictions:   []string{"clowns"},
		Age:            8,
		Vector:         []float32{0.1, 0.2},
		FavouriteCount: 4,
		ActivityCount:  9,
		UpdatedAt:      time.Date(2025, 5, 5, 5, 5, 5, 0, time.UTC),
	}

	decoded, err := UnmarshalProfile(MarshalProfile(profile))
	require.NoError(t, err)
	assert.Equal(t, profile, decoded)
}

func TestStateRoundTrip(t *testing.T) {
	state := &core.ContinuationState{
		UserKey:    "u-42",
		SessionKey: "s-1",
		Strategy:   core.StrategyVector,
		Kind:       core.KindBook,
		Category:   "adventure",
		SeedQuery:  "dinosaur stories",
		SeedTitle:  "The Dinosaur Atlas",
		LastItems: []core.ItemSummary{
			{SourceId: "abc", Title: "The Dinosaur Atlas", Thumb: "t.jpg", Kind: core.KindBook},
			{SourceId: "def", Title: "Raptor Rescue", Kind: core.KindBook},
		},
		NextOffset: 6,
		PageToken:  "tok-2",
		SeenIds:    []string{"abc", "def", "ghi"},
		UpdatedAt:  time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}

	decoded, err := UnmarshalState(MarshalState(state))
	require.NoError(t, err)
	assert.Equal(t, state, decoded)
}

func TestUnmarshalCorruptData(t *testing.T) {
	_, err := UnmarshalState([]byte{0xff})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
