package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDFromContent(t *testing.T) {
	a := IDFromContent("The Big Dino Book")
	b := IDFromContent("The Big Dino Book")
	c := IDFromContent("the big dino book")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotZero(t, a)
}

func TestParseKindRoundTrip(t *testing.T) {
	assert.Equal(t, KindBook, ParseKind("book"))
	assert.Equal(t, KindVideo, ParseKind("video"))
	assert.Equal(t, Kind(0), ParseKind("podcast"))
	assert.Equal(t, "book", KindBook.String())
	assert.Equal(t, "", Kind(0).String())
}

func TestParseRoleDefaultsToChild(t *testing.T) {
	assert.Equal(t, RoleParent, ParseRole("parent"))
	assert.Equal(t, RoleChild, ParseRole("child"))
	assert.Equal(t, RoleChild, ParseRole(""))
	assert.Equal(t, RoleChild, ParseRole("admin"))
}

func TestSuitableForAge(t *testing.T) {
	it := &Item{AgeMin: 4, AgeMax: 8}
	assert.True(t, it.SuitableForAge(0))
	assert.True(t, it.SuitableForAge(4))
	assert.True(t, it.SuitableForAge(8))
	assert.False(t, it.SuitableForAge(3))
	assert.False(t, it.SuitableForAge(9))

	open := &Item{}
	assert.True(t, open.SuitableForAge(12))
}

func TestHasRichHistory(t *testing.T) {
	assert.False(t, (*UserProfile)(nil).HasRichHistory())
	assert.False(t, (&UserProfile{}).HasRichHistory())
	assert.True(t, (&UserProfile{Interests: []string{"a", "b", "c"}}).HasRichHistory())
	assert.True(t, (&UserProfile{FavouriteCount: 6, ActivityCount: 4}).HasRichHistory())
	assert.True(t, (&UserProfile{Vector: []float32{0.1}}).HasRichHistory())
}

func TestMarkSeen(t *testing.T) {
	s := &ContinuationState{}
	s.MarkSeen("a", "b")
	s.MarkSeen("b", "", "c")
	assert.Equal(t, []string{"a", "b", "c"}, s.SeenIds)

	set := s.SeenSet()
	assert.True(t, set["a"])
	assert.False(t, set["z"])
}

func TestMarkSeenTruncatesOldest(t *testing.T) {
	s := &ContinuationState{}
	for i := 0; i < SeenIdCap+10; i++ {
		s.MarkSeen(fmt.Sprintf("id-%d", i))
	}
	assert.Len(t, s.SeenIds, SeenIdCap)
	assert.Equal(t, "id-10", s.SeenIds[0])
	assert.Equal(t, fmt.Sprintf("id-%d", SeenIdCap+9), s.SeenIds[len(s.SeenIds)-1])
}

func TestValidateItem(t *testing.T) {
	valid := &Item{SourceId: "b1", Kind: KindBook, Title: "Space Cats"}
	assert.NoError(t, ValidateItem(valid))

	assert.ErrorIs(t, ValidateItem(nil), ErrInvalidItem)
	assert.ErrorIs(t, ValidateItem(&Item{Kind: KindBook, Title: "x"}), ErrEmptySourceId)
	assert.ErrorIs(t, ValidateItem(&Item{SourceId: "b1", Kind: KindBook}), ErrEmptyTitle)
	assert.ErrorIs(t, ValidateItem(&Item{SourceId: "b1", Title: "x"}), ErrInvalidKind)
	assert.ErrorIs(t, ValidateItem(&Item{SourceId: "b1", Kind: KindBook, Title: "x", AgeMin: 9, AgeMax: 5}), ErrInvalidAgeRange)
}

func TestValidateContinuationState(t *testing.T) {
	assert.ErrorIs(t, ValidateContinuationState(nil), ErrEmptySessionKey)
	assert.ErrorIs(t, ValidateContinuationState(&ContinuationState{SessionKey: "s"}), ErrEmptyUserId)
	assert.ErrorIs(t, ValidateContinuationState(&ContinuationState{UserKey: "u"}), ErrEmptySessionKey)
	assert.NoError(t, ValidateContinuationState(&ContinuationState{UserKey: "u", SessionKey: "s"}))
}
