package catalog

import (
	"testing"

	"github.com/storyowl/storyowl/core"
	"github.com/stretchr/testify/assert"
)

func TestCanonicalGenre(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"Non-Fiction", "nonfiction"},
		{"art & crafts", "art_crafts"},
		{"Nursery Rhymes", "songs_rhymes"},
		{"space", "science"},
		{"YA", "young_adult"},
		{"dinosaurs", "dinosaurs"}, // free topic passes through
		{"", ""},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			assert.Equal(t, tc.want, CanonicalGenre(tc.raw))
		})
	}
}

func TestIsKnownGenre(t *testing.T) {
	assert.True(t, IsKnownGenre("fiction"))
	assert.True(t, IsKnownGenre("Picture Books"))
	assert.False(t, IsKnownGenre("dinosaurs"))
	assert.False(t, IsKnownGenre(""))
}

func TestBookQueryFor(t *testing.T) {
	term, juvenile := BookQueryFor("fiction")
	assert.Equal(t, "juvenile fiction", term)
	assert.True(t, juvenile)

	term, juvenile = BookQueryFor("young_adult")
	assert.Equal(t, "young adult", term)
	assert.False(t, juvenile)

	term, juvenile = BookQueryFor("")
	assert.Equal(t, "children books", term)
	assert.True(t, juvenile)

	term, _ = BookQueryFor("dinosaurs")
	assert.Equal(t, "dinosaurs", term)
}

func TestVideoQueryFor(t *testing.T) {
	assert.Equal(t, "bedtime stories for kids", VideoQueryFor("stories"))
	assert.Equal(t, "kids", VideoQueryFor(""))
	assert.Equal(t, "dinosaurs", VideoQueryFor("dinosaurs"))
}

func TestTopicVariants(t *testing.T) {
	variants := TopicVariants("dinosaur")
	assert.Contains(t, variants, "dinosaur")
	assert.Contains(t, variants, "dinosaurs")
	assert.Contains(t, variants, "trex")
	assert.Contains(t, variants, "triceratops")

	variants = TopicVariants("trains")
	assert.Contains(t, variants, "trains")
	assert.Contains(t, variants, "train")

	assert.Empty(t, TopicVariants(" "))
}

func TestMatchesTopic(t *testing.T) {
	book := &core.Item{
		Kind:    core.KindBook,
		Title:   "The Big Book of T. Rex",
		Authors: []string{"P. Saurus"},
	}
	assert.True(t, MatchesTopic(book, "dinosaurs"))

	video := &core.Item{
		Kind:        core.KindVideo,
		Title:       "Fun Facts",
		Description: "All about triceratops and friends",
	}
	assert.True(t, MatchesTopic(video, "dinosaur"))

	other := &core.Item{Kind: core.KindBook, Title: "Space Atlas"}
	assert.False(t, MatchesTopic(other, "dinosaurs"))
}

func TestFilterByTopicRevertsWhenTooFew(t *testing.T) {
	items := []*core.Item{
		{Kind: core.KindBook, Title: "Dino One"},
		{Kind: core.KindBook, Title: "Dino Two"},
		{Kind: core.KindBook, Title: "Space Atlas"},
		{Kind: core.KindBook, Title: "Ocean Life"},
	}

	// Only two matches: below the minimum, so the full page comes back.
	assert.Len(t, FilterByTopic(items, "dino"), 4)

	items = append(items, &core.Item{Kind: core.KindBook, Title: "Dino Three"})
	filtered := FilterByTopic(items, "dino")
	assert.Len(t, filtered, 3)
	for _, it := range filtered {
		assert.Contains(t, it.Title, "Dino")
	}
}
