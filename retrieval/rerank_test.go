package retrieval

import (
	"testing"

	"github.com/storyowl/storyowl/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractAuthorCandidate(t *testing.T) {
	cases := []struct {
		query string
		want  string
	}{
		{"books by roald dahl", "roald dahl"},
		{"book from julia donaldson", "julia donaldson"},
		{"dr seuss books", "dr seuss"},
		{"roald dahl", "roald dahl"},
		{"dinosaurs", ""},
		{"", ""},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractAuthorCandidate(tc.query))
		})
	}
}

func rerankCandidate(title string, authors []string, sim float32) *Candidate {
	return &Candidate{
		Item:     &core.Item{Title: title, Authors: authors},
		QuerySim: sim,
	}
}

func TestRerankAuthorBoosts(t *testing.T) {
	exact := rerankCandidate("Matilda", []string{"Roald Dahl"}, 0.5)
	partial := rerankCandidate("Poems", []string{"Roald Dahl Jr."}, 0.5)
	none := rerankCandidate("Space Atlas", []string{"Ann Other"}, 0.5)

	cands := []*Candidate{none, partial, exact}
	err := Rerank(cands, "books by roald dahl", DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, "Matilda", cands[0].Item.Title)
	assert.InDelta(t, 1.0, float64(cands[0].TextBoost), 1e-6)
	assert.InDelta(t, 0.75, float64(cands[0].Final), 1e-6)

	assert.Equal(t, "Poems", cands[1].Item.Title)
	assert.InDelta(t, 0.6, float64(cands[1].TextBoost), 1e-6)

	assert.Equal(t, "Space Atlas", cands[2].Item.Title)
	assert.Zero(t, cands[2].TextBoost)
}

func TestRerankTitleBoost(t *testing.T) {
	match := rerankCandidate("The Gruffalo", nil, 0.5)
	other := rerankCandidate("Room on the Broom", nil, 0.5)

	cands := []*Candidate{other, match}
	err := Rerank(cands, "gruffalo", DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, "The Gruffalo", cands[0].Item.Title)
	assert.InDelta(t, 0.5, float64(cands[0].TextBoost), 1e-6)
}

func TestRerankLowConfidenceGuard(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("best similarity below floor", func(t *testing.T) {
		cands := []*Candidate{rerankCandidate("A", nil, 0.30)}
		assert.ErrorIs(t, Rerank(cands, "zzz", cfg), ErrLowConfidence)
	})

	t.Run("no final score reaches floor", func(t *testing.T) {
		// Similarity clears the base floor but with no textual boost the
		// blend 0.5*0.40 stays under the final floor.
		cands := []*Candidate{rerankCandidate("A", nil, 0.40)}
		assert.ErrorIs(t, Rerank(cands, "zzz", cfg), ErrLowConfidence)
	})

	t.Run("empty candidates", func(t *testing.T) {
		assert.ErrorIs(t, Rerank(nil, "q", cfg), ErrLowConfidence)
	})

	t.Run("passes with close match", func(t *testing.T) {
		cands := []*Candidate{rerankCandidate("A", nil, 0.80)}
		assert.NoError(t, Rerank(cands, "zzz", cfg))
		assert.InDelta(t, 0.40, float64(cands[0].Final), 1e-6)
	})
}
