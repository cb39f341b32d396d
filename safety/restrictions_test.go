package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindRestrictedTerms(t *testing.T) {
	t.Run("finds multiple terms", func(t *testing.T) {
		hits := FindRestrictedTerms("I like blood and guns", []string{"blood", "gun"})
		assert.Equal(t, []string{"blood", "gun"}, hits)
	})

	t.Run("short terms require word boundaries", func(t *testing.T) {
		hits := FindRestrictedTerms("chill", []string{"hi"})
		assert.Empty(t, hits)

		hits = FindRestrictedTerms("hi there", []string{"hi"})
		assert.Equal(t, []string{"hi"}, hits)
	})

	t.Run("short terms match suffixed forms", func(t *testing.T) {
		hits := FindRestrictedTerms("no guns here", []string{"gun"})
		assert.Equal(t, []string{"gun"}, hits)
	})

	t.Run("long terms match substrings", func(t *testing.T) {
		hits := FindRestrictedTerms("a bloody mess", []string{"blood"})
		assert.Equal(t, []string{"blood"}, hits)
	})

	t.Run("case insensitive", func(t *testing.T) {
		hits := FindRestrictedTerms("GUNS everywhere", []string{"gun"})
		assert.Equal(t, []string{"gun"}, hits)
	})

	t.Run("empty inputs", func(t *testing.T) {
		assert.Empty(t, FindRestrictedTerms("", []string{"gun"}))
		assert.Empty(t, FindRestrictedTerms("hello", nil))
	})

	t.Run("default blocklist catches weapon talk", func(t *testing.T) {
		hits := FindRestrictedTerms("show me rifle videos", DefaultRestrictedTerms)
		assert.Contains(t, hits, "rifle")
	})
}

func TestMergeRestrictions(t *testing.T) {
	t.Run("defaults come first", func(t *testing.T) {
		merged := MergeRestrictions([]string{"clowns"})
		require.Greater(t, len(merged), len(DefaultRestrictedTerms))
		assert.Equal(t, DefaultRestrictedTerms[0], merged[0])
		assert.Equal(t, "clowns", merged[len(merged)-1])
	})

	t.Run("normalizes and deduplicates", func(t *testing.T) {
		merged := MergeRestrictions([]string{"  Clowns ", "clowns", "GUN", ""})
		count := 0
		for _, term := range merged {
			if term == "clowns" {
				count++
			}
		}
		assert.Equal(t, 1, count)
		assert.Len(t, merged, len(DefaultRestrictedTerms)+1)
	})

	t.Run("nil user terms", func(t *testing.T) {
		merged := MergeRestrictions(nil)
		assert.Len(t, merged, len(DefaultRestrictedTerms))
	})
}
