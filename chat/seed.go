// Copyright 2025 Storyowl Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package chat

import (
	"regexp"
	"strings"

	"github.com/storyowl/storyowl/catalog"
	"github.com/storyowl/storyowl/core"
)

// intentStopwords are filler words stripped before judging whether an
// utterance carries enough signal to search on.
var intentStopwords = map[string]bool{
	"i": true, "me": true, "my": true, "a": true, "an": true, "the": true,
	"some": true, "any": true, "to": true, "for": true, "of": true,
	"and": true, "or": true, "please": true, "want": true, "would": true,
	"like": true, "love": true, "show": true, "find": true, "give": true,
	"recommend": true, "suggest": true, "something": true, "stuff": true,
	"about": true, "with": true, "can": true, "you": true, "do": true,
	"have": true, "get": true, "more": true, "watch": true, "read": true,
	"book": true, "books": true, "video": true, "videos": true,
}

var intentNonWord = regexp.MustCompile(`[^\p{L}\p{N}\s'&.-]+`)

// normalizeForIntent lowercases the utterance and strips punctuation noise,
// collapsing whitespace.
func normalizeForIntent(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	t = intentNonWord.ReplaceAllString(t, " ")
	return strings.Join(strings.Fields(t), " ")
}

// contentTokens returns the utterance tokens with filler words removed.
func contentTokens(text string) []string {
	var out []string
	for _, tok := range strings.Fields(normalizeForIntent(text)) {
		if !intentStopwords[tok] {
			out = append(out, tok)
		}
	}
	return out
}

// isLowInfo reports whether the utterance carries too little signal to
// embed: nothing beyond filler, or so few distinct characters that the
// seed would be noise.
func isLowInfo(text string) bool {
	tokens := contentTokens(text)
	if len(tokens) == 0 {
		return true
	}
	distinct := map[rune]bool{}
	for _, tok := range tokens {
		for _, r := range tok {
			distinct[r] = true
		}
	}
	return len(distinct) < 4
}

// inferKind guesses the desired media type from the utterance wording.
// Returns zero when the text names neither.
func inferKind(text string) core.Kind {
	t := normalizeForIntent(text)
	words := map[string]bool{}
	for _, tok := range strings.Fields(t) {
		words[tok] = true
	}
	switch {
	case words["book"] || words["books"] || words["story"] || words["stories"] || words["read"]:
		return core.KindBook
	case words["video"] || words["videos"] || words["watch"] || words["cartoon"] || words["cartoons"]:
		return core.KindVideo
	default:
		return 0
	}
}

// personalizedPhrases mark an utterance as asking for taste-based picks
// rather than a topic search.
var personalizedPhrases = []string{
	"for me",
	"recommend me",
	"i would like",
	"i like",
	"my favourites",
	"my favorites",
	"based on what i",
	"something new",
	"surprise me",
}

// WantsPersonalized reports whether the utterance itself asks for
// personalized picks, independent of the request flag.
func WantsPersonalized(text string) bool {
	t := normalizeForIntent(text)
	if t == "" {
		return false
	}
	for _, phrase := range personalizedPhrases {
		if strings.Contains(t, phrase) {
			return true
		}
	}
	return false
}

// ensureForKids appends a child-audience bias to a seed unless the text
// already carries one.
func ensureForKids(text string) string {
	t := strings.ToLower(text)
	if strings.Contains(t, "kid") || strings.Contains(t, "child") {
		return text
	}
	return text + " for kids"
}

// seedPlan is the resolved retrieval intent for one turn.
type seedPlan struct {
	// text is the embedding seed; empty means skip the vector tier.
	text string

	// topic is the label used for interest overlap and strict topic
	// filtering.
	topic string

	// category is the canonical genre when the turn resolves to one.
	category string

	// kind is the effective media type filter; zero means any.
	kind core.Kind

	// clarify means the turn carries too little to search on at all.
	clarify bool
}

// resolveSeed turns the raw request plus the prior turn's state into a
// retrieval plan. Resolution order: explicit category parameter, utterance
// text (which may itself name a genre), prior turn's seed, then a
// clarifying prompt.
func resolveSeed(req *Request, prior *core.ContinuationState) seedPlan {
	plan := seedPlan{kind: req.Kind}
	if plan.kind == 0 {
		plan.kind = inferKind(req.Text)
	}

	if req.Category != "" {
		plan.category = catalog.CanonicalGenre(req.Category)
	}

	text := strings.TrimSpace(req.Text)
	lowInfo := isLowInfo(text)

	if !lowInfo {
		// The whole utterance may just name a genre ("non-fiction").
		if plan.category == "" && catalog.IsKnownGenre(text) {
			plan.category = catalog.CanonicalGenre(text)
			plan.topic = plan.category
			return plan
		}
		plan.text = text
		if tokens := contentTokens(text); len(tokens) > 0 {
			plan.topic = strings.Join(tokens, " ")
		}
		return plan
	}

	if plan.category != "" {
		plan.topic = plan.category
		return plan
	}

	if prior != nil && prior.SeedQuery != "" {
		plan.text = prior.SeedQuery
		plan.topic = prior.Category
		if plan.kind == 0 {
			plan.kind = prior.Kind
		}
		return plan
	}
	if prior != nil && prior.Category != "" {
		plan.category = prior.Category
		plan.topic = prior.Category
		return plan
	}

	plan.clarify = true
	return plan
}
