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


// Package safety implements restricted-term screening for child users.
//
// Matching is intentionally liberal for terms longer than three characters:
// "blood" should catch "bloodshed" and "bloody". Terms of three characters
// or fewer must start on a word boundary, so "gun" catches "guns" but "hi"
// never fires inside "chill".
package safety

import (
	"regexp"
	"strings"
)

// DefaultRestrictedTerms is the preset blocklist applied to every child
// account. User-specific terms are merged on top per request.
var DefaultRestrictedTerms = []string{
	"sex",
	"sexual",
	"porn",
	"porno",
	"pornography",
	"xxx",
	"naked",
	"nudity",
	"erotic",
	"bdsm",
	"fetish",
	"rape",
	"rapist",
	"nsfw",
	"18+",
	"adult content",
	"strip",
	"stripping",

	"gun",
	"guns",
	"weapon",
	"weapons",
	"shooting",
	"rifle",
	"pistol",
	"shotgun",
	"bomb",
	"explosive",

	"murder",
	"killer",
	"killing",
	"homicide",
	"gore",
	"gory",
	"torture",
	"beheading",

	"drug",
	"drugs",
	"cocaine",
	"heroin",
	"meth",
	"ecstasy",
	"weed",
	"marijuana",

	"gang",
	"gangs",
	"gangster",
	"mafia",
	"cartel",
}

// shortTermBoundary is the length at or below which a term requires word
// boundaries to match.
const shortTermBoundary = 3

// MergeRestrictions builds the effective restriction set for a request:
// the default blocklist plus any user-specific terms, lowercased, trimmed,
// and de-duplicated. Order of first occurrence is preserved.
func MergeRestrictions(userTerms []string) []string {
	merged := make([]string, 0, len(DefaultRestrictedTerms)+len(userTerms))
	seen := make(map[string]bool, len(DefaultRestrictedTerms)+len(userTerms))
	for _, t := range DefaultRestrictedTerms {
		addTerm(&merged, seen, t)
	}
	for _, t := range userTerms {
		addTerm(&merged, seen, t)
	}
	return merged
}

func addTerm(merged *[]string, seen map[string]bool, raw string) {
	t := strings.ToLower(strings.TrimSpace(raw))
	if t == "" || seen[t] {
		return
	}
	seen[t] = true
	*merged = append(*merged, t)
}

// FindRestrictedTerms returns the restricted terms that occur in text.
// Matching is case-insensitive. Short terms (length <= 3) must start on a
// word boundary, which still admits suffixed forms like "guns"; longer terms
// match as plain substrings so compound forms are caught too. The returned
// slice preserves the order of the restricted list.
func FindRestrictedTerms(text string, restricted []string) []string {
	if text == "" || len(restricted) == 0 {
		return nil
	}
	lower := strings.ToLower(text)

	var hits []string
	for _, raw := range restricted {
		term := strings.ToLower(strings.TrimSpace(raw))
		if term == "" {
			continue
		}
		if len(term) <= shortTermBoundary {
			pat := regexp.MustCompile(`\b` + regexp.QuoteMeta(term))
			if pat.MatchString(lower) {
				hits = append(hits, raw)
			}
			continue
		}
		if strings.Contains(lower, term) {
			hits = append(hits, raw)
		}
	}
	return hits
}
