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


package retrieval

import (
	"regexp"
	"slices"
	"strings"
)

// Author extraction patterns, tried in order:
// "books by X" / "book from X", then "X books", then a bare 2-4 token name.
var (
	authorByPattern   = regexp.MustCompile(`\bbooks?\s+(?:by|from)\s+([\p{L}\p{N}\s.\-'"&]+)$`)
	authorTailPattern = regexp.MustCompile(`^([\p{L}\p{N}\s.\-'"&]+)\s+books?$`)
	authorBarePattern = regexp.MustCompile(`^([a-z][a-z'.\-]+(?:\s+[a-z'.\-]+){1,3})$`)
)

// ExtractAuthorCandidate pulls a probable author name out of the raw query.
// Returns "" when the query doesn't look like an author ask.
func ExtractAuthorCandidate(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return ""
	}
	if m := authorByPattern.FindStringSubmatch(q); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := authorTailPattern.FindStringSubmatch(q); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := authorBarePattern.FindStringSubmatch(q); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// Rerank blends the raw vector similarity with textual author/title boosts:
//
//	final = 0.5*querySim + 0.5*max(authorBoost, titleBoost)
//
// authorBoost is 1.0 for an exact case-insensitive author match, 0.6 for a
// substring match; titleBoost is 0.5 when the title contains the raw query.
// Candidates are sorted by final score descending, stable within ties.
//
// Returns ErrLowConfidence when the best raw similarity is below
// cfg.BaseSimilarityFloor or no final score reaches cfg.FinalScoreFloor:
// the vector index has no content close enough to trust, and the cascade
// should try the next tier instead.
func Rerank(candidates []*Candidate, query string, cfg *Config) error {
	if len(candidates) == 0 {
		return ErrLowConfidence
	}

	author := ExtractAuthorCandidate(query)
	queryLower := strings.ToLower(strings.TrimSpace(query))

	var bestSim, bestFinal float32
	for _, c := range candidates {
		aBoost := authorBoost(c.Item.Authors, author)
		tBoost := float32(0)
		if queryLower != "" && strings.Contains(strings.ToLower(c.Item.Title), queryLower) {
			tBoost = 0.5
		}
		if aBoost > tBoost {
			c.TextBoost = aBoost
		} else {
			c.TextBoost = tBoost
		}
		c.Final = 0.5*c.QuerySim + 0.5*c.TextBoost

		if c.QuerySim > bestSim {
			bestSim = c.QuerySim
		}
		if c.Final > bestFinal {
			bestFinal = c.Final
		}
	}

	if bestSim < cfg.BaseSimilarityFloor {
		return ErrLowConfidence
	}
	if bestFinal < cfg.FinalScoreFloor {
		return ErrLowConfidence
	}

	slices.SortStableFunc(candidates, func(a, b *Candidate) int {
		if a.Final > b.Final {
			return -1
		}
		if a.Final < b.Final {
			return 1
		}
		return 0
	})
	return nil
}

func authorBoost(authors []string, candidate string) float32 {
	if candidate == "" || len(authors) == 0 {
		return 0
	}
	lower := strings.ToLower(candidate)
	for _, a := range authors {
		if strings.ToLower(a) == lower {
			return 1.0
		}
	}
	for _, a := range authors {
		if strings.Contains(strings.ToLower(a), lower) {
			return 0.6
		}
	}
	return 0
}
