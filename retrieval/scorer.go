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
	"math"
	"strings"

	"github.com/storyowl/storyowl/core"
	"github.com/storyowl/storyowl/storage"
)

// Candidate is the transient per-retrieval record: an item plus its scores.
// Created per call, discarded after the reply is built.
type Candidate struct {
	Item *core.Item

	// QuerySim is the cosine similarity between the query vector and the
	// item vector.
	QuerySim float32

	// InterestSim is the Jaccard overlap between item tags and the user's
	// interests plus any explicit topic label.
	InterestSim float32

	// DemographicFit is 1.0 when age constraints are satisfied or absent,
	// 0.5 otherwise (the age term averaged with a neutral language term).
	DemographicFit float32

	// Relevance is the blended score in [0,1].
	Relevance float32

	// TextBoost is the author/title boost assigned by the re-ranker.
	TextBoost float32

	// Final is the re-ranked score; zero until Rerank runs.
	Final float32
}

// NewCandidates converts scored retrieval results into candidates, seeding
// QuerySim with the retrieval similarity.
func NewCandidates(scored []*storage.ScoredItem) []*Candidate {
	out := make([]*Candidate, len(scored))
	for i, s := range scored {
		out[i] = &Candidate{Item: s.Item, QuerySim: s.Similarity}
	}
	return out
}

// Weights blends the three relevance factors. They are normalized to sum
// to 1 before use.
type Weights struct {
	Query       float32
	Interest    float32
	Demographic float32
}

// Normalize scales the weights to sum to 1. Zero weights fall back to the
// default blend.
func (w Weights) Normalize() Weights {
	sum := w.Query + w.Interest + w.Demographic
	if sum <= 0 {
		return Weights{Query: 0.60, Interest: 0.20, Demographic: 0.20}
	}
	return Weights{
		Query:       w.Query / sum,
		Interest:    w.Interest / sum,
		Demographic: w.Demographic / sum,
	}
}

// WeightsFor picks the blend for a request. Without personalization the
// query signal dominates. With personalization and a rich history the blend
// shifts taste-forward; with thin history it shifts halfway.
func WeightsFor(personalized bool, profile *core.UserProfile) Weights {
	if !personalized {
		return Weights{Query: 0.60, Interest: 0.20, Demographic: 0.20}
	}
	if profile.HasRichHistory() {
		return Weights{Query: 0.40, Interest: 0.45, Demographic: 0.15}
	}
	return Weights{Query: 0.50, Interest: 0.35, Demographic: 0.15}
}

// ScoreContext carries the per-request signals the scorer blends.
type ScoreContext struct {
	// QueryVector is the embedded seed text; nil when the turn had no
	// usable seed.
	QueryVector []float32

	// Interests is the union of profile interests and any explicit
	// topic/category label for this turn.
	Interests []string

	// Age is the child's age; zero means unknown.
	Age int

	// Weights is the blend to apply; normalized before use.
	Weights Weights
}

// ScoreAll computes the blended relevance for every candidate in place.
func ScoreAll(candidates []*Candidate, sctx ScoreContext) {
	w := sctx.Weights.Normalize()
	for _, c := range candidates {
		if sctx.QueryVector != nil {
			c.QuerySim = Cosine(sctx.QueryVector, c.Item.Vector)
		}
		c.InterestSim = Jaccard(c.Item.Tags, sctx.Interests)

		ageOK := float32(0)
		if c.Item.SuitableForAge(sctx.Age) {
			ageOK = 1
		}
		// Age term averaged with a neutral language term held at 1.
		c.DemographicFit = 0.5 * (ageOK + 1)

		c.Relevance = w.Query*c.QuerySim + w.Interest*c.InterestSim + w.Demographic*c.DemographicFit
	}
}

// Cosine computes the cosine similarity of two vectors. Returns 0 when
// either vector is empty or zero-length in magnitude.
func Cosine(a, b []float32) float32 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// Jaccard computes set overlap between two tag lists, case-insensitive.
// Returns 0 when either side is empty.
func Jaccard(a, b []string) float32 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := toSet(a)
	setB := toSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for t := range setA {
		if setB[t] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float32(intersection) / float32(union)
}

func toSet(terms []string) map[string]bool {
	set := make(map[string]bool, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			set[t] = true
		}
	}
	return set
}
