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
	"context"
	"errors"
	"strings"

	"github.com/storyowl/storyowl/catalog"
	"github.com/storyowl/storyowl/core"
	"github.com/storyowl/storyowl/retrieval"
	"github.com/storyowl/storyowl/storage"
)

// runVector is the direct semantic tier: embed the seed, gather a
// candidate pool, score, diversify, re-rank. When the guard rejects the
// results it loosens the ask twice (drop the kind filter, then bias the
// seed toward a child audience) and finally tries the remote ANN index
// before falling through to category search.
func (o *Orchestrator) runVector(ctx context.Context, t *turn) (*Reply, state) {
	next := stateCategory
	if t.plan.text == "" {
		return nil, next
	}

	queryVec, err := o.embedder.EmbedText(ctx, t.plan.text)
	if err != nil {
		o.logger.Warn("seed embedding failed, falling through",
			"seed", t.plan.text, "err", err)
		return nil, next
	}

	filter := o.vectorFilter(t)

	if items, ok := o.vectorAttempt(ctx, t, queryVec, filter); ok {
		return o.finishList(ctx, t, items, core.StrategyVector, pageCursor{}), stateVector
	}

	if filter.Kind != 0 {
		loosened := *filter
		loosened.Kind = 0
		if items, ok := o.vectorAttempt(ctx, t, queryVec, &loosened); ok {
			return o.finishList(ctx, t, items, core.StrategyVector, pageCursor{}), stateVector
		}
	}

	if biased := ensureForKids(t.plan.text); biased != t.plan.text {
		if biasedVec, embedErr := o.embedder.EmbedText(ctx, biased); embedErr == nil {
			if items, ok := o.vectorAttempt(ctx, t, biasedVec, filter); ok {
				return o.finishList(ctx, t, items, core.StrategyVector, pageCursor{}), stateVector
			}
		}
	}

	if items, ok := o.annAttempt(ctx, t, queryVec, filter); ok {
		return o.finishList(ctx, t, items, core.StrategyVector, pageCursor{}), stateVector
	}

	o.logger.Info("vector tier low confidence, falling through",
		"seed", t.plan.text)
	return nil, next
}

// vectorFilter builds the storage filter for this turn, excluding
// everything the session has already shown and anything carrying a
// restricted tag.
func (o *Orchestrator) vectorFilter(t *turn) *storage.ItemFilter {
	filter := &storage.ItemFilter{
		Kind:        t.plan.kind,
		Age:         t.req.Age,
		ExcludeTags: t.restricted,
	}
	if t.prior != nil && len(t.prior.SeenIds) > 0 {
		filter.ExcludeIds = t.prior.SeenSet()
	}
	return filter
}

// hasRestrictedTag reports whether the item carries any term from the
// turn's restriction set. Tag comparison is case-insensitive, matching
// the storage-side filter.
func hasRestrictedTag(item *core.Item, terms []string) bool {
	for _, term := range terms {
		for _, tag := range item.Tags {
			if strings.EqualFold(tag, term) {
				return true
			}
		}
	}
	return false
}

// dropRestrictedTags filters out items carrying a restricted tag. Applied
// to item lists that bypass the storage filter, such as remote sources.
func dropRestrictedTags(items []*core.Item, terms []string) []*core.Item {
	kept := items[:0:0]
	for _, item := range items {
		if hasRestrictedTag(item, terms) {
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

// vectorAttempt runs one gather/score/diversify/rerank pass. Returns false
// when retrieval fails or the confidence guard rejects the pool.
func (o *Orchestrator) vectorAttempt(ctx context.Context, t *turn, queryVec []float32, filter *storage.ItemFilter) ([]*core.Item, bool) {
	seeds := [][]float32{queryVec}
	if t.req.Personalize && t.profile != nil && len(t.profile.Vector) > 0 {
		seeds = append(seeds, t.profile.Vector)
	}

	candidates, err := o.retriever.Gather(ctx, seeds, o.config.Limit, filter)
	if err != nil {
		o.logger.Warn("candidate gather failed", "err", err)
		return nil, false
	}
	return o.rankCandidates(t, candidates, queryVec)
}

// annAttempt queries the remote ANN index and runs the same ranking pass
// over its results.
func (o *Orchestrator) annAttempt(ctx context.Context, t *turn, queryVec []float32, filter *storage.ItemFilter) ([]*core.Item, bool) {
	if o.ann == nil {
		return nil, false
	}

	scored, err := o.ann.FindNearest(ctx, queryVec, t.plan.kind, o.retriever.Config().PoolSize(o.config.Limit))
	if err != nil {
		o.logger.Warn("remote vector search failed", "err", err)
		return nil, false
	}

	kept := scored[:0:0]
	for _, s := range scored {
		if filter.ExcludeIds[s.Item.SourceId] {
			continue
		}
		if !s.Item.SuitableForAge(t.req.Age) {
			continue
		}
		if hasRestrictedTag(s.Item, t.restricted) {
			continue
		}
		kept = append(kept, s)
	}
	// Remote items carry no vectors, so keep the index's similarity as-is.
	return o.rankCandidates(t, retrieval.NewCandidates(kept), nil)
}

// rankCandidates scores, diversifies, and re-ranks a candidate pool,
// applying the strict topic filter to the final picks.
func (o *Orchestrator) rankCandidates(t *turn, candidates []*retrieval.Candidate, queryVec []float32) ([]*core.Item, bool) {
	if len(candidates) == 0 {
		return nil, false
	}

	interests := t.plan.interestTerms(t.profile)
	retrieval.ScoreAll(candidates, retrieval.ScoreContext{
		QueryVector: queryVec,
		Interests:   interests,
		Age:         t.req.Age,
		Weights:     retrieval.WeightsFor(t.req.Personalize, t.profile),
	})

	lambda := o.retriever.Config().LambdaFor(t.req.Personalize)
	picked := retrieval.Diversify(candidates, o.config.Limit, lambda)

	if err := retrieval.Rerank(picked, t.plan.text, o.retriever.Config()); err != nil {
		if !errors.Is(err, retrieval.ErrLowConfidence) {
			o.logger.Warn("rerank failed", "err", err)
		}
		return nil, false
	}

	items := make([]*core.Item, len(picked))
	for i, c := range picked {
		items[i] = c.Item
	}
	if t.plan.topic != "" {
		items = catalog.FilterByTopic(items, t.plan.topic)
	}
	if len(items) == 0 {
		return nil, false
	}
	return items, true
}

// interestTerms unions the profile's interests with this turn's topic
// label for the scorer's overlap term.
func (p seedPlan) interestTerms(profile *core.UserProfile) []string {
	var terms []string
	if profile != nil {
		terms = append(terms, profile.Interests...)
	}
	if p.topic != "" {
		terms = append(terms, p.topic)
	}
	return terms
}
