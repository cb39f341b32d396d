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

	"github.com/storyowl/storyowl/catalog"
	"github.com/storyowl/storyowl/core"
	"github.com/storyowl/storyowl/personalize"
)

// More continues the previous turn: same strategy, fresh items only. The
// returned ids are disjoint from everything the session has already been
// shown. Without a prior turn there is nothing to continue, so the user
// gets the clarifying prompt instead.
func (o *Orchestrator) More(ctx context.Context, req *Request) (*Reply, error) {
	if req == nil || req.UserId == "" {
		return nil, core.ErrEmptyUserId
	}
	if req.SessionKey == "" {
		return nil, core.ErrEmptySessionKey
	}

	ctx, cancel := context.WithTimeout(ctx, o.config.SoftTimeout)
	defer cancel()

	t := &turn{req: req}
	t.profile = o.loadProfile(ctx, req.UserId)
	t.prior = o.loadState(ctx, req.UserId, req.SessionKey)
	t.restricted = restrictionsFor(t.profile)
	if t.prior == nil || t.prior.Strategy == core.StrategyNone && t.prior.SeedQuery == "" && t.prior.Category == "" {
		return o.clarifyReply(), nil
	}
	t.plan = planFromState(t.prior)

	var reply *Reply
	switch t.prior.Strategy {
	case core.StrategyPersonalized:
		reply = o.morePersonalized(ctx, t)
	case core.StrategyVector:
		reply = o.moreVector(ctx, t)
	default:
		reply = o.moreCategory(ctx, t)
	}
	if reply == nil {
		reply = o.moreCategory(ctx, t)
	}
	return reply, nil
}

// planFromState reconstructs the retrieval plan the previous turn ran with.
func planFromState(st *core.ContinuationState) seedPlan {
	plan := seedPlan{
		text:  st.SeedQuery,
		topic: st.Category,
		kind:  st.Kind,
	}
	if catalog.IsKnownGenre(st.Category) {
		plan.category = st.Category
	}
	return plan
}

// morePersonalized re-calls the personalizer with the accumulated
// exclusion list. Returns nil to fall through to category paging.
func (o *Orchestrator) morePersonalized(ctx context.Context, t *turn) *Reply {
	if o.personalizer == nil {
		return nil
	}

	resp, err := o.personalizer.Recommend(ctx, personalize.Request{
		UserId:     t.req.UserId,
		Query:      t.plan.text,
		Kind:       t.plan.kind,
		Topic:      t.plan.topic,
		ExcludeIds: t.prior.SeenIds,
		Limit:      o.config.Limit,
	})
	if err != nil {
		o.logger.Warn("personalizer unavailable on continuation", "err", err)
		return nil
	}
	if resp.Mode == personalize.ModeBlocked {
		return o.blockedReply()
	}

	// The exclusion list is advisory; enforce disjointness and the
	// restricted-tag rule locally too.
	seen := t.prior.SeenSet()
	fresh := make([]*core.Item, 0, len(resp.Items))
	for _, item := range resp.Items {
		if seen[item.SourceId] {
			continue
		}
		fresh = append(fresh, item)
	}
	fresh = dropRestrictedTags(fresh, t.restricted)
	if len(fresh) == 0 {
		return nil
	}
	if len(fresh) > o.config.Limit {
		fresh = fresh[:o.config.Limit]
	}

	reply := o.finishList(ctx, t, fresh, core.StrategyPersonalized, pageCursor{})
	reply.Text = summaryText(moreText, reply.Cards)
	return reply
}

// moreVector re-runs direct retrieval with the seen set excluded. Returns
// nil to fall through to category paging.
func (o *Orchestrator) moreVector(ctx context.Context, t *turn) *Reply {
	if t.plan.text == "" {
		return nil
	}

	queryVec, err := o.embedder.EmbedText(ctx, t.plan.text)
	if err != nil {
		o.logger.Warn("seed embedding failed on continuation", "err", err)
		return nil
	}

	items, ok := o.vectorAttempt(ctx, t, queryVec, o.vectorFilter(t))
	if !ok {
		return nil
	}
	reply := o.finishList(ctx, t, items, core.StrategyVector, pageCursor{})
	reply.Text = summaryText(moreText, reply.Cards)
	return reply
}

// moreCategory pages forward through the catalog sources: up to MaxPages
// physical pages or until FreshTarget fresh items are collected, whichever
// comes first.
func (o *Orchestrator) moreCategory(ctx context.Context, t *turn) *Reply {
	if o.sources == nil || t.plan.label() == "" && t.plan.text == "" {
		return o.noMoreReply(t)
	}

	cursor := pageCursor{offset: t.prior.NextOffset, token: t.prior.PageToken}
	collected := make([]*core.Item, 0, o.config.Limit)
	inList := make(map[string]bool, o.config.Limit)

	for page := 0; page < o.config.MaxPages && len(collected) < o.config.FreshTarget; page++ {
		if ctx.Err() != nil {
			break
		}
		fresh, next, exhausted, err := o.searchCategoryPage(ctx, t, cursor)
		if err != nil {
			o.logger.Warn("category paging failed", "err", err)
			break
		}
		cursor = next
		for _, item := range fresh {
			if inList[item.SourceId] {
				continue
			}
			inList[item.SourceId] = true
			collected = append(collected, item)
		}
		if exhausted {
			break
		}
	}

	if len(collected) == 0 {
		return o.noMoreReply(t)
	}
	if len(collected) > o.config.Limit {
		collected = collected[:o.config.Limit]
	}
	reply := o.finishList(ctx, t, collected, core.StrategyCategory, cursor)
	reply.Text = summaryText(moreText, reply.Cards)
	return reply
}

// noMoreReply ends a continuation turn that found nothing fresh, keeping
// the session state intact for a change of topic.
func (o *Orchestrator) noMoreReply(t *turn) *Reply {
	return &Reply{
		Outcome:  OutcomeList,
		Text:     noMoreText,
		Strategy: t.prior.Strategy,
		State:    t.prior,
	}
}
