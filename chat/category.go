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
	"github.com/storyowl/storyowl/safety"
)

// runCategory is the keyword tier: a canned query per canonical category,
// or the raw utterance as keywords, against the stacked catalog sources.
// This tier is terminal whenever it can run at all; an empty page still
// ends the turn with an honest "nothing found" rather than a greeting.
func (o *Orchestrator) runCategory(ctx context.Context, t *turn) (*Reply, state) {
	next := stateWelcome
	if o.sources == nil {
		return nil, next
	}
	if t.plan.label() == "" && t.plan.text == "" {
		return nil, next
	}

	// The resolved label is searched verbatim downstream, so screen it
	// again: an alias or a prior turn may have smuggled in a term the
	// utterance check never saw.
	if hits := safety.FindRestrictedTerms(t.plan.label(), t.restricted); len(hits) > 0 && t.role() != core.RoleParent {
		o.logger.Warn("blocked restricted category",
			"user", t.req.UserId, "category", t.plan.label(), "terms", hits)
		return o.blockedReply(), stateCategory
	}

	items, cursor, _, err := o.searchCategoryPage(ctx, t, pageCursor{})
	if err != nil {
		o.logger.Warn("category search failed, falling through", "err", err)
		return nil, next
	}
	if len(items) > o.config.Limit {
		items = items[:o.config.Limit]
	}

	reply := o.finishList(ctx, t, items, core.StrategyCategory, cursor)
	if len(items) == 0 {
		reply.Text = noResultsText
	}
	return reply, stateCategory
}

// searchCategoryPage pulls one physical page from the source stack,
// dropping already-seen and restricted-tagged items. Free-text topics get
// the strict topic filter on top; canonical categories are already scoped
// by the source query itself. exhausted reports a page with no raw items
// at all, meaning further paging is pointless.
func (o *Orchestrator) searchCategoryPage(ctx context.Context, t *turn, cursor pageCursor) (fresh []*core.Item, next pageCursor, exhausted bool, err error) {
	kind := t.plan.kind
	if kind == 0 {
		kind = core.KindBook
	}

	q := catalog.Query{
		Category:  t.plan.category,
		Kind:      kind,
		Lang:      t.req.Lang,
		Age:       t.req.Age,
		Limit:     o.config.PageSize,
		Offset:    cursor.offset,
		PageToken: cursor.token,
	}
	if t.plan.category == "" {
		q.Keywords = t.plan.text
	}

	page, err := o.sources.Search(ctx, q)
	if err != nil {
		return nil, cursor, false, err
	}

	next = pageCursor{
		offset: cursor.offset + o.config.PageSize,
		token:  page.NextPageToken,
	}

	var seen map[string]bool
	if t.prior != nil {
		seen = t.prior.SeenSet()
	}
	fresh = make([]*core.Item, 0, len(page.Items))
	for _, item := range page.Items {
		if seen[item.SourceId] {
			continue
		}
		if hasRestrictedTag(item, t.restricted) {
			continue
		}
		fresh = append(fresh, item)
	}

	if t.plan.topic != "" && t.plan.category == "" {
		fresh = catalog.FilterByTopic(fresh, t.plan.topic)
	}
	return fresh, next, len(page.Items) == 0, nil
}
