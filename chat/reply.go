package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/storyowl/storyowl/core"
)

const (
	blockedText   = "Sorry, I can't help with that. Let's find something fun instead - how about a story or a video?"
	clarifyText   = "I'd love to help! Tell me a topic you like - dinosaurs, space, animals - or pick books or videos."
	welcomeText   = "Hi there! I can find books and videos for you. Here are some favorites to get started:"
	timeoutText   = "Sorry, that took longer than it should have. Please try asking again!"
	foundText     = "Here's what I found for you:"
	moreText      = "Here are some more:"
	noMoreText    = "That's everything I have on this for now - want to try a different topic?"
	noResultsText = "I couldn't find anything on that just now. Want to try a different topic?"
)

func (o *Orchestrator) blockedReply() *Reply {
	return &Reply{Outcome: OutcomeBlocked, Text: blockedText}
}

func (o *Orchestrator) clarifyReply() *Reply {
	return &Reply{Outcome: OutcomeClarify, Text: clarifyText}
}

func (o *Orchestrator) timeoutReply() *Reply {
	return &Reply{Outcome: OutcomeTimeout, Text: timeoutText}
}

// cardFor flattens an item into its reply card.
func cardFor(item *core.Item) Card {
	return Card{
		SourceId: item.SourceId,
		Title:    item.Title,
		Subtitle: strings.Join(item.Authors, ", "),
		Thumb:    item.Thumb,
		Link:     item.Link,
		Kind:     item.Kind.String(),
	}
}

// summaryText renders the numbered plain-text list that accompanies the
// cards, for surfaces that can only show text.
func summaryText(intro string, cards []Card) string {
	var b strings.Builder
	b.WriteString(intro)
	for i, card := range cards {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%d. %s", i+1, card.Title)
		if card.Subtitle != "" {
			b.WriteString(" - ")
			b.WriteString(card.Subtitle)
		}
	}
	return b.String()
}

// pageCursor is where the next continuation turn should resume paging.
type pageCursor struct {
	offset int
	token  string
}

// finishList builds the terminal list reply for a tier and persists the
// updated continuation state. A failed state save is logged, not fatal:
// the user still gets their list, only dedup history is lost.
func (o *Orchestrator) finishList(ctx context.Context, t *turn, items []*core.Item, strategy core.Strategy, cursor pageCursor) *Reply {
	cards := make([]Card, len(items))
	summaries := make([]core.ItemSummary, len(items))
	ids := make([]string, len(items))
	for i, item := range items {
		cards[i] = cardFor(item)
		summaries[i] = core.ItemSummary{
			SourceId: item.SourceId,
			Title:    item.Title,
			Thumb:    item.Thumb,
			Kind:     item.Kind,
		}
		ids[i] = item.SourceId
	}

	st := t.prior
	if st == nil {
		st = &core.ContinuationState{
			UserKey:    t.req.UserId,
			SessionKey: t.req.SessionKey,
		}
	}
	st.Strategy = strategy
	st.Kind = t.plan.kind
	st.Category = t.plan.label()
	st.SeedQuery = t.plan.text
	st.LastItems = summaries
	if len(summaries) > 0 {
		st.SeedTitle = summaries[0].Title
	}
	st.NextOffset = cursor.offset
	st.PageToken = cursor.token
	st.MarkSeen(ids...)

	if err := o.sessions.SaveState(ctx, st); err != nil {
		o.logger.Error("saving session state",
			"user", t.req.UserId, "session", t.req.SessionKey, "err", err)
	}

	return &Reply{
		Outcome:  OutcomeList,
		Text:     summaryText(foundText, cards),
		Cards:    cards,
		Strategy: strategy,
		State:    st,
	}
}

// label returns the category/topic name remembered between turns.
func (p seedPlan) label() string {
	if p.category != "" {
		return p.category
	}
	return p.topic
}
