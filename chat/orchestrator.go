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
	"log/slog"
	"strings"

	"github.com/storyowl/storyowl/ai"
	"github.com/storyowl/storyowl/catalog"
	"github.com/storyowl/storyowl/core"
	"github.com/storyowl/storyowl/personalize"
	"github.com/storyowl/storyowl/retrieval"
	"github.com/storyowl/storyowl/safety"
	"github.com/storyowl/storyowl/storage"
)

// AnnSearcher is a remote nearest-neighbor index, used as the last resort
// of the direct vector tier when the local index yields nothing usable.
// Satisfied by catalog.VectorSearchClient.
type AnnSearcher interface {
	FindNearest(ctx context.Context, vector []float32, kind core.Kind, limit int) ([]*storage.ScoredItem, error)
}

// state names one tier of the cascade. Each turn walks the states in order
// through a single dispatch loop; a handler either returns a terminal reply
// or advances to the next state.
type state int

const (
	stateSafety state = iota
	stateSeed
	statePersonalized
	stateVector
	stateCategory
	stateWelcome
)

func (s state) String() string {
	switch s {
	case stateSafety:
		return "safety"
	case stateSeed:
		return "seed"
	case statePersonalized:
		return "personalized"
	case stateVector:
		return "vector"
	case stateCategory:
		return "category"
	case stateWelcome:
		return "welcome"
	default:
		return "unknown"
	}
}

// turn carries everything resolved so far for one request through the
// cascade. It exists per call; nothing here is shared between turns.
type turn struct {
	req        *Request
	profile    *core.UserProfile
	prior      *core.ContinuationState
	plan       seedPlan
	restricted []string
}

// role returns the effective account role for this turn, preferring the
// request over the stored profile.
func (t *turn) role() core.Role {
	if t.req.Role != 0 {
		return t.req.Role
	}
	if t.profile != nil {
		return t.profile.Role
	}
	return 0
}

// Orchestrator runs the recommendation cascade.
type Orchestrator struct {
	embedder     ai.Embedder
	retriever    *retrieval.Retriever
	sessions     storage.SessionRepository
	profiles     storage.ProfileRepository
	sources      catalog.Source
	ann          AnnSearcher
	personalizer personalize.Recommender
	config       *Config
	logger       *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithProfiles attaches the profile repository, enabling profile-seeded
// retrieval and per-user restrictions.
func WithProfiles(profiles storage.ProfileRepository) Option {
	return func(o *Orchestrator) error {
		o.profiles = profiles
		return nil
	}
}

// WithSources attaches the catalog source stack used by the
// category/keyword tier.
func WithSources(sources catalog.Source) Option {
	return func(o *Orchestrator) error {
		o.sources = sources
		return nil
	}
}

// WithPersonalizer attaches the external personalization service.
func WithPersonalizer(p personalize.Recommender) Option {
	return func(o *Orchestrator) error {
		o.personalizer = p
		return nil
	}
}

// WithVectorFallback attaches a remote ANN index tried when local vector
// retrieval comes up empty.
func WithVectorFallback(ann AnnSearcher) Option {
	return func(o *Orchestrator) error {
		o.ann = ann
		return nil
	}
}

// WithConfig replaces the orchestrator tunables.
func WithConfig(cfg *Config) Option {
	return func(o *Orchestrator) error {
		if cfg != nil {
			o.config = cfg
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewOrchestrator creates the cascade orchestrator. The embedder should
// already carry retry behavior (ai.NewRetryingEmbedder); the retriever and
// session repository are required, everything else is optional and its
// tier is skipped when absent.
func NewOrchestrator(embedder ai.Embedder, retriever *retrieval.Retriever, sessions storage.SessionRepository, opts ...Option) (*Orchestrator, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if sessions == nil {
		return nil, ErrSessionRepositoryRequired
	}

	o := &Orchestrator{
		embedder:  embedder,
		retriever: retriever,
		sessions:  sessions,
		config:    DefaultConfig(),
		logger:    slog.Default().With("component", "orchestrator"),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Config returns the active orchestrator parameters.
func (o *Orchestrator) Config() *Config {
	return o.config
}

// Respond runs one conversational turn through the cascade and returns the
// reply. The only errors returned are missing identifiers; everything
// upstream degrades into a later tier instead of failing the turn.
func (o *Orchestrator) Respond(ctx context.Context, req *Request) (*Reply, error) {
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

	s := stateSafety
	for {
		if ctx.Err() != nil {
			o.logger.Warn("turn exceeded soft timeout", "user", req.UserId, "state", s.String())
			return o.timeoutReply(), nil
		}

		var reply *Reply
		switch s {
		case stateSafety:
			reply, s = o.runSafety(t)
		case stateSeed:
			reply, s = o.runSeed(t)
		case statePersonalized:
			reply, s = o.runPersonalized(ctx, t)
		case stateVector:
			reply, s = o.runVector(ctx, t)
		case stateCategory:
			reply, s = o.runCategory(ctx, t)
		case stateWelcome:
			reply = o.runWelcome(ctx, t)
		}
		if reply != nil {
			return reply, nil
		}
	}
}

// loadProfile fetches the user's profile; a missing profile is normal.
func (o *Orchestrator) loadProfile(ctx context.Context, userId string) *core.UserProfile {
	if o.profiles == nil {
		return nil
	}
	profile, err := o.profiles.GetProfile(ctx, userId)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			o.logger.Error("loading profile", "user", userId, "err", err)
		}
		return nil
	}
	return profile
}

// loadState fetches the prior continuation state; a missing state is a
// fresh conversation.
func (o *Orchestrator) loadState(ctx context.Context, userKey, sessionKey string) *core.ContinuationState {
	st, err := o.sessions.LoadState(ctx, userKey, sessionKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			o.logger.Error("loading session state", "user", userKey, "err", err)
		}
		return nil
	}
	return st
}

// restrictionsFor merges the default blocklist with the profile's own
// terms. Computed once per turn and carried on it.
func restrictionsFor(profile *core.UserProfile) []string {
	var userTerms []string
	if profile != nil {
		userTerms = profile.Restrictions
	}
	return safety.MergeRestrictions(userTerms)
}

// runSafety screens every user-supplied fragment against the merged
// restriction set. The explicit category parameter reaches catalog queries
// verbatim, so it is screened alongside the utterance. A hit on a child
// account ends the turn with a decline; parent accounts pass.
func (o *Orchestrator) runSafety(t *turn) (*Reply, state) {
	text := strings.TrimSpace(t.req.Text + " " + t.req.Category)
	if len(text) > o.config.MaxSafetyTextLen {
		text = text[:o.config.MaxSafetyTextLen]
	}

	hits := safety.FindRestrictedTerms(text, t.restricted)
	if len(hits) == 0 {
		return nil, stateSeed
	}

	if t.role() == core.RoleParent {
		return nil, stateSeed
	}

	o.logger.Warn("blocked restricted request",
		"user", t.req.UserId, "session", t.req.SessionKey, "terms", hits)
	return o.blockedReply(), stateSafety
}

// runSeed resolves the retrieval intent. A turn with nothing to search on
// ends in a clarifying prompt.
func (o *Orchestrator) runSeed(t *turn) (*Reply, state) {
	t.plan = resolveSeed(t.req, t.prior)
	if t.plan.clarify {
		return o.clarifyReply(), stateSeed
	}
	return nil, statePersonalized
}

// runPersonalized asks the external personalizer when the turn requests it.
// A blocked mode ends the turn; errors and empty lists fall through.
func (o *Orchestrator) runPersonalized(ctx context.Context, t *turn) (*Reply, state) {
	next := stateVector
	if !t.req.Personalize || o.personalizer == nil {
		return nil, next
	}

	var exclude []string
	if t.prior != nil {
		exclude = t.prior.SeenIds
	}
	resp, err := o.personalizer.Recommend(ctx, personalize.Request{
		UserId:     t.req.UserId,
		Query:      t.req.Text,
		Kind:       t.plan.kind,
		Topic:      t.plan.topic,
		ExcludeIds: exclude,
		Limit:      o.config.Limit,
	})
	if err != nil {
		o.logger.Warn("personalizer unavailable, falling through", "err", err)
		return nil, next
	}
	if resp.Mode == personalize.ModeBlocked {
		o.logger.Warn("personalizer blocked request",
			"user", t.req.UserId, "session", t.req.SessionKey)
		return o.blockedReply(), statePersonalized
	}
	if len(resp.Items) == 0 {
		return nil, next
	}

	items := dropRestrictedTags(resp.Items, t.restricted)
	if len(items) == 0 {
		return nil, next
	}
	if len(items) > o.config.Limit {
		items = items[:o.config.Limit]
	}
	return o.finishList(ctx, t, items, core.StrategyPersonalized, pageCursor{}), statePersonalized
}

// runWelcome is the cascade floor: greet and show whatever is most recent
// in the catalog.
func (o *Orchestrator) runWelcome(ctx context.Context, t *turn) *Reply {
	candidates, err := o.retriever.Gather(ctx, nil, o.config.Limit, &storage.ItemFilter{
		Kind:        t.plan.kind,
		Age:         t.req.Age,
		ExcludeTags: t.restricted,
	})
	if err != nil || len(candidates) == 0 {
		if err != nil {
			o.logger.Error("welcome scan failed", "err", err)
		}
		return &Reply{Outcome: OutcomeWelcome, Text: welcomeText}
	}

	items := make([]*core.Item, 0, o.config.Limit)
	for _, c := range candidates {
		items = append(items, c.Item)
		if len(items) == o.config.Limit {
			break
		}
	}
	reply := o.finishList(ctx, t, items, core.StrategyNone, pageCursor{})
	reply.Outcome = OutcomeWelcome
	reply.Text = welcomeText + "\n" + reply.Text
	return reply
}
