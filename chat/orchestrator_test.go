package chat

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/storyowl/storyowl/ai/mock"
	"github.com/storyowl/storyowl/catalog"
	"github.com/storyowl/storyowl/core"
	"github.com/storyowl/storyowl/personalize"
	"github.com/storyowl/storyowl/retrieval"
	"github.com/storyowl/storyowl/storage"
	"github.com/storyowl/storyowl/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pagedSource serves deterministic dino-titled items by offset, standing in
// for a real catalog.
type pagedSource struct {
	prefix string
	total  int
	calls  []catalog.Query
}

func (s *pagedSource) Name() string { return s.prefix }

func (s *pagedSource) Supports(kind core.Kind) bool { return true }

func (s *pagedSource) Search(ctx context.Context, q catalog.Query) (*catalog.Page, error) {
	s.calls = append(s.calls, q)
	var items []*core.Item
	for i := q.Offset; i < q.Offset+q.PageSize() && i < s.total; i++ {
		kind := q.Kind
		if kind == 0 {
			kind = core.KindBook
		}
		items = append(items, &core.Item{
			SourceId: fmt.Sprintf("%s-%d", s.prefix, i),
			Kind:     kind,
			Title:    fmt.Sprintf("Dino Tale %d", i),
		})
	}
	return &catalog.Page{Items: items, Source: s.prefix}, nil
}

// fakePersonalizer records the last request and plays back a scripted
// response.
type fakePersonalizer struct {
	resp *personalize.Response
	err  error
	last personalize.Request
}

func (f *fakePersonalizer) Recommend(ctx context.Context, req personalize.Request) (*personalize.Response, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type testEnv struct {
	orchestrator *Orchestrator
	items        storage.ItemRepository
	sessions     storage.SessionRepository
	profiles     storage.ProfileRepository
	embedder     *mock.MockEmbedder
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	items, profiles, sessions, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	retriever, err := retrieval.NewRetriever(items)
	require.NoError(t, err)
	t.Cleanup(retriever.Release)

	embedder := mock.NewMockEmbedder()
	opts = append([]Option{WithProfiles(profiles)}, opts...)
	orchestrator, err := NewOrchestrator(embedder, retriever, sessions, opts...)
	require.NoError(t, err)

	return &testEnv{
		orchestrator: orchestrator,
		items:        items,
		sessions:     sessions,
		profiles:     profiles,
		embedder:     embedder,
	}
}

// seedDinoCatalog ingests items whose vectors match whatever the test
// embedder returns, so direct retrieval scores them at full similarity.
func (e *testEnv) seedDinoCatalog(t *testing.T, n int) {
	t.Helper()
	vector := mock.DeterministicVector("dinosaur", 16)
	e.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return vector, nil
	}
	items := make([]*core.Item, n)
	for i := range items {
		items[i] = &core.Item{
			SourceId: fmt.Sprintf("dino-%d", i),
			Kind:     core.KindBook,
			Title:    fmt.Sprintf("The Big Dino Book %d", i),
			Tags:     []string{"dinosaurs"},
			Vector:   vector,
		}
	}
	_, err := e.items.PutItems(context.Background(), items...)
	require.NoError(t, err)
}

func baseRequest() *Request {
	return &Request{UserId: "u1", SessionKey: "s1"}
}

func TestRespondRequiresIdentifiers(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.orchestrator.Respond(context.Background(), &Request{SessionKey: "s1"})
	assert.ErrorIs(t, err, core.ErrEmptyUserId)

	_, err = env.orchestrator.Respond(context.Background(), &Request{UserId: "u1"})
	assert.ErrorIs(t, err, core.ErrEmptySessionKey)
}

func TestRespondBlocksRestrictedText(t *testing.T) {
	env := newTestEnv(t)

	req := baseRequest()
	req.Text = "I like blood and guns"
	reply, err := env.orchestrator.Respond(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, OutcomeBlocked, reply.Outcome)
	assert.Empty(t, reply.Cards)
	// No retrieval should have run.
	assert.Zero(t, env.embedder.CallCount())
}

func TestRespondParentPassesSafetyScreen(t *testing.T) {
	env := newTestEnv(t)

	req := baseRequest()
	req.Text = "I like blood and guns"
	req.Role = core.RoleParent
	reply, err := env.orchestrator.Respond(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, OutcomeBlocked, reply.Outcome)
}

func TestRespondBlocksRestrictedCategoryParam(t *testing.T) {
	env := newTestEnv(t)
	err := env.profiles.PutProfile(context.Background(), &core.UserProfile{
		UserId:       "u1",
		Restrictions: []string{"zombie"},
	})
	require.NoError(t, err)

	// The category parameter reaches catalog queries verbatim, so the
	// user-specific term must catch it even with an empty utterance.
	req := baseRequest()
	req.Category = "zombies"
	reply, err := env.orchestrator.Respond(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, OutcomeBlocked, reply.Outcome)
	assert.Empty(t, reply.Cards)
}

func TestRespondClarifiesOnLowInfo(t *testing.T) {
	env := newTestEnv(t)

	req := baseRequest()
	req.Text = "hi"
	reply, err := env.orchestrator.Respond(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, OutcomeClarify, reply.Outcome)
}

func TestRespondVectorTier(t *testing.T) {
	env := newTestEnv(t)
	env.seedDinoCatalog(t, 4)

	req := baseRequest()
	req.Text = "dinosaur books"
	reply, err := env.orchestrator.Respond(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, OutcomeList, reply.Outcome)
	assert.Equal(t, core.StrategyVector, reply.Strategy)
	require.NotEmpty(t, reply.Cards)
	assert.Contains(t, reply.Cards[0].Title, "Dino")

	state, err := env.sessions.LoadState(context.Background(), "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, core.StrategyVector, state.Strategy)
	assert.Equal(t, "dinosaur books", state.SeedQuery)
	assert.Len(t, state.SeenIds, len(reply.Cards))
}

func TestRespondVectorTierExcludesRestrictedTags(t *testing.T) {
	env := newTestEnv(t)
	env.seedDinoCatalog(t, 4)

	// Same vector as the dino items, but tagged with a default-restricted
	// term. Retrieval must never surface it for a child turn.
	_, err := env.items.PutItems(context.Background(), &core.Item{
		SourceId: "armory-1",
		Kind:     core.KindBook,
		Title:    "The Big Armory Book",
		Tags:     []string{"guns"},
		Vector:   mock.DeterministicVector("dinosaur", 16),
	})
	require.NoError(t, err)

	req := baseRequest()
	req.Text = "dinosaur books"
	reply, err := env.orchestrator.Respond(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, OutcomeList, reply.Outcome)
	require.NotEmpty(t, reply.Cards)
	for _, card := range reply.Cards {
		assert.NotEqual(t, "armory-1", card.SourceId)
	}
}

func TestRespondCategoryTierSkipsVector(t *testing.T) {
	source := &pagedSource{prefix: "app", total: 20}
	env := newTestEnv(t, WithSources(source))

	req := baseRequest()
	req.Category = "fiction"
	reply, err := env.orchestrator.Respond(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, OutcomeList, reply.Outcome)
	assert.Equal(t, core.StrategyCategory, reply.Strategy)
	assert.Len(t, reply.Cards, 6)
	// The vector tier never ran: nothing was embedded.
	assert.Zero(t, env.embedder.CallCount())

	require.Len(t, source.calls, 1)
	assert.Equal(t, "fiction", source.calls[0].Category)
	assert.Empty(t, source.calls[0].Keywords)

	state, err := env.sessions.LoadState(context.Background(), "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, 6, state.NextOffset)
}

// fixedSource serves one canned page regardless of the query.
type fixedSource struct {
	items []*core.Item
}

func (s *fixedSource) Name() string { return "fixed" }

func (s *fixedSource) Supports(kind core.Kind) bool { return true }

func (s *fixedSource) Search(ctx context.Context, q catalog.Query) (*catalog.Page, error) {
	return &catalog.Page{Items: s.items, Source: "fixed"}, nil
}

func TestRespondCategoryTierKeepsFullCanonicalPage(t *testing.T) {
	// A canonical-category page is already scoped by the source query, so
	// titles that do not repeat the category word must survive even when
	// enough others do for the title filter to stick.
	source := &fixedSource{items: []*core.Item{
		{SourceId: "f1", Kind: core.KindBook, Title: "Fun Fiction One"},
		{SourceId: "f2", Kind: core.KindBook, Title: "Fun Fiction Two"},
		{SourceId: "f3", Kind: core.KindBook, Title: "Fun Fiction Three"},
		{SourceId: "f4", Kind: core.KindBook, Title: "The Dragon Atlas"},
		{SourceId: "f5", Kind: core.KindBook, Title: "The Ocean Atlas"},
	}}
	env := newTestEnv(t, WithSources(source))

	req := baseRequest()
	req.Category = "fiction"
	reply, err := env.orchestrator.Respond(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, OutcomeList, reply.Outcome)
	require.Len(t, reply.Cards, 5)
	assert.Equal(t, "The Dragon Atlas", reply.Cards[3].Title)
}

func TestRespondFallsThroughToWelcome(t *testing.T) {
	env := newTestEnv(t) // empty catalog, no sources

	req := baseRequest()
	req.Text = "dinosaur books"
	reply, err := env.orchestrator.Respond(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, OutcomeWelcome, reply.Outcome)
}

func TestRespondPersonalizedTier(t *testing.T) {
	personalizer := &fakePersonalizer{resp: &personalize.Response{
		Mode: personalize.ModeRecommend,
		Items: []*core.Item{
			{SourceId: "p1", Kind: core.KindBook, Title: "Picked One"},
			{SourceId: "p2", Kind: core.KindBook, Title: "Picked Two"},
		},
	}}
	env := newTestEnv(t, WithPersonalizer(personalizer))

	req := baseRequest()
	req.Text = "dinosaur books"
	req.Personalize = true
	reply, err := env.orchestrator.Respond(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, OutcomeList, reply.Outcome)
	assert.Equal(t, core.StrategyPersonalized, reply.Strategy)
	assert.Len(t, reply.Cards, 2)
	assert.Equal(t, "u1", personalizer.last.UserId)
	assert.Equal(t, 6, personalizer.last.Limit)
}

func TestRespondPersonalizerBlockedShortCircuits(t *testing.T) {
	personalizer := &fakePersonalizer{resp: &personalize.Response{Mode: personalize.ModeBlocked}}
	env := newTestEnv(t, WithPersonalizer(personalizer))

	req := baseRequest()
	req.Text = "dinosaur books"
	req.Personalize = true
	reply, err := env.orchestrator.Respond(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, OutcomeBlocked, reply.Outcome)
}

func TestRespondPersonalizerErrorFallsThrough(t *testing.T) {
	personalizer := &fakePersonalizer{err: personalize.ErrUpstreamUnavailable}
	env := newTestEnv(t, WithPersonalizer(personalizer))
	env.seedDinoCatalog(t, 4)

	req := baseRequest()
	req.Text = "dinosaur books"
	req.Personalize = true
	reply, err := env.orchestrator.Respond(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, core.StrategyVector, reply.Strategy)
}

func TestRespondSoftTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SoftTimeout = time.Nanosecond
	env := newTestEnv(t, WithConfig(cfg))

	req := baseRequest()
	req.Text = "dinosaur books"
	reply, err := env.orchestrator.Respond(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, OutcomeTimeout, reply.Outcome)
}
