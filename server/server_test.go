package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/storyowl/storyowl/ai/mock"
	"github.com/storyowl/storyowl/chat"
	"github.com/storyowl/storyowl/core"
	"github.com/storyowl/storyowl/ingest"
	"github.com/storyowl/storyowl/profile"
	"github.com/storyowl/storyowl/retrieval"
	"github.com/storyowl/storyowl/storage"
	"github.com/storyowl/storyowl/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serverEnv struct {
	handler  http.Handler
	items    storage.ItemRepository
	embedder *mock.MockEmbedder
}

func newServerEnv(t *testing.T) *serverEnv {
	t.Helper()
	items, profiles, sessions, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	retriever, err := retrieval.NewRetriever(items)
	require.NoError(t, err)
	t.Cleanup(retriever.Release)

	embedder := mock.NewMockEmbedder()
	orchestrator, err := chat.NewOrchestrator(embedder, retriever, sessions, chat.WithProfiles(profiles))
	require.NoError(t, err)

	pipeline, err := ingest.NewPipeline(items, mock.NewMockProviderWithEmbedder(embedder))
	require.NoError(t, err)
	t.Cleanup(pipeline.Release)

	rebuilder, err := profile.NewRebuilder(embedder, profiles)
	require.NoError(t, err)

	srv := New(orchestrator, pipeline, rebuilder, retriever, embedder)
	return &serverEnv{
		handler:  srv.Routes(),
		items:    items,
		embedder: embedder,
	}
}

func (e *serverEnv) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func (e *serverEnv) seedDinoCatalog(t *testing.T, n int) {
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

func TestHealthEndpoint(t *testing.T) {
	env := newServerEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestChatGeneratesSessionKey(t *testing.T) {
	env := newServerEnv(t)

	rec := env.post(t, "/api/v1/chat", map[string]any{
		"userId": "u1",
		"text":   "hi",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "clarify", body["outcome"])
	assert.NotEmpty(t, body["sessionKey"])
}

func TestChatRequiresUser(t *testing.T) {
	env := newServerEnv(t)

	rec := env.post(t, "/api/v1/chat", map[string]any{"text": "dinosaur books"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatVectorTurn(t *testing.T) {
	env := newServerEnv(t)
	env.seedDinoCatalog(t, 4)

	rec := env.post(t, "/api/v1/chat", map[string]any{
		"userId":     "u1",
		"sessionKey": "s1",
		"text":       "dinosaur books",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "list", body["outcome"])
	assert.Equal(t, "vector", body["strategy"])
	assert.Equal(t, "s1", body["sessionKey"])
	cards, ok := body["cards"].([]any)
	require.True(t, ok)
	assert.NotEmpty(t, cards)
}

func TestChatMoreContinuesSession(t *testing.T) {
	env := newServerEnv(t)
	env.seedDinoCatalog(t, 10)

	first := env.post(t, "/api/v1/chat", map[string]any{
		"userId":     "u1",
		"sessionKey": "s1",
		"text":       "dinosaur books",
	})
	require.Equal(t, http.StatusOK, first.Code)

	more := env.post(t, "/api/v1/chat/more", map[string]any{
		"userId":     "u1",
		"sessionKey": "s1",
	})
	require.Equal(t, http.StatusOK, more.Code)

	shown := map[string]bool{}
	for _, raw := range decodeBody(t, first)["cards"].([]any) {
		shown[raw.(map[string]any)["id"].(string)] = true
	}
	for _, raw := range decodeBody(t, more)["cards"].([]any) {
		id := raw.(map[string]any)["id"].(string)
		assert.False(t, shown[id], "repeated item %s", id)
	}
}

func TestSearchEndpoint(t *testing.T) {
	env := newServerEnv(t)
	env.seedDinoCatalog(t, 5)

	rec := env.post(t, "/api/v1/search", map[string]any{
		"query": "dinosaur",
		"limit": 3,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	items, ok := decodeBody(t, rec)["items"].([]any)
	require.True(t, ok)
	assert.Len(t, items, 3)
	hit := items[0].(map[string]any)
	assert.Contains(t, hit["title"], "Dino")
	assert.Equal(t, "book", hit["kind"])
}

func TestSearchRequiresQuery(t *testing.T) {
	env := newServerEnv(t)

	rec := env.post(t, "/api/v1/search", map[string]any{"limit": 3})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestEndpoint(t *testing.T) {
	env := newServerEnv(t)

	rec := env.post(t, "/api/v1/ingest", map[string]any{
		"items": []map[string]any{
			{"id": "b1", "kind": "book", "title": "Space Cats"},
			{"id": "v1", "kind": "video", "title": "Train Songs"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decodeBody(t, rec)["ingested"])

	count, err := env.items.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestIngestRejectsInvalidItem(t *testing.T) {
	env := newServerEnv(t)

	rec := env.post(t, "/api/v1/ingest", map[string]any{
		"items": []map[string]any{
			{"id": "", "kind": "book", "title": "No Id"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfileRebuildEndpoint(t *testing.T) {
	env := newServerEnv(t)

	rec := env.post(t, "/api/v1/profile/rebuild", map[string]any{
		"userId":         "u1",
		"interests":      []string{"dinosaurs"},
		"favouriteTexts": []string{"The Big Dino Book"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "u1", body["userId"])
	assert.Greater(t, body["dimensions"], float64(0))
}

func TestProfileRebuildRequiresUser(t *testing.T) {
	env := newServerEnv(t)

	rec := env.post(t, "/api/v1/profile/rebuild", map[string]any{
		"interests": []string{"dinosaurs"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
