package personalize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/storyowl/storyowl/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientRecommend(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/recommend", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{
			"mode": "recommend",
			"items": [
				{"id": "p1", "kind": "book", "title": "Picked For You",
				 "authors": ["C. Curator"], "tags": ["adventure"]},
				{"id": "", "title": "dropped"}
			]
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client())
	resp, err := client.Recommend(context.Background(), Request{
		UserId:     "u1",
		Query:      "adventure books",
		Kind:       core.KindBook,
		ExcludeIds: []string{"old1", "old2"},
		Limit:      6,
	})
	require.NoError(t, err)

	assert.Equal(t, "u1", gotBody["userId"])
	assert.Equal(t, "adventure books", gotBody["query"])
	assert.Equal(t, "book", gotBody["type"])
	assert.Equal(t, []any{"old1", "old2"}, gotBody["excludeIds"])
	assert.Equal(t, float64(6), gotBody["limit"])

	assert.Equal(t, ModeRecommend, resp.Mode)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "p1", resp.Items[0].SourceId)
	assert.Equal(t, core.KindBook, resp.Items[0].Kind)
}

func TestClientBlockedMode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"mode": "blocked", "items": []}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client())
	resp, err := client.Recommend(context.Background(), Request{UserId: "u1", Limit: 6})
	require.NoError(t, err)
	assert.Equal(t, ModeBlocked, resp.Mode)
	assert.Empty(t, resp.Items)
}

func TestClientMissingModeDefaultsToRecommend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items": []}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client())
	resp, err := client.Recommend(context.Background(), Request{UserId: "u1", Limit: 6})
	require.NoError(t, err)
	assert.Equal(t, ModeRecommend, resp.Mode)
}

func TestClientUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client())
	_, err := client.Recommend(context.Background(), Request{UserId: "u1", Limit: 6})
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}
