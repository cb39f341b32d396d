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


package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/storyowl/storyowl/ai"
	"github.com/storyowl/storyowl/chat"
	"github.com/storyowl/storyowl/core"
	"github.com/storyowl/storyowl/ingest"
	"github.com/storyowl/storyowl/profile"
	"github.com/storyowl/storyowl/retrieval"
	"github.com/storyowl/storyowl/storage"
)

// Server holds the HTTP handlers over the engine's components.
type Server struct {
	orchestrator *chat.Orchestrator
	pipeline     *ingest.Pipeline
	rebuilder    *profile.Rebuilder
	retriever    *retrieval.Retriever
	embedder     ai.Embedder
	logger       *slog.Logger
}

// New creates the HTTP server facade. Any component may be nil; its
// endpoints then answer 503.
func New(orchestrator *chat.Orchestrator, pipeline *ingest.Pipeline, rebuilder *profile.Rebuilder, retriever *retrieval.Retriever, embedder ai.Embedder) *Server {
	return &Server{
		orchestrator: orchestrator,
		pipeline:     pipeline,
		rebuilder:    rebuilder,
		retriever:    retriever,
		embedder:     embedder,
		logger:       slog.Default().With("component", "server"),
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Post("/chat/more", s.handleChatMore)
		r.Post("/search", s.handleSearch)
		r.Post("/ingest", s.handleIngest)
		r.Post("/profile/rebuild", s.handleProfileRebuild)
	})
	return r
}

type chatRequest struct {
	UserId      string `json:"userId"`
	SessionKey  string `json:"sessionKey"`
	Text        string `json:"text"`
	Category    string `json:"category"`
	Type        string `json:"type"`
	Personalize bool   `json:"personalize"`
	Role        string `json:"role"`
	Age         int    `json:"age"`
	Lang        string `json:"lang"`
}

type chatResponse struct {
	Outcome    string      `json:"outcome"`
	Text       string      `json:"text"`
	Cards      []chat.Card `json:"cards"`
	Strategy   string      `json:"strategy"`
	SessionKey string      `json:"sessionKey"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	s.serveChat(w, r, func(ctx context.Context, req *chat.Request) (*chat.Reply, error) {
		return s.orchestrator.Respond(ctx, req)
	})
}

func (s *Server) handleChatMore(w http.ResponseWriter, r *http.Request) {
	s.serveChat(w, r, func(ctx context.Context, req *chat.Request) (*chat.Reply, error) {
		return s.orchestrator.More(ctx, req)
	})
}

type turnFunc func(ctx context.Context, req *chat.Request) (*chat.Reply, error)

func (s *Server) serveChat(w http.ResponseWriter, r *http.Request, turn turnFunc) {
	if s.orchestrator == nil {
		respondError(w, http.StatusServiceUnavailable, "chat is not configured")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// A missing session key starts a fresh conversation.
	if req.SessionKey == "" {
		req.SessionKey = uuid.NewString()
	}

	reply, err := turn(r.Context(), &chat.Request{
		UserId:      req.UserId,
		SessionKey:  req.SessionKey,
		Text:        req.Text,
		Category:    req.Category,
		Kind:        core.ParseKind(req.Type),
		Personalize: req.Personalize,
		Role:        core.ParseRole(req.Role),
		Age:         req.Age,
		Lang:        req.Lang,
	})
	if err != nil {
		switch {
		case errors.Is(err, core.ErrEmptyUserId), errors.Is(err, core.ErrEmptySessionKey):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error("chat turn", "user", req.UserId, "err", err)
			respondError(w, http.StatusInternalServerError, "chat turn failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, chatResponse{
		Outcome:    string(reply.Outcome),
		Text:       reply.Text,
		Cards:      reply.Cards,
		Strategy:   reply.Strategy.String(),
		SessionKey: req.SessionKey,
	})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Default().Error("encoding response", "err", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.retriever == nil || s.embedder == nil {
		respondError(w, http.StatusServiceUnavailable, "search is not configured")
		return
	}

	var req struct {
		Query string `json:"query"`
		Type  string `json:"type"`
		Limit int    `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.Limit <= 0 {
		req.Limit = 6
	}

	vector, err := s.embedder.EmbedText(r.Context(), req.Query)
	if err != nil {
		s.logger.Error("embedding search query", "err", err)
		respondError(w, http.StatusBadGateway, "embedding provider unavailable")
		return
	}

	scored, err := s.retriever.FetchNearest(r.Context(), vector, req.Limit, &storage.ItemFilter{
		Kind: core.ParseKind(req.Type),
	})
	if err != nil {
		s.logger.Error("vector search", "err", err)
		respondError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if len(scored) > req.Limit {
		scored = scored[:req.Limit]
	}

	type hit struct {
		Id         string   `json:"id"`
		Kind       string   `json:"kind"`
		Title      string   `json:"title"`
		Authors    []string `json:"authors,omitempty"`
		Thumb      string   `json:"thumb,omitempty"`
		Link       string   `json:"link,omitempty"`
		Similarity float32  `json:"similarity"`
	}
	hits := make([]hit, len(scored))
	for i, sc := range scored {
		hits[i] = hit{
			Id:         sc.Item.SourceId,
			Kind:       sc.Item.Kind.String(),
			Title:      sc.Item.Title,
			Authors:    sc.Item.Authors,
			Thumb:      sc.Item.Thumb,
			Link:       sc.Item.Link,
			Similarity: sc.Similarity,
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": hits})
}

type ingestItem struct {
	Id          string   `json:"id"`
	Kind        string   `json:"kind"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	AgeMin      int      `json:"ageMin"`
	AgeMax      int      `json:"ageMax"`
	Thumb       string   `json:"thumb"`
	Link        string   `json:"link"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if s.pipeline == nil {
		respondError(w, http.StatusServiceUnavailable, "ingestion is not configured")
		return
	}

	var req struct {
		Items []ingestItem `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]*core.Item, len(req.Items))
	for i, raw := range req.Items {
		items[i] = &core.Item{
			SourceId:    raw.Id,
			Kind:        core.ParseKind(raw.Kind),
			Title:       raw.Title,
			Authors:     raw.Authors,
			Description: raw.Description,
			Tags:        raw.Tags,
			AgeMin:      raw.AgeMin,
			AgeMax:      raw.AgeMax,
			Thumb:       raw.Thumb,
			Link:        raw.Link,
		}
	}

	stored, err := s.pipeline.Ingest(r.Context(), items...)
	if err != nil {
		if errors.Is(err, core.ErrInvalidItem) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("ingesting items", "err", err)
		respondError(w, http.StatusBadGateway, "ingestion failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"ingested": len(stored)})
}

func (s *Server) handleProfileRebuild(w http.ResponseWriter, r *http.Request) {
	if s.rebuilder == nil {
		respondError(w, http.StatusServiceUnavailable, "profile rebuild is not configured")
		return
	}

	var req struct {
		UserId         string   `json:"userId"`
		Role           string   `json:"role"`
		Age            int      `json:"age"`
		Interests      []string `json:"interests"`
		Restrictions   []string `json:"restrictions"`
		FavouriteTexts []string `json:"favouriteTexts"`
		ActivityTexts  []string `json:"activityTexts"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rebuilt, err := s.rebuilder.Rebuild(r.Context(), profile.RebuildInput{
		UserId:         req.UserId,
		Role:           core.ParseRole(req.Role),
		Age:            req.Age,
		Interests:      req.Interests,
		Restrictions:   req.Restrictions,
		FavouriteTexts: req.FavouriteTexts,
		ActivityTexts:  req.ActivityTexts,
	})
	if err != nil {
		switch {
		case errors.Is(err, core.ErrEmptyUserId), errors.Is(err, profile.ErrNoSignals):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error("rebuilding profile", "user", req.UserId, "err", err)
			respondError(w, http.StatusBadGateway, "profile rebuild failed")
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"userId":     rebuilt.UserId,
		"dimensions": len(rebuilt.Vector),
		"favourites": rebuilt.FavouriteCount,
		"activities": rebuilt.ActivityCount,
	})
}
