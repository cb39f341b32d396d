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


package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/storyowl/storyowl/core"
	"github.com/storyowl/storyowl/storage"
)

// VectorSearchClient queries a remote ANN search endpoint. It backs the
// direct-vector tier when the local catalog has no embedded items, keeping
// the cascade alive while an index is still being built.
type VectorSearchClient struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewVectorSearchClient creates a client for a remote ANN endpoint.
func NewVectorSearchClient(endpoint string, client *http.Client) *VectorSearchClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &VectorSearchClient{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		client:   client,
		logger:   slog.Default().With("component", "vector-search-client"),
	}
}

type annRequest struct {
	Vector []float32 `json:"vector"`
	Kind   string    `json:"kind,omitempty"`
	Limit  int       `json:"limit"`
}

type annItem struct {
	Id          string   `json:"id"`
	Kind        string   `json:"kind"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Thumb       string   `json:"thumb"`
	Link        string   `json:"link"`
	Similarity  float32  `json:"similarity"`
}

type annResponse struct {
	Items []annItem `json:"items"`
}

// FindNearest posts the query vector and returns scored items, closest
// first as ranked by the remote index.
func (c *VectorSearchClient) FindNearest(ctx context.Context, vector []float32, kind core.Kind, limit int) ([]*storage.ScoredItem, error) {
	body, err := json.Marshal(annRequest{Vector: vector, Kind: kind.String(), Limit: limit})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	var data annResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}

	results := make([]*storage.ScoredItem, 0, len(data.Items))
	for _, raw := range data.Items {
		if raw.Id == "" || raw.Title == "" {
			continue
		}
		k := core.ParseKind(raw.Kind)
		if k == 0 {
			k = kind
		}
		results = append(results, &storage.ScoredItem{
			Item: &core.Item{
				SourceId:    raw.Id,
				Kind:        k,
				Title:       raw.Title,
				Authors:     raw.Authors,
				Description: raw.Description,
				Tags:        raw.Tags,
				Thumb:       raw.Thumb,
				Link:        raw.Link,
			},
			Similarity: raw.Similarity,
		})
	}
	return results, nil
}
