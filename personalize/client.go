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


package personalize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/storyowl/storyowl/core"
)

var (
	// ErrUpstreamUnavailable indicates the personalizer could not be reached
	// or answered with a non-2xx status. The cascade treats it as an empty
	// result and falls through.
	ErrUpstreamUnavailable = errors.New("personalizer unavailable")
)

// Mode classifies a personalizer response.
type Mode string

const (
	// ModeRecommend is the normal case: the items are a recommendation list.
	ModeRecommend Mode = "recommend"

	// ModeBlocked means the personalizer's own safety layer refused the
	// query. It short-circuits the cascade into a decline reply.
	ModeBlocked Mode = "blocked"
)

// Request is one recommend call.
type Request struct {
	UserId     string
	Query      string
	Kind       core.Kind // zero means any
	Topic      string
	ExcludeIds []string
	Limit      int
}

// Response is the normalized personalizer answer.
type Response struct {
	Mode  Mode
	Items []*core.Item
}

// Recommender is the personalization service contract.
type Recommender interface {
	// Recommend returns a personalized item list for the user. An empty
	// item list with ModeRecommend is not an error.
	Recommend(ctx context.Context, req Request) (*Response, error)
}

// Client is the HTTP Recommender implementation.
type Client struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

var _ Recommender = (*Client)(nil)

// NewClient creates a personalizer client for the given endpoint.
func NewClient(endpoint string, client *http.Client) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		client:   client,
		logger:   slog.Default().With("component", "personalizer"),
	}
}

type wireRequest struct {
	UserId     string   `json:"userId"`
	Query      string   `json:"query,omitempty"`
	Type       string   `json:"type,omitempty"`
	Topic      string   `json:"topic,omitempty"`
	ExcludeIds []string `json:"excludeIds,omitempty"`
	Limit      int      `json:"limit"`
}

type wireItem struct {
	Id          string   `json:"id"`
	Kind        string   `json:"kind"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Thumb       string   `json:"thumb"`
	Link        string   `json:"link"`
}

type wireResponse struct {
	Mode  string     `json:"mode"`
	Items []wireItem `json:"items"`
}

// Recommend posts the request to /recommend and normalizes the answer.
func (c *Client) Recommend(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(wireRequest{
		UserId:     req.UserId,
		Query:      req.Query,
		Type:       req.Kind.String(),
		Topic:      req.Topic,
		ExcludeIds: req.ExcludeIds,
		Limit:      req.Limit,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/recommend", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	var data wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}

	mode := Mode(data.Mode)
	if mode == "" {
		mode = ModeRecommend
	}

	items := make([]*core.Item, 0, len(data.Items))
	for _, raw := range data.Items {
		if raw.Id == "" || raw.Title == "" {
			continue
		}
		k := core.ParseKind(raw.Kind)
		if k == 0 {
			k = req.Kind
		}
		items = append(items, &core.Item{
			SourceId:    raw.Id,
			Kind:        k,
			Title:       raw.Title,
			Authors:     raw.Authors,
			Description: raw.Description,
			Tags:        raw.Tags,
			Thumb:       raw.Thumb,
			Link:        raw.Link,
		})
	}

	return &Response{Mode: mode, Items: items}, nil
}
