package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/storyowl/storyowl/core"
)

const youtubeEndpoint = "https://www.googleapis.com/youtube/v3/search"

// YouTube is the public video catalog fallback. Every query is pinned to
// embeddable videos with strict safe search; pagination uses provider page
// tokens rather than offsets.
type YouTube struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *slog.Logger
}

var _ Source = (*YouTube)(nil)

// NewYouTube creates a YouTube search client.
func NewYouTube(apiKey string, client *http.Client) *YouTube {
	if client == nil {
		client = http.DefaultClient
	}
	return &YouTube{
		endpoint: youtubeEndpoint,
		apiKey:   apiKey,
		client:   client,
		logger:   slog.Default().With("component", "youtube"),
	}
}

// Name identifies the source in logs.
func (s *YouTube) Name() string {
	return "youtube"
}

// Supports reports true for videos only.
func (s *YouTube) Supports(kind core.Kind) bool {
	return kind == core.KindVideo
}

type ytResult struct {
	Id struct {
		VideoId string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		Title        string `json:"title"`
		Description  string `json:"description"`
		ChannelTitle string `json:"channelTitle"`
		Thumbnails   struct {
			High struct {
				Url string `json:"url"`
			} `json:"high"`
		} `json:"thumbnails"`
	} `json:"snippet"`
}

type ytResponse struct {
	Items         []ytResult `json:"items"`
	NextPageToken string     `json:"nextPageToken"`
}

// Search queries the search endpoint, paging by token.
func (s *YouTube) Search(ctx context.Context, q Query) (*Page, error) {
	if q.Kind != core.KindVideo {
		return nil, ErrKindUnsupported
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("videoEmbeddable", "true")
	params.Set("safeSearch", "strict")
	params.Set("maxResults", strconv.Itoa(q.PageSize()))
	params.Set("q", q.Term())
	if q.PageToken != "" {
		params.Set("pageToken", q.PageToken)
	}
	if s.apiKey != "" {
		params.Set("key", s.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	var data ytResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}

	items := make([]*core.Item, 0, len(data.Items))
	for _, v := range data.Items {
		if v.Id.VideoId == "" || v.Snippet.Title == "" {
			continue
		}
		items = append(items, &core.Item{
			SourceId:    v.Id.VideoId,
			Kind:        core.KindVideo,
			Title:       v.Snippet.Title,
			Authors:     []string{v.Snippet.ChannelTitle},
			Description: v.Snippet.Description,
			Thumb:       v.Snippet.Thumbnails.High.Url,
			Link:        "https://www.youtube.com/watch?v=" + v.Id.VideoId,
		})
	}

	return &Page{Items: items, NextPageToken: data.NextPageToken, Source: s.Name()}, nil
}
