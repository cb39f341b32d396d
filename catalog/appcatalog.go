package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/storyowl/storyowl/core"
)

// AppCatalog is the first-party catalog service, preferred over public
// catalogs when configured. It serves both books and videos behind
// /api/books and /api/videos.
type AppCatalog struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

var _ Source = (*AppCatalog)(nil)

// NewAppCatalog creates a client for the app catalog service.
func NewAppCatalog(baseURL string, client *http.Client) *AppCatalog {
	if client == nil {
		client = http.DefaultClient
	}
	return &AppCatalog{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
		logger:  slog.Default().With("component", "app-catalog"),
	}
}

// Name identifies the source in logs.
func (s *AppCatalog) Name() string {
	return "app"
}

// Supports reports true for both kinds.
func (s *AppCatalog) Supports(kind core.Kind) bool {
	return kind == core.KindBook || kind == core.KindVideo
}

type appItem struct {
	Id          string   `json:"id"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	AgeMin      int      `json:"ageMin"`
	AgeMax      int      `json:"ageMax"`
	Thumb       string   `json:"thumb"`
	Link        string   `json:"link"`
}

type appResponse struct {
	Items         []appItem `json:"items"`
	NextPageToken string    `json:"nextPageToken"`
}

// Search queries /api/books or /api/videos depending on the kind.
func (s *AppCatalog) Search(ctx context.Context, q Query) (*Page, error) {
	path := "/api/books"
	if q.Kind == core.KindVideo {
		path = "/api/videos"
	}

	params := url.Values{}
	term := q.Term()
	params.Set("q", term)
	params.Set("query", term)
	if q.Category != "" {
		params.Set("category", q.Category)
	}
	if q.Age > 0 {
		params.Set("age", strconv.Itoa(q.Age))
	}
	if q.Lang != "" {
		params.Set("lang", q.Lang)
	}
	params.Set("limit", strconv.Itoa(q.PageSize()))
	params.Set("offset", strconv.Itoa(q.Offset))
	if q.PageToken != "" {
		params.Set("pageToken", q.PageToken)
	}

	var data appResponse
	if err := s.getJSON(ctx, s.baseURL+path+"?"+params.Encode(), &data); err != nil {
		return nil, err
	}

	items := make([]*core.Item, 0, len(data.Items))
	for _, raw := range data.Items {
		if raw.Id == "" || raw.Title == "" {
			continue
		}
		items = append(items, &core.Item{
			SourceId:    raw.Id,
			Kind:        q.Kind,
			Title:       raw.Title,
			Authors:     raw.Authors,
			Description: raw.Description,
			Tags:        raw.Tags,
			AgeMin:      raw.AgeMin,
			AgeMax:      raw.AgeMax,
			Thumb:       raw.Thumb,
			Link:        raw.Link,
		})
	}

	return &Page{Items: items, NextPageToken: data.NextPageToken, Source: s.Name()}, nil
}

func (s *AppCatalog) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
