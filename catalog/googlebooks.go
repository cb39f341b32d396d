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

const googleBooksEndpoint = "https://www.googleapis.com/books/v1/volumes"

// GoogleBooks is the public book catalog fallback. Category searches carry
// a subject:juvenile restriction so results stay in the children's shelf.
type GoogleBooks struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *slog.Logger
}

var _ Source = (*GoogleBooks)(nil)

// NewGoogleBooks creates a Google Books client. The API key is optional;
// without one the public quota applies.
func NewGoogleBooks(apiKey string, client *http.Client) *GoogleBooks {
	if client == nil {
		client = http.DefaultClient
	}
	return &GoogleBooks{
		endpoint: googleBooksEndpoint,
		apiKey:   apiKey,
		client:   client,
		logger:   slog.Default().With("component", "google-books"),
	}
}

// Name identifies the source in logs.
func (s *GoogleBooks) Name() string {
	return "google_books"
}

// Supports reports true for books only.
func (s *GoogleBooks) Supports(kind core.Kind) bool {
	return kind == core.KindBook
}

type gbVolume struct {
	Id         string `json:"id"`
	VolumeInfo struct {
		Title       string   `json:"title"`
		Authors     []string `json:"authors"`
		Description string   `json:"description"`
		Categories  []string `json:"categories"`
		ImageLinks  struct {
			Thumbnail string `json:"thumbnail"`
		} `json:"imageLinks"`
		CanonicalVolumeLink string `json:"canonicalVolumeLink"`
		InfoLink            string `json:"infoLink"`
	} `json:"volumeInfo"`
}

type gbResponse struct {
	Items []gbVolume `json:"items"`
}

// Search queries the volumes endpoint, paging by startIndex.
func (s *GoogleBooks) Search(ctx context.Context, q Query) (*Page, error) {
	if q.Kind != core.KindBook {
		return nil, ErrKindUnsupported
	}

	term := q.Term()
	if q.Keywords == "" {
		// Canned category query: keep it in the juvenile shelf.
		if _, juvenile := BookQueryFor(q.Category); juvenile {
			term += " subject:juvenile"
		}
	}

	params := url.Values{}
	params.Set("q", term)
	params.Set("printType", "books")
	params.Set("orderBy", "relevance")
	params.Set("maxResults", strconv.Itoa(q.PageSize()))
	params.Set("startIndex", strconv.Itoa(q.Offset))
	if q.Lang != "" {
		params.Set("langRestrict", q.Lang)
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

	var data gbResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}

	items := make([]*core.Item, 0, len(data.Items))
	for _, v := range data.Items {
		if v.Id == "" || v.VolumeInfo.Title == "" {
			continue
		}
		link := v.VolumeInfo.CanonicalVolumeLink
		if link == "" {
			link = v.VolumeInfo.InfoLink
		}
		items = append(items, &core.Item{
			SourceId:    v.Id,
			Kind:        core.KindBook,
			Title:       v.VolumeInfo.Title,
			Authors:     v.VolumeInfo.Authors,
			Description: v.VolumeInfo.Description,
			Tags:        v.VolumeInfo.Categories,
			Thumb:       v.VolumeInfo.ImageLinks.Thumbnail,
			Link:        link,
		})
	}

	return &Page{Items: items, Source: s.Name()}, nil
}
