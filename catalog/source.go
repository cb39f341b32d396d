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
	"context"
	"errors"

	"github.com/storyowl/storyowl/core"
)

// DefaultPageSize is the physical page size used against every source.
const DefaultPageSize = 6

var (
	// ErrUpstreamUnavailable indicates the content source could not be
	// reached or answered with a non-2xx status. The cascade treats it as
	// an empty result and moves on.
	ErrUpstreamUnavailable = errors.New("content source unavailable")

	// ErrKindUnsupported indicates the source cannot serve the requested
	// media kind.
	ErrKindUnsupported = errors.New("content source does not serve this kind")
)

// Query is a keyword/category search against a content source.
type Query struct {
	// Keywords is the free-text search term. When empty, sources derive a
	// canned term from Category.
	Keywords string

	// Category is the canonical genre/topic label (see CanonicalGenre).
	Category string

	// Kind selects books or videos.
	Kind core.Kind

	// Lang restricts results to a language code when the source supports it.
	Lang string

	// Age is the child's age hint; zero means unknown.
	Age int

	// Limit is the page size; zero means DefaultPageSize.
	Limit int

	// Offset is the zero-based item offset for offset-paged sources.
	Offset int

	// PageToken is the provider cursor for token-paged sources.
	PageToken string
}

// PageSize returns the effective page size.
func (q Query) PageSize() int {
	if q.Limit <= 0 {
		return DefaultPageSize
	}
	return q.Limit
}

// Term returns the search term: explicit keywords, else the canned query
// for the category and kind.
func (q Query) Term() string {
	if q.Keywords != "" {
		return q.Keywords
	}
	if q.Kind == core.KindVideo {
		return VideoQueryFor(q.Category)
	}
	term, _ := BookQueryFor(q.Category)
	return term
}

// Page is one page of normalized results from a source.
type Page struct {
	Items []*core.Item

	// NextPageToken is the provider cursor for the next page; empty when
	// the source pages by offset or is exhausted.
	NextPageToken string

	// Source names the provider that produced the page, for logs and
	// audit trails.
	Source string
}

// Source is a normalized external content catalog.
type Source interface {
	// Name identifies the source in logs.
	Name() string

	// Supports reports whether the source serves the given media kind.
	Supports(kind core.Kind) bool

	// Search returns one page of items for the query. An empty page is not
	// an error.
	Search(ctx context.Context, q Query) (*Page, error)
}
