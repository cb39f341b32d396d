package catalog

import (
	"context"
	"errors"
	"log/slog"

	"github.com/storyowl/storyowl/core"
)

// FallbackSource stacks sources in preference order: the first source that
// supports the kind and returns a non-empty page wins. Upstream failures
// are logged and skipped; only when every source fails does Search return
// an error.
type FallbackSource struct {
	sources []Source
	logger  *slog.Logger
}

var _ Source = (*FallbackSource)(nil)

// NewFallbackSource stacks sources in the given preference order.
func NewFallbackSource(sources ...Source) *FallbackSource {
	return &FallbackSource{
		sources: sources,
		logger:  slog.Default().With("component", "catalog-fallback"),
	}
}

// Name identifies the source in logs.
func (s *FallbackSource) Name() string {
	return "fallback"
}

// Supports reports whether any stacked source serves the kind.
func (s *FallbackSource) Supports(kind core.Kind) bool {
	for _, src := range s.sources {
		if src.Supports(kind) {
			return true
		}
	}
	return false
}

// Search tries each source in order. An empty page from one source falls
// through to the next; the final source's empty page is returned as-is so
// the caller can distinguish "nothing found" from "nothing reachable".
func (s *FallbackSource) Search(ctx context.Context, q Query) (*Page, error) {
	var (
		lastPage *Page
		lastErr  error
	)
	for _, src := range s.sources {
		if !src.Supports(q.Kind) {
			continue
		}
		page, err := src.Search(ctx, q)
		if err != nil {
			s.logger.Warn("content source failed, trying next",
				"source", src.Name(), "err", err)
			lastErr = err
			continue
		}
		if len(page.Items) > 0 {
			return page, nil
		}
		lastPage = page
	}

	if lastPage != nil {
		return lastPage, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.Join(ErrUpstreamUnavailable, ErrKindUnsupported)
}
