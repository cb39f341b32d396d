// Package catalog adapts external content sources to one canonical item
// shape. Each concrete source (the app catalog service, Google Books,
// YouTube) normalizes its wire records into core.Item at the boundary, so
// the retrieval engine never sees a source-specific shape. Sources are
// interchangeable behind the Source interface and stacked by fallback
// order with NewFallbackSource.
package catalog
