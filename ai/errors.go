package ai

import "errors"

var (
	// ErrRateLimited indicates the upstream embedding service rejected the
	// request due to rate limiting. RetryingEmbedder backs off and retries
	// on this error.
	ErrRateLimited = errors.New("embedding service rate limited")

	// ErrUpstreamUnavailable indicates the embedding service could not be
	// reached or returned a server error.
	ErrUpstreamUnavailable = errors.New("embedding service unavailable")

	// ErrEmptyEmbedding indicates the upstream returned a zero-length vector.
	ErrEmptyEmbedding = errors.New("embedding service returned empty vector")

	// ErrEmbeddingCountMismatch indicates a batch call returned a different
	// number of vectors than texts submitted.
	ErrEmbeddingCountMismatch = errors.New("embedding count does not match input count")

	// ErrEmptyInput indicates an embedding was requested for empty text.
	ErrEmptyInput = errors.New("cannot embed empty input")
)
