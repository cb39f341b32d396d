package ingest

import "errors"

var (
	// ErrItemRepositoryRequired indicates a nil item repository was passed
	// to NewPipeline.
	ErrItemRepositoryRequired = errors.New("item repository is required")

	// ErrAIProviderRequired indicates a nil AI provider was passed to
	// NewPipeline.
	ErrAIProviderRequired = errors.New("AI provider is required")
)
