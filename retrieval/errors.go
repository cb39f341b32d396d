package retrieval

import "errors"

var (
	// ErrItemRepositoryRequired indicates a nil item repository was passed.
	ErrItemRepositoryRequired = errors.New("item repository is required")

	// ErrInvalidLimit indicates a non-positive result limit.
	ErrInvalidLimit = errors.New("limit must be positive")

	// ErrLowConfidence indicates the best candidates are too far from the
	// query to trust. Not a failure: the cascade treats it as a signal to
	// try the next retrieval tier.
	ErrLowConfidence = errors.New("retrieval confidence below threshold")
)
