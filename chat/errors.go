package chat

import "errors"

var (
	// ErrEmbedderRequired indicates the orchestrator was constructed
	// without an embedder.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrRetrieverRequired indicates the orchestrator was constructed
	// without a retriever.
	ErrRetrieverRequired = errors.New("retriever is required")

	// ErrSessionRepositoryRequired indicates the orchestrator was
	// constructed without a session repository.
	ErrSessionRepositoryRequired = errors.New("session repository is required")
)
