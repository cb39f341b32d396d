// Package mock provides test doubles for the ai interfaces.
// The mock embedder produces deterministic vectors from a text hash, so
// similarity-dependent tests are repeatable without an embedding service.
package mock
