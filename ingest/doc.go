// Package ingest loads catalog items into the vector store. Each item is
// flattened into a single embedding text, embedded in batches, and upserted
// with its vector attached.
package ingest
