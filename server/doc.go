// Package server exposes the engine over HTTP: the chat webhook, vector
// search, ingestion, and profile rebuild endpoints consumed by the
// conversational frontend.
package server
