// Package chat turns a conversational ask into a ranked recommendation
// reply. The orchestrator runs a fixed cascade of retrieval tiers, each of
// which either produces a terminal reply or falls through to the next, so
// every turn ends in something useful even when the preferred path fails.
package chat
