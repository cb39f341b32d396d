// Package profile rebuilds user preference vectors from interaction
// history. A rebuild embeds the user's favourites, activities, and declared
// interests in one batch and folds them into a single L2-normalized vector
// the retrieval scorer can compare against item embeddings.
package profile
