package badger

import (
	"context"
	"testing"

	"github.com/storyowl/storyowl/core"
	"github.com/storyowl/storyowl/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSessionRepo(t *testing.T) storage.SessionRepository {
	t.Helper()
	itemRepo, profileRepo, sessionRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		sessionRepo.Close()
		profileRepo.Close()
		itemRepo.Close()
		backend.Close()
	})
	return sessionRepo
}

func TestSaveAndLoadState(t *testing.T) {
	repo := setupSessionRepo(t)
	ctx := context.Background()

	state := &core.ContinuationState{
		UserKey:    "u-1",
		SessionKey: "s-1",
		Strategy:   core.StrategyVector,
		SeedQuery:  "dinosaur stories",
		SeenIds:    []string{"a", "b"},
	}
	require.NoError(t, repo.SaveState(ctx, state))

	loaded, err := repo.LoadState(ctx, "u-1", "s-1")
	require.NoError(t, err)
	assert.Equal(t, core.StrategyVector, loaded.Strategy)
	assert.Equal(t, "dinosaur stories", loaded.SeedQuery)
	assert.Equal(t, []string{"a", "b"}, loaded.SeenIds)
	assert.False(t, loaded.UpdatedAt.IsZero())
}

func TestLoadStateNotFound(t *testing.T) {
	repo := setupSessionRepo(t)

	_, err := repo.LoadState(context.Background(), "u-1", "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSaveStateLastWriteWins(t *testing.T) {
	repo := setupSessionRepo(t)
	ctx := context.Background()

	first := &core.ContinuationState{UserKey: "u-1", SessionKey: "s-1", SeedQuery: "old"}
	require.NoError(t, repo.SaveState(ctx, first))

	second := &core.ContinuationState{UserKey: "u-1", SessionKey: "s-1", SeedQuery: "new"}
	require.NoError(t, repo.SaveState(ctx, second))

	loaded, err := repo.LoadState(ctx, "u-1", "s-1")
	require.NoError(t, err)
	assert.Equal(t, "new", loaded.SeedQuery)
}

func TestSessionsAreScoped(t *testing.T) {
	repo := setupSessionRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveState(ctx, &core.ContinuationState{UserKey: "u-1", SessionKey: "s-1", SeedQuery: "dinos"}))
	require.NoError(t, repo.SaveState(ctx, &core.ContinuationState{UserKey: "u-1", SessionKey: "s-2", SeedQuery: "space"}))
	require.NoError(t, repo.SaveState(ctx, &core.ContinuationState{UserKey: "u-2", SessionKey: "s-1", SeedQuery: "oceans"}))

	loaded, err := repo.LoadState(ctx, "u-1", "s-1")
	require.NoError(t, err)
	assert.Equal(t, "dinos", loaded.SeedQuery)

	loaded, err = repo.LoadState(ctx, "u-2", "s-1")
	require.NoError(t, err)
	assert.Equal(t, "oceans", loaded.SeedQuery)
}

func TestDeleteState(t *testing.T) {
	repo := setupSessionRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveState(ctx, &core.ContinuationState{UserKey: "u-1", SessionKey: "s-1"}))
	require.NoError(t, repo.DeleteState(ctx, "u-1", "s-1"))

	_, err := repo.LoadState(ctx, "u-1", "s-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Deleting again is not an error.
	require.NoError(t, repo.DeleteState(ctx, "u-1", "s-1"))
}

func TestSaveStateRejectsMissingKeys(t *testing.T) {
	repo := setupSessionRepo(t)

	err := repo.SaveState(context.Background(), &core.ContinuationState{UserKey: "u-1"})
	assert.ErrorIs(t, err, core.ErrEmptySessionKey)
}
