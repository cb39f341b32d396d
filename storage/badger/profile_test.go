package badger

import (
	"context"
	"testing"

	"github.com/storyowl/storyowl/core"
	"github.com/storyowl/storyowl/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutAndGetProfile(t *testing.T) {
	_, repo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	profile := &core.UserProfile{
		UserId:    "u-1",
		Role:      core.RoleChild,
		Interests: []string{"dinosaurs", "space"},
		Age:       7,
		Vector:    []float32{0.6, 0.8},
	}
	require.NoError(t, repo.PutProfile(ctx, profile))

	loaded, err := repo.GetProfile(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"dinosaurs", "space"}, loaded.Interests)
	assert.Equal(t, 7, loaded.Age)
	assert.False(t, loaded.UpdatedAt.IsZero())
}

func TestGetProfileNotFound(t *testing.T) {
	_, repo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	_, err = repo.GetProfile(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPutProfileRejectsInvalid(t *testing.T) {
	_, repo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	err = repo.PutProfile(context.Background(), &core.UserProfile{Age: 7})
	assert.ErrorIs(t, err, core.ErrInvalidProfile)
}
