package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/storyowl/storyowl/core"
	"github.com/storyowl/storyowl/storage"
)

// ProfileRepository implements storage.ProfileRepository for BadgerDB.
type ProfileRepository struct {
	backend *Backend
}

var _ storage.ProfileRepository = (*ProfileRepository)(nil)

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(backend *Backend) (*ProfileRepository, error) {
	return &ProfileRepository{backend: backend}, nil
}

// Close is a no-op; the backend owns the database handle.
func (r *ProfileRepository) Close() error {
	return nil
}

// PutProfile stores a profile, replacing any previous version.
func (r *ProfileRepository) PutProfile(ctx context.Context, profile *core.UserProfile) error {
	if err := core.ValidateProfile(profile); err != nil {
		return err
	}
	profile.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)

	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeProfileKey(profile.UserId), storage.MarshalProfile(profile)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetProfile retrieves the profile for a user.
func (r *ProfileRepository) GetProfile(ctx context.Context, userId string) (*core.UserProfile, error) {
	var profile *core.UserProfile
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		entry, err := tx.Get(makeProfileKey(userId))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		return entry.Value(func(val []byte) error {
			var err error
			profile, err = storage.UnmarshalProfile(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return profile, nil
}
