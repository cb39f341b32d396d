package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/storyowl/storyowl/core"
	"github.com/storyowl/storyowl/storage"
)

// SessionRepository implements storage.SessionRepository for BadgerDB.
// Writes are last-write-wins by construction: each SaveState is a blind Set.
type SessionRepository struct {
	backend *Backend
}

var _ storage.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(backend *Backend) (*SessionRepository, error) {
	return &SessionRepository{backend: backend}, nil
}

// Close is a no-op; the backend owns the database handle.
func (r *SessionRepository) Close() error {
	return nil
}

// SaveState stores the continuation state for (UserKey, SessionKey).
func (r *SessionRepository) SaveState(ctx context.Context, state *core.ContinuationState) error {
	if err := core.ValidateContinuationState(state); err != nil {
		return err
	}
	state.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)

	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeSessionKey(state.UserKey, state.SessionKey)
		if err := tx.Set(key, storage.MarshalState(state)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// LoadState retrieves the continuation state for a session.
func (r *SessionRepository) LoadState(ctx context.Context, userKey, sessionKey string) (*core.ContinuationState, error) {
	var state *core.ContinuationState
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		entry, err := tx.Get(makeSessionKey(userKey, sessionKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		return entry.Value(func(val []byte) error {
			var err error
			state, err = storage.UnmarshalState(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return state, nil
}

// DeleteState removes a session's state.
func (r *SessionRepository) DeleteState(ctx context.Context, userKey, sessionKey string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		err := tx.Delete(makeSessionKey(userKey, sessionKey))
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return tx.Commit()
	}, true)
}
