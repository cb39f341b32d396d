package core

import "fmt"

// ValidateItem checks that an Item satisfies domain invariants before it is
// persisted. Read paths do not validate; catalog adapters already normalize.
func ValidateItem(it *Item) error {
	if it == nil {
		return ErrInvalidItem
	}
	if it.SourceId == "" {
		return fmt.Errorf("%w: %w", ErrInvalidItem, ErrEmptySourceId)
	}
	if it.Title == "" {
		return fmt.Errorf("%w: %w", ErrInvalidItem, ErrEmptyTitle)
	}
	if it.Kind != KindBook && it.Kind != KindVideo {
		return fmt.Errorf("%w: %w", ErrInvalidItem, ErrInvalidKind)
	}
	if it.AgeMin > 0 && it.AgeMax > 0 && it.AgeMin > it.AgeMax {
		return fmt.Errorf("%w: %w", ErrInvalidItem, ErrInvalidAgeRange)
	}
	return nil
}

// ValidateProfile checks that a UserProfile satisfies domain invariants.
func ValidateProfile(p *UserProfile) error {
	if p == nil {
		return ErrInvalidProfile
	}
	if p.UserId == "" {
		return fmt.Errorf("%w: %w", ErrInvalidProfile, ErrEmptyUserId)
	}
	return nil
}

// ValidateContinuationState checks that a ContinuationState can be persisted.
func ValidateContinuationState(s *ContinuationState) error {
	if s == nil {
		return ErrEmptySessionKey
	}
	if s.UserKey == "" {
		return ErrEmptyUserId
	}
	if s.SessionKey == "" {
		return ErrEmptySessionKey
	}
	return nil
}
