package services

import (
	"errors"
	"fmt"
)

var (
	ErrGuildNotFound = errors.New("guild not found")
	ErrInvalidUpdate = errors.New("invalid update")
	ErrAmuletHeld    = errors.New("amulet is already held")
)

// IdentityResolutionError means a new profile could not be created because the
// user's name could not be looked up.
type IdentityResolutionError struct {
	UserID string
	Err    error
}

func (e *IdentityResolutionError) Error() string {
	return fmt.Sprintf("resolve identity of user %s: %s", e.UserID, e.Err)
}

func (e *IdentityResolutionError) Unwrap() error {
	return e.Err
}
