package session

import "errors"

var (
	ErrInvalidPin      = errors.New("no active session for pin")
	ErrSessionInactive = errors.New("session is no longer active")
	ErrNotFound        = errors.New("session not found")
	ErrUnauthorized    = errors.New("caller is not a manager of this session")
	ErrRecoveryFailed  = errors.New("recovery failed")
)
