package domain

import "errors"

// Sentinel errors shared by every layer. Check with errors.Is.
var (
	// ErrInvalidInput is returned for requests that cannot be interpreted,
	// such as an unknown review response.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidState is returned when stored scheduling state violates
	// its invariants.
	ErrInvalidState = errors.New("invalid card state")
	// ErrConflict is returned when a card was modified concurrently, or
	// when a user already owns a card with the same content.
	ErrConflict = errors.New("conflict")
	// ErrNotFound is returned when a card or source does not exist, or
	// belongs to another user.
	ErrNotFound = errors.New("not found")
)
