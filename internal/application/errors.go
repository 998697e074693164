package application

import (
	"errors"
	"fmt"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrPermission      = errors.New("permission denied")
	ErrUnauthenticated = errors.New("authentication required")
)

// Validation wraps msg so errors.Is(err, ErrValidation) holds.
func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// Permission wraps msg so errors.Is(err, ErrPermission) holds.
func Permission(msg string) error {
	return fmt.Errorf("%w: %s", ErrPermission, msg)
}
